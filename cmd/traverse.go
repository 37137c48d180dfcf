package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/graphscout/graphscout/internal/cache"
	"github.com/graphscout/graphscout/internal/checkpoint"
	"github.com/graphscout/graphscout/internal/traverse"
)

// newTraverseCmd creates the 'traverse' subcommand, the main entry point for
// breadth-first graph collection from a seed profile.
func newTraverseCmd() *cobra.Command {
	var (
		maxDepth    int
		maxProfiles int
		maxFriends  int
	)

	cmd := &cobra.Command{
		Use:     "traverse-network <seed-url-or-id>",
		Aliases: []string{"traverse"},
		Short:   "Walks the friend graph outward from a seed profile",
		Long: `Performs a breadth-first traversal of the friend graph starting at the
seed profile. Each visited profile is recorded, its friends become
frontier candidates, and friendship edges are persisted. The run stops
when the frontier drains, the profile budget is exhausted, or the
browser session is lost. Progress is checkpointed periodically so an
interrupted run leaves an inspectable trail.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := appInstance.Config()
			logger := appInstance.GetLogger()

			session, err := buildSession(appInstance)
			if err != nil {
				return err
			}
			defer session.Close()

			if maxDepth < 0 {
				maxDepth = cfg.Collector.MaxDepth
			}
			if maxProfiles < 0 {
				maxProfiles = cfg.Collector.MaxProfiles
			}
			if maxFriends < 0 {
				maxFriends = cfg.Collector.MaxFriends
			}

			ckpt, err := checkpoint.NewWriter(cfg.Checkpoint.Dir, cfg.Checkpoint.Interval, logger)
			if err != nil {
				return fmt.Errorf("initialize checkpoint writer: %w", err)
			}

			engine, err := buildEngine(appInstance, session, traverse.Config{
				MaxDepth:       maxDepth,
				MaxProfiles:    maxProfiles,
				MaxFriends:     maxFriends,
				MaxFriendPages: cfg.Collector.MaxFriendPages,
				StallLimit:     cfg.Collector.StallLimit,
			}, traverse.Deps{
				Cache:       cache.New(""),
				Checkpoints: ckpt,
			})
			if err != nil {
				return err
			}

			summary, err := engine.Traverse(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("traverse from %s: %w", args[0], err)
			}

			if nerr := appInstance.GetNotifier().RunFinished(cmd.Context(), summary); nerr != nil {
				logger.Warn("run completion notification failed", zap.Error(nerr))
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	cmd.Flags().IntVar(&maxDepth, "depth", -1, "hop limit from the seed (default from config)")
	cmd.Flags().IntVar(&maxProfiles, "max-profiles", -1, "total profile budget for the run (0 means unlimited, default from config)")
	cmd.Flags().IntVar(&maxFriends, "max-friends", -1, "friends collected per profile (0 means unlimited, default from config)")
	return cmd
}
