package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/graphscout/graphscout/internal/graph"
	"github.com/graphscout/graphscout/internal/traverse"
)

// newExtractProfileCmd creates the 'extract-profile' subcommand. It fetches
// one profile, optionally with recent timeline posts, and prints the record
// as JSON.
func newExtractProfileCmd() *cobra.Command {
	var maxPosts int

	cmd := &cobra.Command{
		Use:   "extract-profile <profile-url-or-id>",
		Short: "Collects a single profile record",
		Long: `Fetches one profile page through the headless browser and prints the
extracted record as JSON. The reference may be a full profile URL, a
vanity username, or a numeric id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			session, err := buildSession(appInstance)
			if err != nil {
				return err
			}
			defer session.Close()

			if maxPosts < 0 {
				maxPosts = appInstance.Config().Collector.MaxPosts
			}
			engine, err := buildEngine(appInstance, session, traverse.Config{}, traverse.Deps{})
			if err != nil {
				return err
			}

			res, posts, err := engine.ExtractProfile(cmd.Context(), args[0], maxPosts)
			if err != nil {
				return fmt.Errorf("extract profile: %w", err)
			}
			if res.Kind != graph.OutcomeOK {
				return fmt.Errorf("profile %s: %s", args[0], res.Kind)
			}

			out := struct {
				Profile graph.ProfileRecord `json:"profile"`
				Posts   []graph.PostRecord  `json:"posts,omitempty"`
			}{Profile: res.Profile, Posts: posts}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().IntVar(&maxPosts, "max-posts", -1, "maximum timeline posts to collect (0 disables, default from config)")
	return cmd
}
