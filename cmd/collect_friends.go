package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/graphscout/graphscout/internal/graph"
	"github.com/graphscout/graphscout/internal/traverse"
)

// newCollectFriendsCmd creates the 'collect-friends' subcommand. It pages
// through one profile's friends list and prints the collected friends.
func newCollectFriendsCmd() *cobra.Command {
	var maxFriends int

	cmd := &cobra.Command{
		Use:   "collect-friends <profile-url-or-id>",
		Short: "Collects the friends list of a single profile",
		Long: `Pages through the friends list of one profile, scrolling until the list
is exhausted, the configured cap is reached, or the page stops yielding
new entries. Friendship edges are persisted to the record store and the
friends are printed as JSON.`,
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

			cfg := appInstance.Config()
			if maxFriends < 0 {
				maxFriends = cfg.Collector.MaxFriends
			}
			engine, err := buildEngine(appInstance, session, traverse.Config{
				MaxFriends:     maxFriends,
				MaxFriendPages: cfg.Collector.MaxFriendPages,
				StallLimit:     cfg.Collector.StallLimit,
			}, traverse.Deps{})
			if err != nil {
				return err
			}

			friends, kind, err := engine.CollectFriends(cmd.Context(), args[0], maxFriends)
			if err != nil {
				return fmt.Errorf("collect friends: %w", err)
			}
			if kind == graph.OutcomeRestricted {
				return fmt.Errorf("friends list of %s is restricted", args[0])
			}

			out := struct {
				Count   int            `json:"count"`
				Outcome string         `json:"outcome"`
				Friends []graph.Friend `json:"friends"`
			}{Count: len(friends), Outcome: kind.String(), Friends: friends}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().IntVar(&maxFriends, "max", -1, "maximum friends to collect (0 means unlimited, default from config)")
	return cmd
}
