package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/graphscout/graphscout/internal/robots"
)

// newAnalyzeSiteCmd creates the 'analyze-site' subcommand. It fetches and
// summarizes a host's robots.txt without touching the browser.
func newAnalyzeSiteCmd() *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "analyze-site",
		Short: "Summarizes a host's robots.txt policy",
		Long: `Fetches robots.txt from the target host over plain HTTP and reports the
directives relevant to collection: allowed and disallowed paths, the
crawl delay, sitemap locations, and per-path verdicts for the paths the
collector actually visits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			prober := robots.NewProber(nil, appInstance.Config().Collector.UserAgent)
			report, err := prober.Probe(cmd.Context(), host)
			if err != nil {
				return fmt.Errorf("probe %s: %w", host, err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().StringVar(&host, "host", "www.facebook.com", "host whose robots.txt to analyze")
	return cmd
}
