package cmd

import (
	"github.com/spf13/cobra"

	"github.com/graphscout/graphscout/internal/api"
)

// newServeCmd creates the 'serve' subcommand. It runs the read-only status
// server, exposing health, metrics, and recent run views over HTTP.
func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP status server",
		Long: `Serves the read-only status API: /healthz and /readyz probes, the
Prometheus /metrics endpoint, and /v1/runs views over recent traversal
runs. The server shuts down gracefully when the process is signaled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if port <= 0 {
				port = appInstance.Config().Server.Port
			}

			srv := api.NewServer(appInstance.GetRunTracker(), appInstance.GetLogger())
			return srv.Serve(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	return cmd
}
