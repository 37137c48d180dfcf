// Package cmd defines and implements the CLI commands for the graphscout
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/graphscout/graphscout/internal/api"
	"github.com/graphscout/graphscout/internal/app"
	"github.com/graphscout/graphscout/internal/config"
	"github.com/graphscout/graphscout/internal/graph"
	"github.com/graphscout/graphscout/internal/notify"
	"github.com/graphscout/graphscout/internal/progress"
	"github.com/graphscout/graphscout/internal/snapshot"
	"github.com/graphscout/graphscout/internal/source/headless"
	"github.com/graphscout/graphscout/internal/traverse"
)

var cfgFile string

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// App is the service container interface commands resolve from their
// context. Declaring it here lets tests inject a mock container.
type App interface {
	Close(ctx context.Context)
	Config() config.Config
	GetLogger() *zap.Logger
	GetStore() graph.RecordStore
	GetSnapshots() snapshot.Provider
	GetNotifier() notify.Notifier
	GetHub() *progress.Hub
	GetRunTracker() *api.RunTracker
}

// newApp is the application factory. It is a variable so tests can replace
// it with a mock factory.
var newApp = func(ctx context.Context, cfg config.Config) (App, error) {
	return app.NewApp(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graphscout",
		Short: "A polite profile and friend-graph collector.",
		Long: `graphscout collects public profile data and friendship edges from a
social network through a headless browser, one page at a time. It walks
outward from a seed profile in breadth-first order, respecting depth and
volume budgets, and records what it finds in a pluggable store.`,

		// Runs after flags are parsed but before the subcommand's RunE.
		// This is where the service container is built and injected.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close(cmd.Context())
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus GRAPHSCOUT_ env vars)")

	cmd.AddCommand(newExtractProfileCmd())
	cmd.AddCommand(newCollectFriendsCmd())
	cmd.AddCommand(newTraverseCmd())
	cmd.AddCommand(newAnalyzeSiteCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute(ctx context.Context) {
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// buildSession launches the headless browser configured for this run and
// wires the snapshot archiver when enabled.
func buildSession(a App) (*headless.Session, error) {
	cfg := a.Config()
	session, err := headless.New(headless.Config{
		UserAgent:         cfg.Collector.UserAgent,
		NavigationTimeout: cfg.Headless.NavTimeout(),
		ScrollPause:       cfg.Headless.ScrollPause(),
		MaxScrolls:        cfg.Headless.MaxScrolls,
		CollectAbout:      cfg.Headless.CollectAbout,
	}, a.GetLogger())
	if err != nil {
		return nil, fmt.Errorf("launch browser session: %w", err)
	}
	if cfg.Headless.ArchiveSnapshot {
		session.SetArchiver(a.GetSnapshots())
	}
	return session, nil
}

// buildEngine assembles a traversal engine over an open browser session.
func buildEngine(a App, session *headless.Session, engineCfg traverse.Config, deps traverse.Deps) (*traverse.Engine, error) {
	cfg := a.Config()
	deps.Source = session
	deps.Store = a.GetStore()
	deps.Emitter = a.GetHub()
	deps.Logger = a.GetLogger()
	if deps.Limiter == nil && cfg.Collector.Delay() > 0 {
		deps.Limiter = rate.NewLimiter(rate.Every(cfg.Collector.Delay()), 1)
	}
	engine, err := traverse.New(engineCfg, deps)
	if err != nil {
		return nil, fmt.Errorf("build traversal engine: %w", err)
	}
	return engine, nil
}
