// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/graphscout/graphscout/internal/api"
	"github.com/graphscout/graphscout/internal/config"
	"github.com/graphscout/graphscout/internal/graph"
	"github.com/graphscout/graphscout/internal/logging"
	"github.com/graphscout/graphscout/internal/metrics"
	"github.com/graphscout/graphscout/internal/notify"
	"github.com/graphscout/graphscout/internal/progress"
	"github.com/graphscout/graphscout/internal/progress/sinks"
	"github.com/graphscout/graphscout/internal/snapshot"
	"github.com/graphscout/graphscout/internal/store"
	"github.com/graphscout/graphscout/internal/store/jsonfs"
	"github.com/graphscout/graphscout/internal/store/postgres"
)

// App holds the shared, long-lived services for a collector invocation: the
// logger, the record store, the page snapshot provider, the run notifier, and
// the progress hub. It is built once at startup and handed to the command
// that needs it.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	store     graph.RecordStore
	snapshots snapshot.Provider
	notifier  notify.Notifier
	hub       *progress.Hub
	tracker   *api.RunTracker
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config { return a.cfg }

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger { return a.logger }

// GetStore exposes the configured record store.
func (a *App) GetStore() graph.RecordStore { return a.store }

// GetSnapshots exposes the page snapshot provider.
func (a *App) GetSnapshots() snapshot.Provider { return a.snapshots }

// GetNotifier returns the run completion notifier.
func (a *App) GetNotifier() notify.Notifier { return a.notifier }

// GetHub returns the progress hub commands emit traversal events to.
func (a *App) GetHub() *progress.Hub { return a.hub }

// GetRunTracker returns the in-memory run view the status server reads.
func (a *App) GetRunTracker() *api.RunTracker { return a.tracker }

// NewApp creates and initializes an App from the application configuration.
// It is the central point for service initialization and fails fast if any
// critical service cannot be built.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New("graphscout", cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	metrics.Init()

	recordStore, err := newRecordStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	snapshots, err := newSnapshotProvider(ctx, cfg, logger)
	if err != nil {
		closeQuiet(logger, recordStore.Close)
		return nil, err
	}

	notifier, err := newNotifier(ctx, cfg, logger)
	if err != nil {
		closeQuiet(logger, snapshots.Close)
		closeQuiet(logger, recordStore.Close)
		return nil, err
	}

	tracker := api.NewRunTracker(0)
	hub := progress.NewHub(
		progress.Config{Logger: logger},
		sinks.NewLogSink(logger),
		sinks.NewPrometheusSink(),
		tracker,
	)

	logger.Info("application services initialized",
		zap.String("storage", cfg.Storage.Provider),
		zap.String("snapshots", cfg.Snapshots.Provider),
		zap.String("notify", cfg.Notify.Provider))

	return &App{
		cfg:       cfg,
		logger:    logger,
		store:     recordStore,
		snapshots: snapshots,
		notifier:  notifier,
		hub:       hub,
		tracker:   tracker,
	}, nil
}

func newRecordStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (graph.RecordStore, error) {
	switch cfg.Storage.Provider {
	case "jsonfs":
		logger.Info("using jsonfs record store", zap.String("dir", cfg.Storage.DataDir))
		s, err := jsonfs.New(cfg.Storage.DataDir, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize jsonfs store: %w", err)
		}
		return s, nil
	case "postgres":
		logger.Info("connecting to postgres record store")
		s, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.Storage.Postgres.DSN,
			MaxConns: int32(cfg.Storage.Postgres.MaxConns),
			MinConns: int32(cfg.Storage.Postgres.MinConns),
		})
		if err != nil {
			return nil, fmt.Errorf("initialize postgres store: %w", err)
		}
		return s, nil
	case "noop":
		logger.Info("using no-op record store, collected records will be discarded")
		return store.NoOp{}, nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Storage.Provider)
	}
}

func newSnapshotProvider(ctx context.Context, cfg config.Config, logger *zap.Logger) (snapshot.Provider, error) {
	switch cfg.Snapshots.Provider {
	case "gcs":
		logger.Info("using GCS snapshot provider", zap.String("bucket", cfg.Snapshots.GCSBucket))
		p, err := snapshot.NewGCSProvider(ctx, cfg.Snapshots.GCSBucket, cfg.Snapshots.Prefix, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize gcs snapshots: %w", err)
		}
		return p, nil
	case "fs":
		p, err := snapshot.NewFSProvider(cfg.Snapshots.Dir)
		if err != nil {
			return nil, fmt.Errorf("initialize fs snapshots: %w", err)
		}
		return p, nil
	case "noop":
		return snapshot.NoOpProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown snapshot provider: %s", cfg.Snapshots.Provider)
	}
}

func newNotifier(ctx context.Context, cfg config.Config, logger *zap.Logger) (notify.Notifier, error) {
	switch cfg.Notify.Provider {
	case "pubsub":
		logger.Info("connecting to GCP Pub/Sub", zap.String("topic", cfg.Notify.TopicID))
		n, err := notify.NewPubSubNotifier(ctx, cfg.Notify.ProjectID, cfg.Notify.TopicID, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize pubsub notifier: %w", err)
		}
		return n, nil
	case "noop":
		return notify.NoOpNotifier{}, nil
	default:
		return nil, fmt.Errorf("unknown notify provider: %s", cfg.Notify.Provider)
	}
}

func closeQuiet(logger *zap.Logger, fn func() error) {
	if err := fn(); err != nil {
		logger.Warn("error closing service during teardown", zap.Error(err))
	}
}

// Close gracefully shuts down all services in the App container. It is
// called by a Cobra hook after the command finishes execution.
func (a *App) Close(ctx context.Context) {
	a.logger.Info("shutting down application services")
	if err := a.hub.Close(ctx); err != nil {
		a.logger.Warn("error closing progress hub", zap.Error(err))
	}
	if err := a.notifier.Close(); err != nil {
		a.logger.Warn("error closing notifier", zap.Error(err))
	}
	if err := a.snapshots.Close(); err != nil {
		a.logger.Warn("error closing snapshot provider", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("error closing record store", zap.Error(err))
	}
	// Sync flushes buffered log entries; stderr sync failures are expected
	// on some platforms and not worth surfacing.
	_ = a.logger.Sync()
}
