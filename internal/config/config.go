// Package config loads and validates collector configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Collector  CollectorConfig  `mapstructure:"collector"`
	Headless   HeadlessConfig   `mapstructure:"headless"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Snapshots  SnapshotConfig   `mapstructure:"snapshots"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls the optional status HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// CollectorConfig governs traversal and collection behavior.
type CollectorConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	DelaySeconds   int    `mapstructure:"delay_seconds"`
	MaxDepth       int    `mapstructure:"max_depth"`
	MaxProfiles    int    `mapstructure:"max_profiles"`
	MaxFriends     int    `mapstructure:"max_friends"`
	MaxPosts       int    `mapstructure:"max_posts"`
	StallLimit     int    `mapstructure:"stall_limit"`
	MaxFriendPages int    `mapstructure:"max_friend_pages"`
}

// HeadlessConfig configures the browser session.
type HeadlessConfig struct {
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	ScrollPauseMs   int  `mapstructure:"scroll_pause_ms"`
	MaxScrolls      int  `mapstructure:"max_scrolls"`
	CollectAbout    bool `mapstructure:"collect_about"`
	ArchiveSnapshot bool `mapstructure:"archive_snapshots"`
}

// StorageConfig selects and configures the record store.
type StorageConfig struct {
	Provider string         `mapstructure:"provider"`
	DataDir  string         `mapstructure:"data_dir"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig controls access to the relational record store.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
}

// SnapshotConfig selects the raw-page archive destination.
type SnapshotConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
	Dir       string `mapstructure:"dir"`
}

// NotifyConfig holds metadata for run-completion notifications.
type NotifyConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// CheckpointConfig controls the traversal checkpoint writer.
type CheckpointConfig struct {
	Dir      string `mapstructure:"dir"`
	Interval int    `mapstructure:"interval"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk and environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GRAPHSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("graphscout")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/graphscout/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".graphscout"))
		}
		// A missing config file is fine, defaults and env cover it.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates a Config from an already-initialized
// Viper instance (the CLI path, where flags are bound first).
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults installs the default values on a Viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)

	v.SetDefault("collector.user_agent", "graphscout/1.0 (+https://github.com/graphscout/graphscout)")
	v.SetDefault("collector.delay_seconds", 2)
	v.SetDefault("collector.max_depth", 1)
	v.SetDefault("collector.max_profiles", 100)
	v.SetDefault("collector.max_friends", 50)
	v.SetDefault("collector.max_posts", 10)
	v.SetDefault("collector.stall_limit", 3)
	v.SetDefault("collector.max_friend_pages", 20)

	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("headless.scroll_pause_ms", 2000)
	v.SetDefault("headless.max_scrolls", 20)
	v.SetDefault("headless.collect_about", true)
	v.SetDefault("headless.archive_snapshots", false)

	v.SetDefault("storage.provider", "jsonfs")
	v.SetDefault("storage.data_dir", "data/collection")
	v.SetDefault("storage.postgres.max_conns", 4)
	v.SetDefault("storage.postgres.min_conns", 1)

	v.SetDefault("snapshots.provider", "noop")
	v.SetDefault("snapshots.prefix", "pages")

	v.SetDefault("notify.provider", "noop")

	v.SetDefault("checkpoint.dir", "data/checkpoints")
	v.SetDefault("checkpoint.interval", 10)

	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	if c.Collector.MaxDepth < 0 {
		return fmt.Errorf("collector.max_depth must be >= 0")
	}
	if c.Collector.MaxProfiles < 0 {
		return fmt.Errorf("collector.max_profiles must be >= 0")
	}
	if c.Collector.StallLimit <= 0 {
		return fmt.Errorf("collector.stall_limit must be > 0")
	}

	switch c.Storage.Provider {
	case "jsonfs":
		if c.Storage.DataDir == "" {
			return fmt.Errorf("storage.data_dir is required for the jsonfs provider")
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres provider")
		}
	case "noop":
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}

	switch c.Snapshots.Provider {
	case "gcs":
		if c.Snapshots.GCSBucket == "" {
			return fmt.Errorf("snapshots.gcs_bucket is required for the gcs provider")
		}
	case "fs":
		if c.Snapshots.Dir == "" {
			return fmt.Errorf("snapshots.dir is required for the fs provider")
		}
	case "noop":
	default:
		return fmt.Errorf("unknown snapshot provider: %s", c.Snapshots.Provider)
	}

	switch c.Notify.Provider {
	case "pubsub":
		if c.Notify.ProjectID == "" || c.Notify.TopicID == "" {
			return fmt.Errorf("notify.project_id and notify.topic_id are required for the pubsub provider")
		}
	case "noop":
	default:
		return fmt.Errorf("unknown notify provider: %s", c.Notify.Provider)
	}

	return nil
}

// Delay converts the configured per-fetch delay into a duration.
func (c CollectorConfig) Delay() time.Duration {
	return time.Duration(c.DelaySeconds) * time.Second
}

// NavTimeout converts the navigation timeout into a duration.
func (c HeadlessConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

// ScrollPause converts the scroll pause into a duration.
func (c HeadlessConfig) ScrollPause() time.Duration {
	return time.Duration(c.ScrollPauseMs) * time.Millisecond
}
