// Package postgres provides a Postgres-backed record store using pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/graphscout/graphscout/internal/graph"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pgxPool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists profiles, edges, and run summaries in Postgres. Upserts are
// keyed by canonical id so re-collection overwrites in place.
//
// Expected schema:
//
//	CREATE TABLE profiles (
//	    id TEXT PRIMARY KEY,
//	    record JSONB NOT NULL,
//	    collected_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE friendship_edges (
//	    edge_key TEXT PRIMARY KEY,
//	    source_id TEXT NOT NULL,
//	    target_id TEXT NOT NULL,
//	    mutual_friends_count INT,
//	    collected_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE traversal_runs (
//	    run_id TEXT PRIMARY KEY,
//	    summary JSONB NOT NULL,
//	    finished_at TIMESTAMPTZ NOT NULL
//	);
type Store struct {
	pool pgxPool
}

// New connects a pool and pings it so misconfiguration fails fast.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for tests).
func NewWithPool(pool pgxPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// PutProfile upserts the profile row keyed by canonical id.
func (s *Store) PutProfile(ctx context.Context, profile graph.ProfileRecord) error {
	if profile.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	record, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	const query = `
INSERT INTO profiles (id, record, collected_at)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET record = EXCLUDED.record, collected_at = EXCLUDED.collected_at`
	if _, err := s.pool.Exec(ctx, query, profile.ID, record, profile.CollectedAt); err != nil {
		return fmt.Errorf("upsert profile %s: %w", profile.ID, err)
	}
	return nil
}

// GetProfile fetches a profile row by canonical id.
func (s *Store) GetProfile(ctx context.Context, id string) (graph.ProfileRecord, bool, error) {
	const query = `SELECT record FROM profiles WHERE id = $1`
	var record []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(&record)
	if errors.Is(err, pgx.ErrNoRows) {
		return graph.ProfileRecord{}, false, nil
	}
	if err != nil {
		return graph.ProfileRecord{}, false, fmt.Errorf("select profile %s: %w", id, err)
	}
	var profile graph.ProfileRecord
	if err := json.Unmarshal(record, &profile); err != nil {
		return graph.ProfileRecord{}, false, fmt.Errorf("decode profile %s: %w", id, err)
	}
	return profile, true, nil
}

// PutEdge upserts a directional edge keyed "{source}_{target}".
func (s *Store) PutEdge(ctx context.Context, edge graph.FriendshipEdge) error {
	if edge.SourceID == "" || edge.TargetID == "" {
		return fmt.Errorf("edge requires source and target ids")
	}
	const query = `
INSERT INTO friendship_edges (edge_key, source_id, target_id, mutual_friends_count, collected_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (edge_key) DO UPDATE SET
    mutual_friends_count = EXCLUDED.mutual_friends_count,
    collected_at = EXCLUDED.collected_at`
	_, err := s.pool.Exec(ctx, query,
		edge.Key(), edge.SourceID, edge.TargetID, edge.MutualFriendsCount, edge.CollectedAt)
	if err != nil {
		return fmt.Errorf("upsert edge %s: %w", edge.Key(), err)
	}
	return nil
}

// PutFriends stores nothing beyond the edges in Postgres; friend lists are a
// filesystem artifact. Kept to satisfy the RecordStore interface.
func (s *Store) PutFriends(context.Context, string, []graph.Friend) error {
	return nil
}

// PutPosts upserts each post keyed by post id.
func (s *Store) PutPosts(ctx context.Context, profileID string, posts []graph.PostRecord) error {
	const query = `
INSERT INTO posts (post_id, profile_id, record, collected_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (post_id) DO UPDATE SET record = EXCLUDED.record, collected_at = EXCLUDED.collected_at`
	for _, post := range posts {
		record, err := json.Marshal(post)
		if err != nil {
			return fmt.Errorf("marshal post %s: %w", post.ID, err)
		}
		if _, err := s.pool.Exec(ctx, query, post.ID, profileID, record, post.CollectedAt); err != nil {
			return fmt.Errorf("upsert post %s: %w", post.ID, err)
		}
	}
	return nil
}

// PutRunSummary inserts the run summary row.
func (s *Store) PutRunSummary(ctx context.Context, summary graph.TraversalSummary, _ []graph.ProfileRecord) error {
	record, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	const query = `
INSERT INTO traversal_runs (run_id, summary, finished_at)
VALUES ($1, $2, $3)
ON CONFLICT (run_id) DO UPDATE SET summary = EXCLUDED.summary, finished_at = EXCLUDED.finished_at`
	if _, err := s.pool.Exec(ctx, query, summary.RunID, record, summary.FinishedAt); err != nil {
		return fmt.Errorf("insert run summary %s: %w", summary.RunID, err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}
