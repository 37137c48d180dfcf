// Package jsonfs implements the record store as JSON files on local disk,
// laid out for downstream tooling: one file per profile keyed by canonical
// id, one combined friendship-edges file, and per-run traversal artifacts.
package jsonfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/graphscout/graphscout/internal/graph"
)

const (
	profilesDir   = "profiles"
	friendsDir    = "friends"
	postsDir      = "posts"
	graphDir      = "graph"
	traversalsDir = "traversals"

	edgesFile = "friendship_edges.json"
)

// Store persists records under a single data directory. All writes are
// write-temp-then-rename so readers never observe a partial file.
type Store struct {
	root   string
	logger *zap.Logger

	mu    sync.Mutex
	edges map[string]graph.FriendshipEdge
}

// New creates the directory layout under root and loads any existing edge
// file so repeated runs keep appending to the same combined set.
func New(root string, logger *zap.Logger) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, sub := range []string{profilesDir, friendsDir, postsDir, graphDir, traversalsDir} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir %s: %w", sub, err)
		}
	}

	s := &Store{
		root:   root,
		logger: logger,
		edges:  make(map[string]graph.FriendshipEdge),
	}
	if err := s.loadEdges(); err != nil {
		return nil, err
	}
	return s, nil
}

// PutProfile writes the profile record to profiles/<id>.json, overwriting
// any previous version.
func (s *Store) PutProfile(_ context.Context, profile graph.ProfileRecord) error {
	if profile.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	return s.writeJSON(filepath.Join(s.root, profilesDir, profile.ID+".json"), profile)
}

// GetProfile reads a previously stored profile record.
func (s *Store) GetProfile(_ context.Context, id string) (graph.ProfileRecord, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.root, profilesDir, id+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return graph.ProfileRecord{}, false, nil
	}
	if err != nil {
		return graph.ProfileRecord{}, false, fmt.Errorf("read profile %s: %w", id, err)
	}
	var profile graph.ProfileRecord
	if err := json.Unmarshal(data, &profile); err != nil {
		return graph.ProfileRecord{}, false, fmt.Errorf("decode profile %s: %w", id, err)
	}
	return profile, true, nil
}

// PutEdge merges the edge into the combined edge set, keyed
// "{source}_{target}", and rewrites the edges file. Re-saving the same
// directional pair overwrites in place; reversed pairs remain distinct.
func (s *Store) PutEdge(_ context.Context, edge graph.FriendshipEdge) error {
	if edge.SourceID == "" || edge.TargetID == "" {
		return fmt.Errorf("edge requires source and target ids")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[edge.Key()] = edge
	return s.writeEdgesLocked()
}

// EdgeCount returns the number of stored directional edges.
func (s *Store) EdgeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.edges)
}

// PutFriends writes a profile's collected friend list to
// friends/<id>_friends.json.
func (s *Store) PutFriends(_ context.Context, profileID string, friends []graph.Friend) error {
	if len(friends) == 0 {
		return nil
	}
	path := filepath.Join(s.root, friendsDir, fmt.Sprintf("%s_friends.json", profileID))
	return s.writeJSON(path, friends)
}

// PutPosts writes a profile's collected posts to posts/<id>_posts.json.
func (s *Store) PutPosts(_ context.Context, profileID string, posts []graph.PostRecord) error {
	if len(posts) == 0 {
		return nil
	}
	path := filepath.Join(s.root, postsDir, fmt.Sprintf("%s_posts.json", profileID))
	return s.writeJSON(path, posts)
}

// PutRunSummary writes the per-run metadata file and the profiles summary,
// both timestamped by run start.
func (s *Store) PutRunSummary(_ context.Context, summary graph.TraversalSummary, profiles []graph.ProfileRecord) error {
	stamp := summary.StartedAt.UTC().Format("20060102_150405")
	base := fmt.Sprintf("traversal_%s_%s", summary.SeedID, stamp)

	metaPath := filepath.Join(s.root, traversalsDir, base+"_meta.json")
	if err := s.writeJSON(metaPath, summary); err != nil {
		return err
	}

	type profileSummary struct {
		ProfileID  string `json:"profile_id"`
		Name       string `json:"name"`
		Username   string `json:"username,omitempty"`
		ProfileURL string `json:"profile_url"`
	}
	summaries := make([]profileSummary, 0, len(profiles))
	for _, p := range profiles {
		summaries = append(summaries, profileSummary{
			ProfileID:  p.ID,
			Name:       p.DisplayName,
			Username:   p.Username,
			ProfileURL: p.ProfileURL,
		})
	}
	profilesPath := filepath.Join(s.root, traversalsDir, base+"_profiles.json")
	return s.writeJSON(profilesPath, summaries)
}

// Close flushes nothing; files are written eagerly.
func (s *Store) Close() error {
	return nil
}

func (s *Store) loadEdges() error {
	data, err := os.ReadFile(filepath.Join(s.root, graphDir, edgesFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read edges file: %w", err)
	}
	var edges []graph.FriendshipEdge
	if err := json.Unmarshal(data, &edges); err != nil {
		return fmt.Errorf("decode edges file: %w", err)
	}
	for _, e := range edges {
		s.edges[e.Key()] = e
	}
	s.logger.Debug("loaded existing edges", zap.Int("count", len(edges)))
	return nil
}

func (s *Store) writeEdgesLocked() error {
	edges := make([]graph.FriendshipEdge, 0, len(s.edges))
	for _, e := range s.edges {
		edges = append(edges, e)
	}
	return s.writeJSON(filepath.Join(s.root, graphDir, edgesFile), edges)
}

func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := fmt.Sprintf("%s.%d.tmp", path, time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
