package jsonfs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/graphscout/graphscout/internal/graph"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := New(dir, zap.NewNop())
	require.NoError(t, err)
	return s, dir
}

func TestStore_ProfileRoundTrip(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	ctx := context.Background()

	_, found, err := s.GetProfile(ctx, "zuck")
	require.NoError(t, err)
	require.False(t, found)

	profile := graph.ProfileRecord{
		ID:          "zuck",
		DisplayName: "Mark",
		ProfileURL:  "https://www.facebook.com/zuck",
		CollectedAt: time.Now().UTC(),
	}
	require.NoError(t, s.PutProfile(ctx, profile))

	got, found, err := s.GetProfile(ctx, "zuck")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Mark", got.DisplayName)
}

func TestStore_PutProfileIsIdempotentOverwrite(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	ctx := context.Background()

	first := graph.ProfileRecord{ID: "alice", DisplayName: "Alice v1", ProfileURL: "u"}
	second := graph.ProfileRecord{ID: "alice", DisplayName: "Alice v2", ProfileURL: "u"}
	require.NoError(t, s.PutProfile(ctx, first))
	require.NoError(t, s.PutProfile(ctx, second))

	got, found, err := s.GetProfile(ctx, "alice")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Alice v2", got.DisplayName, "last write wins")
}

func TestStore_EdgesMergeByDirectionalKey(t *testing.T) {
	t.Parallel()

	s, dir := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutEdge(ctx, graph.FriendshipEdge{SourceID: "a", TargetID: "b"}))
	require.NoError(t, s.PutEdge(ctx, graph.FriendshipEdge{SourceID: "a", TargetID: "b", MutualFriendsCount: 7}))
	require.NoError(t, s.PutEdge(ctx, graph.FriendshipEdge{SourceID: "b", TargetID: "a"}))
	require.Equal(t, 2, s.EdgeCount(), "same directional pair merges, reversed pair stays distinct")

	data, err := os.ReadFile(filepath.Join(dir, "graph", "friendship_edges.json"))
	require.NoError(t, err)
	var edges []graph.FriendshipEdge
	require.NoError(t, json.Unmarshal(data, &edges))
	require.Len(t, edges, 2)
}

func TestStore_EdgesSurviveReopen(t *testing.T) {
	t.Parallel()

	s, dir := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutEdge(ctx, graph.FriendshipEdge{SourceID: "a", TargetID: "b"}))
	require.NoError(t, s.Close())

	reopened, err := New(dir, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 1, reopened.EdgeCount())

	// A second run adds to the same combined file.
	require.NoError(t, reopened.PutEdge(ctx, graph.FriendshipEdge{SourceID: "a", TargetID: "c"}))
	require.Equal(t, 2, reopened.EdgeCount())
}

func TestStore_RunSummaryFiles(t *testing.T) {
	t.Parallel()

	s, dir := newStore(t)
	started := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	summary := graph.TraversalSummary{
		RunID:           "run-1",
		SeedID:          "zuck",
		Status:          graph.RunCompleted,
		ProfilesVisited: 2,
		StartedAt:       started,
	}
	profiles := []graph.ProfileRecord{
		{ID: "zuck", DisplayName: "Mark", ProfileURL: "https://www.facebook.com/zuck"},
		{ID: "4", DisplayName: "Someone", ProfileURL: "https://www.facebook.com/profile.php?id=4"},
	}
	require.NoError(t, s.PutRunSummary(context.Background(), summary, profiles))

	metaPath := filepath.Join(dir, "traversals", "traversal_zuck_20260314_092653_meta.json")
	data, err := os.ReadFile(metaPath)
	require.NoError(t, err)
	var loaded graph.TraversalSummary
	require.NoError(t, json.Unmarshal(data, &loaded))
	require.Equal(t, graph.RunCompleted, loaded.Status)

	profilesPath := filepath.Join(dir, "traversals", "traversal_zuck_20260314_092653_profiles.json")
	data, err = os.ReadFile(profilesPath)
	require.NoError(t, err)
	var summaries []map[string]any
	require.NoError(t, json.Unmarshal(data, &summaries))
	require.Len(t, summaries, 2)
	require.Equal(t, "zuck", summaries[0]["profile_id"])
}

func TestStore_NoTempFilesLeftBehind(t *testing.T) {
	t.Parallel()

	s, dir := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutProfile(ctx, graph.ProfileRecord{ID: "alice", ProfileURL: "u"}))
	require.NoError(t, s.PutFriends(ctx, "alice", []graph.Friend{{ID: "bob"}}))

	var leftovers []string
	require.NoError(t, filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".tmp" {
			leftovers = append(leftovers, path)
		}
		return nil
	}))
	require.Empty(t, leftovers)
}
