package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphscout/graphscout/internal/graph"
)

func TestCollection_FriendsRoundTrip(t *testing.T) {
	t.Parallel()

	c := New("")
	_, ok := c.GetFriends("alice")
	require.False(t, ok)

	friends := []graph.Friend{{ID: "bob", DisplayName: "Bob"}}
	c.PutFriends("alice", friends)

	got, ok := c.GetFriends("alice")
	require.True(t, ok)
	require.Equal(t, friends, got)
}

func TestCollection_EmptyListIsAHit(t *testing.T) {
	t.Parallel()

	c := New("")
	c.PutFriends("alice", nil)
	got, ok := c.GetFriends("alice")
	require.True(t, ok, "an empty collected list must still count as cached")
	require.Empty(t, got)
}

func TestCollection_RestrictedMarker(t *testing.T) {
	t.Parallel()

	c := New("")
	require.False(t, c.IsRestricted("bob"))
	c.MarkRestricted("bob")
	require.True(t, c.IsRestricted("bob"))

	c.Reset()
	require.False(t, c.IsRestricted("bob"), "reset clears restricted markers")
}

func TestCollection_SpillsToDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := New(dir)
	c.PutFriends("alice", []graph.Friend{{ID: "bob", DisplayName: "Bob"}})

	data, err := os.ReadFile(filepath.Join(dir, "alice_friends.json"))
	require.NoError(t, err)

	var spilled []graph.Friend
	require.NoError(t, json.Unmarshal(data, &spilled))
	require.Len(t, spilled, 1)
	require.Equal(t, "bob", spilled[0].ID)
}
