// Package cache memoizes per-profile collection results for the lifetime of
// a run, so a profile's friends list is fetched at most once per session and
// access-restricted profiles are not re-probed.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/graphscout/graphscout/internal/graph"
)

type entry struct {
	Friends    []graph.Friend `json:"friends"`
	Restricted bool           `json:"restricted"`
}

// Collection caches friend lists and restricted markers by canonical id.
// Unbounded for the run's lifetime; Reset clears it at run start. Safe for
// concurrent use, although the traversal loop itself is single-threaded.
type Collection struct {
	mu      sync.RWMutex
	entries map[string]entry
	dir     string
}

// New returns an in-memory collection cache. If spillDir is non-empty, each
// cached friend list is also mirrored to disk as JSON for post-run auditing.
func New(spillDir string) *Collection {
	return &Collection{
		entries: make(map[string]entry),
		dir:     spillDir,
	}
}

// Reset drops all cached state. Called at the start of each traversal run.
func (c *Collection) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// GetFriends returns the cached friend list for the id, if present. The
// boolean reports a cache hit; a hit with a nil slice means the profile was
// collected and had no visible friends.
func (c *Collection) GetFriends(id string) ([]graph.Friend, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	return e.Friends, true
}

// PutFriends caches the collected friend list for the id.
func (c *Collection) PutFriends(id string, friends []graph.Friend) {
	c.mu.Lock()
	c.entries[id] = entry{Friends: friends}
	c.mu.Unlock()
	c.spill(id, entry{Friends: friends})
}

// MarkRestricted records that the profile's friend list is not visible, so
// later calls in the same run return an empty result without a fetch.
func (c *Collection) MarkRestricted(id string) {
	c.mu.Lock()
	c.entries[id] = entry{Restricted: true}
	c.mu.Unlock()
}

// IsRestricted reports whether the id was marked restricted this run.
func (c *Collection) IsRestricted(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[id].Restricted
}

// Len returns the number of cached profiles.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Collection) spill(id string, e entry) {
	if c.dir == "" || len(e.Friends) == 0 {
		return
	}
	data, err := json.MarshalIndent(e.Friends, "", "  ")
	if err != nil {
		return
	}
	// Best effort; the in-memory cache is authoritative for the run.
	path := filepath.Join(c.dir, fmt.Sprintf("%s_friends.json", id))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, path)
}
