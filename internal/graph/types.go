// Package graph defines the domain types shared by the collection pipeline:
// profile records, friendship edges, and the interfaces that connect the
// traversal engine to page data sources and record stores.
package graph

import (
	"fmt"
	"time"
)

// Affiliation is a single work or education entry on a profile.
type Affiliation struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// ProfileRecord is the durable representation of a collected profile,
// keyed by its canonical id. Re-collection overwrites the record
// (last-write-wins); records are never deleted by the collector.
type ProfileRecord struct {
	ID          string        `json:"profile_id"`
	DisplayName string        `json:"name"`
	Username    string        `json:"username,omitempty"`
	ProfileURL  string        `json:"profile_url"`
	PictureURL  string        `json:"profile_picture,omitempty"`
	Bio         string        `json:"bio,omitempty"`
	Location    string        `json:"location,omitempty"`
	CurrentCity string        `json:"current_city,omitempty"`
	Hometown    string        `json:"hometown,omitempty"`
	Work        []Affiliation `json:"work,omitempty"`
	Education   []Affiliation `json:"education,omitempty"`
	CollectedAt time.Time     `json:"collected_at"`
}

// PostRecord is a single visible post collected from a profile timeline.
type PostRecord struct {
	ID            string    `json:"post_id"`
	ProfileID     string    `json:"profile_id"`
	Content       string    `json:"content,omitempty"`
	PostURL       string    `json:"post_url,omitempty"`
	PostedAt      string    `json:"post_date,omitempty"`
	MediaURLs     []string  `json:"media_urls,omitempty"`
	ReactionCount int       `json:"reaction_count,omitempty"`
	CommentCount  int       `json:"comment_count,omitempty"`
	ShareCount    int       `json:"share_count,omitempty"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Friend is the transient per-fetch unit produced by a PageDataSource while
// paging through a friends list. It is consumed once, to build a
// FriendshipEdge and a frontier candidate, then discarded.
type Friend struct {
	ID                 string `json:"profile_id"`
	DisplayName        string `json:"name"`
	ProfileURL         string `json:"profile_url"`
	PictureURL         string `json:"profile_picture,omitempty"`
	MutualFriendsCount int    `json:"mutual_friends_count,omitempty"`
}

// FriendshipEdge records that target appeared in source's visible friends
// list. The edge is undirected in meaning but stored from the perspective of
// the profile whose friends page was scraped. Duplicate unordered pairs may
// exist across runs; the collector does not deduplicate them.
type FriendshipEdge struct {
	SourceID           string    `json:"source_id"`
	TargetID           string    `json:"target_id"`
	MutualFriendsCount int       `json:"mutual_friends_count,omitempty"`
	CollectedAt        time.Time `json:"collected_at"`
}

// Key returns the storage key for the edge, "{source}_{target}".
func (e FriendshipEdge) Key() string {
	return fmt.Sprintf("%s_%s", e.SourceID, e.TargetID)
}

// RunStatus is the terminal state of a traversal run.
type RunStatus string

const (
	// RunCompleted means the frontier drained before any budget was hit.
	RunCompleted RunStatus = "completed"
	// RunBudgetExhausted means the profile budget stopped the run with
	// candidates still pending.
	RunBudgetExhausted RunStatus = "budget_exhausted"
	// RunAborted means the fetch session was lost mid-run; the summary
	// covers the profiles processed before the failure.
	RunAborted RunStatus = "aborted"
)

// TraversalSummary is returned by a traversal run and persisted as run
// metadata for downstream tooling.
type TraversalSummary struct {
	RunID           string    `json:"run_id"`
	SeedID          string    `json:"seed_profile_id"`
	Status          RunStatus `json:"status"`
	ProfilesVisited int       `json:"profiles_visited"`
	ProfilesFailed  int       `json:"profiles_failed"`
	EdgesCollected  int       `json:"edges_collected"`
	MaxDepthReached int       `json:"max_depth_reached"`
	FrontierPending int       `json:"frontier_pending"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}
