// Package store hosts RecordStore providers. The interface itself lives in
// the graph package; implementations are selected by configuration.
package store

import (
	"context"

	"github.com/graphscout/graphscout/internal/graph"
)

// NoOp discards every record. Useful for dry runs where pages are fetched
// and parsed but nothing is persisted.
type NoOp struct{}

// PutProfile does nothing.
func (NoOp) PutProfile(context.Context, graph.ProfileRecord) error { return nil }

// GetProfile always reports not found.
func (NoOp) GetProfile(context.Context, string) (graph.ProfileRecord, bool, error) {
	return graph.ProfileRecord{}, false, nil
}

// PutEdge does nothing.
func (NoOp) PutEdge(context.Context, graph.FriendshipEdge) error { return nil }

// PutFriends does nothing.
func (NoOp) PutFriends(context.Context, string, []graph.Friend) error { return nil }

// PutPosts does nothing.
func (NoOp) PutPosts(context.Context, string, []graph.PostRecord) error { return nil }

// PutRunSummary does nothing.
func (NoOp) PutRunSummary(context.Context, graph.TraversalSummary, []graph.ProfileRecord) error {
	return nil
}

// Close does nothing.
func (NoOp) Close() error { return nil }
