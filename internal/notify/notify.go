// Package notify publishes run-completion notifications so downstream
// consumers (graph analytics, alerting) learn about finished traversals
// without polling the record store.
package notify

import (
	"context"

	"github.com/graphscout/graphscout/internal/graph"
)

// Notifier announces finished traversal runs.
type Notifier interface {
	// RunFinished publishes the summary of a completed, exhausted, or
	// aborted run.
	RunFinished(ctx context.Context, summary graph.TraversalSummary) error

	// Close cleans up any client connections.
	Close() error
}

// NoOpNotifier swallows every notification. Used when no broker is
// configured.
type NoOpNotifier struct{}

// RunFinished for NoOpNotifier does nothing and always returns nil.
func (NoOpNotifier) RunFinished(_ context.Context, _ graph.TraversalSummary) error { return nil }

// Close for NoOpNotifier does nothing and always returns nil.
func (NoOpNotifier) Close() error { return nil }
