// Package api exposes the read-only HTTP status interface for the collector.
package api

import (
	"context"
	"sync"
	"time"

	"github.com/graphscout/graphscout/internal/progress"
)

const defaultTrackedRuns = 100

// RunView is the JSON shape served for one traversal run.
type RunView struct {
	RunID           string     `json:"run_id"`
	SeedID          string     `json:"seed_id,omitempty"`
	Status          string     `json:"status"`
	ProfilesVisited int64      `json:"profiles_visited"`
	FrontierPending int64      `json:"frontier_pending"`
	EdgesCollected  int64      `json:"edges_collected"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Note            string     `json:"note,omitempty"`
}

// RunTracker is a progress.Sink that materializes the event stream into
// per-run views for the status API. It keeps a bounded window of recent runs
// and drops the oldest beyond that.
type RunTracker struct {
	mu    sync.RWMutex
	runs  map[string]*RunView
	order []string
	max   int
}

// NewRunTracker builds a tracker retaining up to max runs (default 100).
func NewRunTracker(max int) *RunTracker {
	if max <= 0 {
		max = defaultTrackedRuns
	}
	return &RunTracker{
		runs: make(map[string]*RunView),
		max:  max,
	}
}

// Consume folds a batch of progress events into the run views.
func (t *RunTracker) Consume(_ context.Context, batch []progress.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, evt := range batch {
		t.apply(evt)
	}
	return nil
}

// Close satisfies progress.Sink.
func (t *RunTracker) Close(context.Context) error { return nil }

func (t *RunTracker) apply(evt progress.Event) {
	id := evt.RunUUID().String()
	switch evt.Stage {
	case progress.StageRunStart:
		t.insert(&RunView{
			RunID:     id,
			SeedID:    evt.ProfileID,
			Status:    "running",
			StartedAt: evt.TS,
		})
	case progress.StageNodeVisited:
		view, ok := t.runs[id]
		if !ok {
			return
		}
		view.ProfilesVisited = evt.Visited
		view.FrontierPending = evt.Pending
		view.EdgesCollected += evt.Edges
	case progress.StageRunDone, progress.StageRunError:
		view, ok := t.runs[id]
		if !ok {
			view = &RunView{RunID: id, StartedAt: evt.TS.Add(-evt.Dur)}
			t.insert(view)
		}
		view.Status = evt.Outcome
		if view.Status == "" {
			view.Status = "error"
		}
		view.ProfilesVisited = evt.Visited
		view.FrontierPending = evt.Pending
		finished := evt.TS
		view.FinishedAt = &finished
		view.Note = evt.Note
	}
}

func (t *RunTracker) insert(view *RunView) {
	if _, exists := t.runs[view.RunID]; !exists {
		t.order = append(t.order, view.RunID)
	}
	t.runs[view.RunID] = view
	for len(t.order) > t.max {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.runs, oldest)
	}
}

// List returns tracked runs, newest first.
func (t *RunTracker) List() []RunView {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]RunView, 0, len(t.order))
	for i := len(t.order) - 1; i >= 0; i-- {
		out = append(out, *t.runs[t.order[i]])
	}
	return out
}

// Get returns the view for one run id.
func (t *RunTracker) Get(runID string) (RunView, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	view, ok := t.runs[runID]
	if !ok {
		return RunView{}, false
	}
	return *view, true
}
