// Package frontier implements the BFS queue and visitation state for a
// traversal run: a strict FIFO of discovered-but-unprocessed profiles, the
// visited set, and the run state machine.
package frontier

import (
	"errors"
	"fmt"
)

// State is the lifecycle state of a traversal run.
type State string

const (
	StateIdle            State = "IDLE"
	StateRunning         State = "RUNNING"
	StateCompleted       State = "COMPLETED"
	StateBudgetExhausted State = "BUDGET_EXHAUSTED"
	StateAborted         State = "ABORTED"
)

// Entry is a discovered profile awaiting processing. Depth is the number of
// friendship hops from the seed.
type Entry struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Depth int    `json:"depth"`
}

// ErrEmpty is returned by Dequeue when no entries are pending.
var ErrEmpty = errors.New("frontier empty")

// Frontier holds the pending queue and visited set for a single traversal
// run. It is not safe for concurrent use; the traversal loop is
// single-threaded by design (one browser session, one fetch in flight).
type Frontier struct {
	state   State
	queue   []Entry
	pending map[string]struct{}
	visited map[string]struct{}
}

// New returns an idle Frontier with empty queue and visited set.
func New() *Frontier {
	return &Frontier{
		state:   StateIdle,
		pending: make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
}

// Start resets all traversal state and moves the frontier to RUNNING.
// Visited state never survives across runs.
func (f *Frontier) Start() {
	f.state = StateRunning
	f.queue = f.queue[:0]
	f.pending = make(map[string]struct{})
	f.visited = make(map[string]struct{})
}

// Enqueue appends an entry to the back of the queue, preserving discovery
// order. It is a no-op if the id was already visited or is already pending:
// an id appears in the queue at most once before being dequeued.
func (f *Frontier) Enqueue(id, url string, depth int) bool {
	if id == "" {
		return false
	}
	if _, ok := f.visited[id]; ok {
		return false
	}
	if _, ok := f.pending[id]; ok {
		return false
	}
	f.pending[id] = struct{}{}
	f.queue = append(f.queue, Entry{ID: id, URL: url, Depth: depth})
	return true
}

// Dequeue pops the front entry. The caller must MarkVisited the entry before
// enqueueing any of its children, otherwise mutual friends would requeue
// each other.
func (f *Frontier) Dequeue() (Entry, error) {
	if len(f.queue) == 0 {
		return Entry{}, ErrEmpty
	}
	entry := f.queue[0]
	f.queue = f.queue[1:]
	delete(f.pending, entry.ID)
	return entry, nil
}

// MarkVisited records that the id has been dequeued and processed. Visited
// ids are never re-enqueued within the run.
func (f *Frontier) MarkVisited(id string) {
	f.visited[id] = struct{}{}
}

// Visited reports whether the id has been processed this run.
func (f *Frontier) Visited(id string) bool {
	_, ok := f.visited[id]
	return ok
}

// VisitedCount returns the number of profiles processed this run.
func (f *Frontier) VisitedCount() int {
	return len(f.visited)
}

// PendingCount returns the number of queued, unprocessed entries.
func (f *Frontier) PendingCount() int {
	return len(f.queue)
}

// Exhausted reports whether the traversal should stop: the queue is empty or
// the visited count has reached the profile budget.
func (f *Frontier) Exhausted(maxProfiles int) bool {
	if len(f.queue) == 0 {
		return true
	}
	return maxProfiles > 0 && len(f.visited) >= maxProfiles
}

// Finish transitions the frontier out of RUNNING into the given terminal
// state. Only terminal states are accepted.
func (f *Frontier) Finish(terminal State) error {
	switch terminal {
	case StateCompleted, StateBudgetExhausted, StateAborted:
		f.state = terminal
		return nil
	default:
		return fmt.Errorf("not a terminal frontier state: %s", terminal)
	}
}

// State returns the current run state.
func (f *Frontier) State() State {
	return f.state
}

// Snapshot copies the pending queue for checkpointing.
func (f *Frontier) Snapshot() []Entry {
	out := make([]Entry, len(f.queue))
	copy(out, f.queue)
	return out
}
