// Package progress defines the event stream emitted by a traversal run and
// the hub that fans events out to sinks without blocking the traversal loop.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart    Stage = "RUN_START"
	StageNodeVisited Stage = "NODE_VISITED"
	StageRunDone     Stage = "RUN_DONE"
	StageRunError    Stage = "RUN_ERROR"
)

// Event captures a single milestone of traversal progress.
type Event struct {
	// RunID uniquely identifies a traversal run in 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// ProfileID scopes node events to a canonical profile id.
	ProfileID string
	// Depth is the BFS depth of the node for node events.
	Depth int
	// Outcome carries the node's fetch outcome (ok, restricted, ...).
	Outcome string
	// Edges is the number of edges persisted for this node.
	Edges int64
	// Visited is the cumulative visited count at emission time.
	Visited int64
	// Pending is the frontier queue length at emission time.
	Pending int64
	// Dur captures node processing or whole-run latency.
	Dur time.Duration
	// Note lets emitters attach low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
	case StageNodeVisited:
		if e.ProfileID == "" {
			return errors.New("node event requires profile id")
		}
		if e.Outcome == "" {
			return errors.New("node event requires outcome")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID back to a uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
