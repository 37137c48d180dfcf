// Package checkpoint periodically persists traversal metadata so a crashed
// run leaves an auditable trail. Checkpoints describe progress; they are not
// used to resume a run.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/graphscout/graphscout/internal/frontier"
	"github.com/graphscout/graphscout/internal/metrics"
)

// Snapshot is the on-disk checkpoint format.
type Snapshot struct {
	RunID        string           `json:"run_id"`
	SeedID       string           `json:"seed_profile_id"`
	VisitedCount int              `json:"visited_count"`
	EdgeCount    int              `json:"edge_count"`
	Frontier     []frontier.Entry `json:"frontier"`
	WrittenAt    time.Time        `json:"written_at"`
}

// Writer flushes traversal snapshots to a per-seed JSON file every Interval
// processed nodes. Writes are temp-then-rename so a crash mid-write never
// corrupts the previous checkpoint.
type Writer struct {
	dir       string
	interval  int
	logger    *zap.Logger
	sinceLast int
}

// NewWriter creates a Writer storing checkpoints under dir. interval is the
// number of processed nodes between flushes; values below 1 mean every node.
func NewWriter(dir string, interval int, logger *zap.Logger) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("checkpoint dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	if interval < 1 {
		interval = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dir: dir, interval: interval, logger: logger}, nil
}

// MaybeFlush writes a checkpoint if enough nodes have been processed since
// the last flush. Persistence failures are logged, never fatal.
func (w *Writer) MaybeFlush(snap Snapshot) {
	w.sinceLast++
	if w.sinceLast < w.interval {
		return
	}
	w.Flush(snap)
}

// Flush writes a checkpoint unconditionally and resets the node counter.
func (w *Writer) Flush(snap Snapshot) {
	w.sinceLast = 0
	snap.WrittenAt = time.Now().UTC()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		w.logger.Warn("marshal checkpoint failed", zap.Error(err))
		return
	}

	path := filepath.Join(w.dir, fmt.Sprintf("checkpoint_%s.json", snap.SeedID))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		w.logger.Warn("write checkpoint failed", zap.String("path", tmp), zap.Error(err))
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		w.logger.Warn("rename checkpoint failed", zap.String("path", path), zap.Error(err))
		return
	}
	metrics.ObserveCheckpointWrite()
	w.logger.Debug("checkpoint written",
		zap.String("seed", snap.SeedID),
		zap.Int("visited", snap.VisitedCount),
		zap.Int("pending", len(snap.Frontier)),
	)
}

// Load reads a checkpoint back for inspection.
func Load(dir, seedID string) (Snapshot, error) {
	path := filepath.Join(dir, fmt.Sprintf("checkpoint_%s.json", seedID))
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read checkpoint: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode checkpoint: %w", err)
	}
	return snap, nil
}
