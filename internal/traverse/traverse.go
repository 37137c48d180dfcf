package traverse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/graphscout/graphscout/internal/checkpoint"
	"github.com/graphscout/graphscout/internal/frontier"
	"github.com/graphscout/graphscout/internal/graph"
	"github.com/graphscout/graphscout/internal/identity"
	"github.com/graphscout/graphscout/internal/metrics"
	"github.com/graphscout/graphscout/internal/progress"
)

// Traverse runs a bounded breadth-first traversal of the friend graph from
// the seed reference. The run ends when the frontier drains, the profile
// budget is hit, or the fetch session is lost; the summary reflects whatever
// was collected up to that point and is persisted either way.
func (e *Engine) Traverse(ctx context.Context, raw string) (graph.TraversalSummary, error) {
	seed, err := identity.Normalize(raw)
	if err != nil {
		return graph.TraversalSummary{}, err
	}

	runID := uuid.New()
	summary := graph.TraversalSummary{
		RunID:     runID.String(),
		SeedID:    seed.ID,
		StartedAt: time.Now().UTC(),
	}

	e.frontier.Start()
	e.cache.Reset()
	e.frontier.Enqueue(seed.ID, seed.URL, 0)

	e.emit(progress.Event{
		RunID:     progress.UUIDToBytes(runID),
		TS:        time.Now().UTC(),
		Stage:     progress.StageRunStart,
		ProfileID: seed.ID,
	})
	e.logger.Info("traversal started",
		zap.String("run_id", summary.RunID),
		zap.String("seed", seed.ID),
		zap.Int("max_depth", e.cfg.MaxDepth),
		zap.Int("max_profiles", e.cfg.MaxProfiles),
	)

	var (
		collected []graph.ProfileRecord
		runErr    error
	)
	terminal := frontier.StateCompleted

	for {
		// Interrupts are honored between nodes even when no limiter is
		// configured to surface the cancellation during pacing.
		if err := ctx.Err(); err != nil {
			terminal = frontier.StateAborted
			runErr = fmt.Errorf("traversal interrupted: %w", err)
			break
		}
		if e.frontier.PendingCount() == 0 {
			terminal = frontier.StateCompleted
			break
		}
		if e.cfg.MaxProfiles > 0 && e.frontier.VisitedCount() >= e.cfg.MaxProfiles {
			terminal = frontier.StateBudgetExhausted
			break
		}

		entry, err := e.frontier.Dequeue()
		if err != nil {
			terminal = frontier.StateCompleted
			break
		}

		rec, stored, err := e.processNode(ctx, runID, entry, &summary)
		if stored {
			collected = append(collected, rec)
		}
		if err != nil {
			terminal = frontier.StateAborted
			runErr = err
			break
		}

		metrics.SetFrontierPending(e.frontier.PendingCount())
		e.maybeCheckpoint(summary)
	}

	if err := e.frontier.Finish(terminal); err != nil {
		e.logger.Warn("frontier finish rejected", zap.Error(err))
	}

	summary.Status = statusFor(terminal)
	summary.FrontierPending = e.frontier.PendingCount()
	summary.FinishedAt = time.Now().UTC()

	e.flushCheckpoint(summary)

	if err := e.store.PutRunSummary(ctx, summary, collected); err != nil {
		e.logger.Error("persist run summary failed", zap.String("run_id", summary.RunID), zap.Error(err))
		if runErr == nil {
			runErr = fmt.Errorf("persist run summary: %w", err)
		}
	}

	stage := progress.StageRunDone
	note := ""
	if runErr != nil {
		stage = progress.StageRunError
		note = runErr.Error()
	}
	e.emit(progress.Event{
		RunID:   progress.UUIDToBytes(runID),
		TS:      time.Now().UTC(),
		Stage:   stage,
		Outcome: string(summary.Status),
		Visited: int64(summary.ProfilesVisited),
		Pending: int64(summary.FrontierPending),
		Dur:     summary.FinishedAt.Sub(summary.StartedAt),
		Note:    note,
	})
	e.logger.Info("traversal finished",
		zap.String("run_id", summary.RunID),
		zap.String("status", string(summary.Status)),
		zap.Int("visited", summary.ProfilesVisited),
		zap.Int("failed", summary.ProfilesFailed),
		zap.Int("edges", summary.EdgesCollected),
		zap.Int("pending", summary.FrontierPending),
	)

	return summary, runErr
}

// processNode fetches one frontier entry, persists what it yields, and
// enqueues its friends when the node is below the depth limit. Only a lost
// session returns an error; per-node failures are absorbed into the summary.
func (e *Engine) processNode(ctx context.Context, runID uuid.UUID, entry frontier.Entry, summary *graph.TraversalSummary) (graph.ProfileRecord, bool, error) {
	start := time.Now()

	if err := e.pace(ctx); err != nil {
		return graph.ProfileRecord{}, false, err
	}

	res, err := e.source.FetchProfile(ctx, entry.URL)
	if err != nil {
		if errors.Is(err, graph.ErrSessionLost) {
			return graph.ProfileRecord{}, false, err
		}
		// Any other fetch error is a transient outcome for this node,
		// whatever result the source returned alongside it.
		res = graph.ProfileResult{Kind: graph.OutcomeTransientError, Err: err}
	}

	e.frontier.MarkVisited(entry.ID)
	summary.ProfilesVisited++
	if entry.Depth > summary.MaxDepthReached {
		summary.MaxDepthReached = entry.Depth
	}

	outcome := res.Kind
	edges := 0
	stored := false

	switch res.Kind {
	case graph.OutcomeOK:
		if err := e.store.PutProfile(ctx, res.Profile); err != nil {
			e.logger.Error("persist profile failed", zap.String("profile_id", entry.ID), zap.Error(err))
			summary.ProfilesFailed++
			outcome = graph.OutcomeTransientError
			break
		}
		stored = true

		// Depth-limit nodes are recorded but not expanded: their
		// friends list is never fetched.
		if entry.Depth < e.cfg.MaxDepth {
			edges, err = e.expandNode(ctx, entry)
			if err != nil {
				return res.Profile, stored, err
			}
			summary.EdgesCollected += edges
		}
	case graph.OutcomeRestricted:
		// The profile exists but is locked; nothing to record or expand.
		e.cache.MarkRestricted(entry.ID)
	default:
		summary.ProfilesFailed++
		e.logger.Warn("node fetch failed",
			zap.String("profile_id", entry.ID),
			zap.String("outcome", outcome.String()),
			zap.Error(res.Err),
		)
	}

	e.emit(progress.Event{
		RunID:     progress.UUIDToBytes(runID),
		TS:        time.Now().UTC(),
		Stage:     progress.StageNodeVisited,
		ProfileID: entry.ID,
		Depth:     entry.Depth,
		Outcome:   outcome.String(),
		Edges:     int64(edges),
		Visited:   int64(summary.ProfilesVisited),
		Pending:   int64(e.frontier.PendingCount()),
		Dur:       time.Since(start),
	})

	return res.Profile, stored, nil
}

// expandNode collects the node's friends, persists their edges, and feeds
// unvisited friends into the frontier.
func (e *Engine) expandNode(ctx context.Context, entry frontier.Entry) (int, error) {
	friends, kind, err := e.collectFriends(ctx, identity.Reference{ID: entry.ID, URL: entry.URL}, e.cfg.MaxFriends)
	if err != nil {
		return 0, err
	}
	if kind != graph.OutcomeOK {
		return 0, nil
	}

	if err := e.store.PutFriends(ctx, entry.ID, friends); err != nil {
		e.logger.Error("persist friend list failed", zap.String("profile_id", entry.ID), zap.Error(err))
	}
	edges, err := e.persistEdges(ctx, entry.ID, friends)
	if err != nil {
		e.logger.Error("persist edges failed", zap.String("profile_id", entry.ID), zap.Error(err))
	}

	for _, friend := range friends {
		e.frontier.Enqueue(friend.ID, friend.ProfileURL, entry.Depth+1)
	}
	return edges, nil
}

func (e *Engine) maybeCheckpoint(summary graph.TraversalSummary) {
	if e.ckpt == nil {
		return
	}
	e.ckpt.MaybeFlush(e.snapshot(summary))
}

func (e *Engine) flushCheckpoint(summary graph.TraversalSummary) {
	if e.ckpt == nil {
		return
	}
	e.ckpt.Flush(e.snapshot(summary))
}

func (e *Engine) snapshot(summary graph.TraversalSummary) checkpoint.Snapshot {
	return checkpoint.Snapshot{
		RunID:        summary.RunID,
		SeedID:       summary.SeedID,
		VisitedCount: summary.ProfilesVisited,
		EdgeCount:    summary.EdgesCollected,
		Frontier:     e.frontier.Snapshot(),
	}
}

func (e *Engine) emit(evt progress.Event) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func statusFor(state frontier.State) graph.RunStatus {
	switch state {
	case frontier.StateBudgetExhausted:
		return graph.RunBudgetExhausted
	case frontier.StateAborted:
		return graph.RunAborted
	default:
		return graph.RunCompleted
	}
}
