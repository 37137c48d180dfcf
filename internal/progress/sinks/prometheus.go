package sinks

import (
	"context"

	"github.com/graphscout/graphscout/internal/metrics"
	"github.com/graphscout/graphscout/internal/progress"
)

// PrometheusSink forwards traversal progress into the shared Prometheus
// collectors. Registration happens once via metrics.Init.
type PrometheusSink struct{}

// NewPrometheusSink initializes the collectors and returns the sink.
func NewPrometheusSink() *PrometheusSink {
	metrics.Init()
	return &PrometheusSink{}
}

// Consume translates each event into collector updates.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageNodeVisited:
			metrics.ObserveProfileVisit(evt.Outcome)
			metrics.ObserveEdges(int(evt.Edges))
			metrics.SetFrontierPending(int(evt.Pending))
		case progress.StageRunDone:
			metrics.ObserveRun(evt.Outcome)
			metrics.SetFrontierPending(int(evt.Pending))
		case progress.StageRunError:
			metrics.ObserveRun(evt.Outcome)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
