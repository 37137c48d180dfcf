// Package metrics exposes Prometheus collectors for the collector service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	profilesVisitedTotal  *prometheus.CounterVec
	edgesCollectedTotal   prometheus.Counter
	fetchFailuresTotal    *prometheus.CounterVec
	restrictedPagesTotal  prometheus.Counter
	stallStopsTotal       prometheus.Counter
	frontierPending       prometheus.Gauge
	traversalRunsTotal    *prometheus.CounterVec
	fetchDurationSeconds  *prometheus.HistogramVec
	checkpointWritesTotal prometheus.Counter

	once sync.Once
)

// Init registers the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		profilesVisitedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphscout_profiles_visited_total",
				Help: "Profiles processed during traversal, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		edgesCollectedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "graphscout_edges_collected_total",
				Help: "Friendship edges persisted.",
			},
		)

		fetchFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphscout_fetch_failures_total",
				Help: "Page fetch failures, labeled by page kind.",
			},
			[]string{"page"},
		)

		restrictedPagesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "graphscout_restricted_pages_total",
				Help: "Pages whose content was access-restricted.",
			},
		)

		stallStopsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "graphscout_pagination_stall_stops_total",
				Help: "Friend pagination loops terminated by stall detection.",
			},
		)

		frontierPending = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "graphscout_frontier_pending",
				Help: "Entries currently queued in the traversal frontier.",
			},
		)

		traversalRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphscout_traversal_runs_total",
				Help: "Completed traversal runs, labeled by terminal status.",
			},
			[]string{"status"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "graphscout_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by page kind.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45},
			},
			[]string{"page"},
		)

		checkpointWritesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "graphscout_checkpoint_writes_total",
				Help: "Traversal checkpoints flushed to disk.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveProfileVisit increments the visit counter for the given outcome.
func ObserveProfileVisit(outcome string) {
	profilesVisitedTotal.WithLabelValues(outcome).Inc()
}

// ObserveEdges adds to the collected-edge counter.
func ObserveEdges(n int) {
	if n > 0 {
		edgesCollectedTotal.Add(float64(n))
	}
}

// ObserveFetchFailure increments the failure counter for a page kind.
func ObserveFetchFailure(page string) {
	fetchFailuresTotal.WithLabelValues(page).Inc()
}

// ObserveRestricted increments the restricted-page counter.
func ObserveRestricted() {
	restrictedPagesTotal.Inc()
}

// ObserveStallStop increments the stall-detection counter.
func ObserveStallStop() {
	stallStopsTotal.Inc()
}

// SetFrontierPending records the current frontier queue length.
func SetFrontierPending(n int) {
	frontierPending.Set(float64(n))
}

// ObserveRun increments the run counter for the given terminal status.
func ObserveRun(status string) {
	traversalRunsTotal.WithLabelValues(status).Inc()
}

// ObserveFetchDuration records the latency of a page fetch.
func ObserveFetchDuration(page string, d time.Duration) {
	fetchDurationSeconds.WithLabelValues(page).Observe(d.Seconds())
}

// ObserveCheckpointWrite increments the checkpoint counter.
func ObserveCheckpointWrite() {
	checkpointWritesTotal.Inc()
}
