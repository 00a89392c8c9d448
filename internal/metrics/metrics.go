// Package metrics exposes the orchestrator's Prometheus instrumentation:
// one outcome counter and one per-stage latency histogram, registered at
// package init via promauto so any importer gets working metrics for
// free, the same pattern used for the prefilter's metrics in the rest
// of the retrieved corpus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OutcomesTotal counts terminal Invoke outcomes by status (ok,
	// refuse, ambiguous).
	OutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docqa",
		Name:      "outcomes_total",
		Help:      "Total Invoke outcomes by status",
	}, []string{"status"})

	// StageDuration times each named pipeline stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "docqa",
		Name:      "stage_duration_seconds",
		Help:      "Duration of each retrieval pipeline stage",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"stage"})
)

// ObserveStage times fn under the named stage and records its duration
// regardless of whether fn returns an error.
func ObserveStage(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return err
}
