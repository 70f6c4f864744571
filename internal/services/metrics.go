package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cascadeRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "social",
		Name:      "cascade_runs_total",
		Help:      "Cascade deletions by entity kind.",
	}, []string{"entity"})

	cascadeStepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "social",
		Name:      "cascade_step_failures_total",
		Help:      "Cleanup steps that failed after the primary delete succeeded.",
	}, []string{"entity", "step"})

	feedDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "social",
		Name:      "feed_duration_seconds",
		Help:      "Time spent assembling a feed page.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"scope"})

	reactionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "social",
		Name:      "reaction_conflicts_total",
		Help:      "Reaction toggles rejected because the document changed concurrently.",
	})

	storiesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "social",
		Name:      "stories_swept_total",
		Help:      "Expired stories removed by the sweep.",
	})

	countersReconciled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "social",
		Name:      "counters_reconciled_total",
		Help:      "Community counters corrected by reconciliation.",
	}, []string{"counter"})
)
