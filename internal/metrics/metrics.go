// Package metrics exposes Prometheus collectors for the settlement
// engine. Collectors are registered on the default registry; the server
// serves them via promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecomputeTotal counts settlement recomputations by trigger
	// (created, edited, deleted, view).
	RecomputeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evenly",
		Name:      "recompute_total",
		Help:      "Settlement recomputations by trigger.",
	}, []string{"trigger"})

	// RecomputeErrors counts recomputations rejected by validation or
	// invariant checks.
	RecomputeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evenly",
		Name:      "recompute_errors_total",
		Help:      "Failed settlement recomputations by trigger.",
	}, []string{"trigger"})

	// RecomputeDuration observes how long a full ledger+planner pass
	// takes for one group.
	RecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "evenly",
		Name:      "recompute_duration_seconds",
		Help:      "Duration of a full balance and plan recomputation.",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
	})

	// PlanTransfers observes the number of transfers per computed plan.
	PlanTransfers = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "evenly",
		Name:      "plan_transfers",
		Help:      "Transfers per computed settlement plan.",
		Buckets:   prometheus.LinearBuckets(0, 1, 12),
	})
)
