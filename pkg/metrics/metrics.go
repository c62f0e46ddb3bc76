// Package metrics provides Prometheus metrics for the tutorlink service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReconciliationsTotal tracks reconciliation runs by status
	ReconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutorlink",
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Total number of feed reconciliation runs by status",
		},
		[]string{"status"},
	)

	// ReconciliationDuration tracks reconciliation duration in seconds
	ReconciliationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tutorlink",
			Subsystem: "reconcile",
			Name:      "run_duration_seconds",
			Help:      "Duration of feed reconciliation runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// SessionsReconciled tracks sessions touched per run by outcome
	SessionsReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutorlink",
			Subsystem: "reconcile",
			Name:      "sessions_total",
			Help:      "Total number of sessions per reconciliation outcome",
		},
		[]string{"outcome"},
	)

	// RegistrationsTotal tracks lecturer registration attempts by operation and status
	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutorlink",
			Subsystem: "assignment",
			Name:      "registrations_total",
			Help:      "Total number of lecturer registration attempts by operation and status",
		},
		[]string{"operation", "status"},
	)
)

// ObserveReconciliation records the outcome counts of one run.
func ObserveReconciliation(newCount, modified, notChanged, deleted int) {
	SessionsReconciled.WithLabelValues("new").Add(float64(newCount))
	SessionsReconciled.WithLabelValues("modified").Add(float64(modified))
	SessionsReconciled.WithLabelValues("not_changed").Add(float64(notChanged))
	SessionsReconciled.WithLabelValues("deleted").Add(float64(deleted))
}
