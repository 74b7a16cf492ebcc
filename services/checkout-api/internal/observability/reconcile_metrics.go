package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReconcileOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout_reconciler",
			Name:      "reconcile_outcomes_total",
			Help:      "Payment return callbacks by reconciliation outcome",
		},
		[]string{"outcome"},
	)

	ReconcileLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "checkout_reconciler",
			Name:      "reconcile_duration_seconds",
			Help:      "Time spent reconciling one payment return",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	StatusCheckAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout_reconciler",
			Name:      "status_check_attempts_total",
			Help:      "Provider status check attempts by result",
		},
		[]string{"result"},
	)

	LeaseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "checkout_reconciler",
			Name:      "lease_failures_total",
			Help:      "Reconciliations that proceeded without the per-order lease",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout_reconciler",
			Name:      "events_published_total",
			Help:      "payment.confirmed events handed to the broker by result",
		},
		[]string{"result"},
	)
)
