// Package metrics provides Prometheus metrics for TaskEval: counters and
// histograms for evaluations, payment intents, and unlock reconciliation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Evaluations ────────────────────────────────────────────────────────────

// EvaluationLatency tracks end-to-end evaluation duration in seconds.
var EvaluationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "taskeval",
	Name:      "evaluation_latency_seconds",
	Help:      "Evaluation duration from engine call to persisted result.",
	Buckets:   prometheus.DefBuckets,
}, []string{"language"})

// EvaluationsCompleted tracks successfully persisted evaluations.
var EvaluationsCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskeval",
	Name:      "evaluations_completed_total",
	Help:      "Total evaluations completed and persisted.",
})

// EvaluationsFailed tracks failed evaluation runs by reason.
var EvaluationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskeval",
	Name:      "evaluations_failed_total",
	Help:      "Total failed evaluation runs.",
}, []string{"reason"})

// ─── Payments ───────────────────────────────────────────────────────────────

// IntentsCreated tracks new payment intents opened with the processor.
var IntentsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskeval",
	Name:      "payment_intents_created_total",
	Help:      "Total payment intents created.",
})

// IntentsReused tracks double-submits answered with an existing intent.
var IntentsReused = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskeval",
	Name:      "payment_intents_reused_total",
	Help:      "Total checkout requests served by reusing a pending intent.",
})

// WebhookEvents tracks verified processor events by outcome.
var WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskeval",
	Name:      "webhook_events_total",
	Help:      "Total verified webhook events.",
}, []string{"type"})

// UnlocksApplied tracks evaluation unlocks by the path that won the race.
var UnlocksApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskeval",
	Name:      "unlocks_applied_total",
	Help:      "Total evaluations flipped to paid.",
}, []string{"path"})

// PremiumGrants tracks pull-path premium upgrades.
var PremiumGrants = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskeval",
	Name:      "premium_grants_total",
	Help:      "Total profiles upgraded to premium after a paid unlock.",
})
