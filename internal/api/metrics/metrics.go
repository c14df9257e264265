// Package metrics defines and registers the custom Prometheus metrics of the
// time tracker. It is the single source of truth for metric names, labels and
// help strings.
//
// Metrics are registered with the default registry on package init through
// promauto, so they are exposed by the /metrics endpoint without further setup.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tracker"

// ── Entry metrics ─────────────────────────────────────────────────────────────

// EntriesStartedTotal counts entries opened by start.
// Label:
//   - category: the configured category the entry records (e.g. "Python")
var EntriesStartedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entries_started_total",
		Help:      "Total number of time entries started, by category.",
	},
	[]string{"category"},
)

// EntriesStoppedTotal counts entries closed, either by stop or by an implicit
// stop during a switch.
var EntriesStoppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entries_stopped_total",
		Help:      "Total number of time entries closed, by category.",
	},
	[]string{"category"},
)

// EntryDurationSeconds observes the duration of every closed entry.
var EntryDurationSeconds = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "entry_duration_seconds",
		Help:      "Duration of closed time entries.",
		Buckets:   prometheus.ExponentialBuckets(60, 2, 10), // 1m … ~8.5h
	},
	[]string{"category"},
)

// ── Engine metrics ────────────────────────────────────────────────────────────

// IdempotentReplaysTotal counts start requests answered from the idempotency store.
var IdempotentReplaysTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotent_replays_total",
		Help:      "Total number of start requests replayed from an earlier Idempotency-Key.",
	},
)

// TrackingErrorsTotal counts failed tracking requests.
// Label:
//   - reason: "invalid_category", "store_unavailable", "conflict" or "internal"
var TrackingErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Total number of tracking requests that failed, by reason.",
	},
	[]string{"reason"},
)

// LockWaitSeconds measures how long start/stop waited for the per-user lock.
// Label:
//   - result: "acquired" or "failed"
var LockWaitSeconds = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "user_lock_wait_seconds",
		Help:      "Time spent waiting for the per-user lock.",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
	},
	[]string{"result"},
)
