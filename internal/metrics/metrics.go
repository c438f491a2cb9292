// Package metrics defines the Prometheus instruments for row store
// operations. Instruments are registered once with the default registry.
//
// All metric operations are safe for concurrent use.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rowgrid"

// Operation outcomes used as the status label.
const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

var (
	// OperationsTotal counts store operations by name and outcome.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Row store operations by operation and status.",
	}, []string{"op", "status"})

	// OperationDuration measures store operation latency.
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Row store operation latency.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"op"})

	// RowsMutatedTotal counts rows touched by mutations.
	RowsMutatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "rows_mutated_total",
		Help:      "Rows added, updated or removed, by operation.",
	}, []string{"op"})

	// FilterRebuildsTotal counts filtered-view builds by strategy.
	FilterRebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "filter",
		Name:      "rebuilds_total",
		Help:      "Filtered view rebuilds by strategy (sequential, parallel).",
	}, []string{"strategy"})

	// FilterRebuildDuration measures filtered-view build time.
	FilterRebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "filter",
		Name:      "rebuild_duration_seconds",
		Help:      "Filtered view build latency.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	// SearchRegexFallbackTotal counts regex searches that fell back to
	// literal matching.
	SearchRegexFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "search",
		Name:      "regex_fallback_total",
		Help:      "Regex searches that fell back to literal substring matching.",
	})

	// NotificationsTotal counts change descriptors by mode and outcome.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notify",
		Name:      "notifications_total",
		Help:      "Change notifications by operation mode and outcome (forwarded, suppressed, failed).",
	}, []string{"mode", "outcome"})

	// SmartOperationFailuresTotal counts best-effort invariant fixups that
	// failed.
	SmartOperationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "smartops",
		Name:      "failures_total",
		Help:      "Smart operation failures by operation.",
	}, []string{"op"})
)

// Status maps an operation error to a status label.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCancelled
	default:
		return StatusError
	}
}

// ObserveOperation records the count and latency of one operation.
//
//	start := time.Now()
//	defer func() { metrics.ObserveOperation("add_rows", start, err) }()
func ObserveOperation(op string, start time.Time, err error) {
	OperationsTotal.WithLabelValues(op, Status(err)).Inc()
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// AddRows records n rows touched by op.
func AddRows(op string, n int) {
	if n > 0 {
		RowsMutatedTotal.WithLabelValues(op).Add(float64(n))
	}
}
