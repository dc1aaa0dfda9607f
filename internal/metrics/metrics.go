// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "payout_invoice"

var (
	ValidationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_runs_total",
		Help:      "Validation runs by outcome (valid, invalid).",
	}, []string{"status"})

	ValidationIssues = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_issues_total",
		Help:      "Validation issues found, by kind and severity.",
	}, []string{"kind", "severity"})

	DocumentsRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_rendered_total",
		Help:      "Invoice renders by result (success, failure, timeout).",
	}, []string{"result"})

	RenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "render_duration_seconds",
		Help:      "Time spent rendering one invoice document.",
		Buckets:   prometheus.DefBuckets,
	})

	ReconciliationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconciliation_runs_total",
		Help:      "Reconciliation runs by mode.",
	}, []string{"mode"})

	PendingRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_runs",
		Help:      "Validated runs held in the in-memory run store.",
	})
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultTimeout = "timeout"
)
