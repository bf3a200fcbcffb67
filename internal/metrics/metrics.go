// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"finanzas/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finanzas_ledger_operations_total",
		Help: "Ledger operations processed, labeled by operation and outcome",
	}, []string{"operation", "outcome"})

	ledgerOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finanzas_ledger_operation_duration_seconds",
		Help:    "Latency distribution of ledger operations",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"operation"})

	partialFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finanzas_ledger_partial_failures_total",
		Help: "Multi-step ledger writes that stopped after the record write",
	}, []string{"operation", "failed_step"})

	balanceDriftTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finanzas_ledger_balance_drift_total",
		Help: "Reconciliations that found a stored balance out of line with its transactions",
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finanzas_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finanzas_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"})

	workerEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finanzas_worker_events_total",
		Help: "Ledger events handled by the sheets worker",
	}, []string{"type", "outcome"})
)

// Outcome classifies err into a short metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrPartialFailure):
		return "partial_failure"
	case errors.Is(err, core.ErrValidation):
		return "validation"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrInsufficientFunds):
		return "insufficient_funds"
	default:
		return "error"
	}
}

// ObserveLedgerOp records one ledger operation that started at start.
func ObserveLedgerOp(op string, start time.Time, err error) {
	ledgerOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	ledgerOpsTotal.WithLabelValues(op, Outcome(err)).Inc()

	var pfe *core.PartialFailureError
	if errors.As(err, &pfe) {
		partialFailuresTotal.WithLabelValues(op, string(pfe.Failed)).Inc()
	}
}

// BalanceDrift counts one reconciliation that found drift.
func BalanceDrift() {
	balanceDriftTotal.Inc()
}

// ObserveHTTP records one HTTP request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// WorkerEvent counts one event handled by the sheets worker.
func WorkerEvent(eventType string, err error) {
	workerEventsTotal.WithLabelValues(eventType, Outcome(err)).Inc()
}
