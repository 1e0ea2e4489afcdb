// Package metrics holds the Prometheus metrics of the bank service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes of an operation.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds all Prometheus metrics for the bank. A nil *Metrics
// records nothing.
type Metrics struct {
	// Registry owns these metrics and backs the /metrics endpoint.
	Registry *prometheus.Registry

	operations *prometheus.CounterVec
	rejections *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New creates a private registry and registers the metrics in it, so
// calling New more than once (tests) does not panic on duplicates.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_operations_total",
				Help: "Total operations by name and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_rejections_total",
				Help: "Total rejected deposits and withdrawals by reason.",
			},
			[]string{"reason"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bank_operation_duration_seconds",
				Help:    "Duration of operations by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// Observe records one operation. reason is only used when the outcome is
// OutcomeRejected.
func (m *Metrics) Observe(operation, outcome, reason string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(d.Seconds())
	if outcome == OutcomeRejected {
		m.rejections.WithLabelValues(reason).Inc()
	}
}
