// Package metrics exposes Prometheus collectors for the escrow ledger and its transports.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	moved      *prometheus.CounterVec
	fees       prometheus.Counter
	custody    prometheus.Gauge
	rejected   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg skips registration,
// which keeps tests independent of the global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escrow",
			Name:      "operations_total",
			Help:      "Escrow ledger operations by name and result code.",
		}, []string{"operation", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "escrow",
			Name:      "operation_duration_seconds",
			Help:      "Latency of escrow ledger operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		moved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escrow",
			Name:      "funds_moved_total",
			Help:      "Minor units moved by the ledger, by entry type.",
		}, []string{"type"}),
		fees: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "escrow",
			Name:      "platform_fees_total",
			Help:      "Minor units accrued to the platform fee pool.",
		}),
		custody: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "escrow",
			Name:      "custody_balance",
			Help:      "Total funds held in escrow custody at the last audit.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escrow",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-caller rate limiter.",
		}, []string{"method"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.duration, m.moved, m.fees, m.custody, m.rejected)
	}
	return m
}

// ObserveOperation records one ledger operation. code is empty on success.
func (m *Metrics) ObserveOperation(op, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if code == "" {
		code = "OK"
	}
	m.operations.WithLabelValues(op, code).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) AddMoved(entryType string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.moved.WithLabelValues(entryType).Add(float64(amount))
}

func (m *Metrics) AddFees(amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.fees.Add(float64(amount))
}

func (m *Metrics) SetCustody(total int64) {
	if m == nil {
		return
	}
	m.custody.Set(float64(total))
}

func (m *Metrics) RateLimited(method string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(method).Inc()
}
