// Package metrics expõe os contadores do engine para o Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "secure_ledger"

// Metrics é seguro para uso com receiver nil (testes sem registry).
type Metrics struct {
	operations      *prometheus.CounterVec
	otp             *prometheus.CounterVec
	partialFailures prometheus.Counter
	ledgerAppend    prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Balance operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		otp: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_events_total",
			Help:      "OTP challenge issuance and validation outcomes.",
		}, []string{"event", "outcome"}),
		partialFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_failures_total",
			Help:      "Balance mutations applied without a ledger record. Requires reconciliation.",
		}),
		ledgerAppend: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_append_seconds",
			Help:      "Latency of sealing and appending a transaction record.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.otp, m.partialFailures, m.ledgerAppend)
	}
	return m
}

func (m *Metrics) Operation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) OTP(event, outcome string) {
	if m == nil {
		return
	}
	m.otp.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) PartialFailure() {
	if m == nil {
		return
	}
	m.partialFailures.Inc()
}

func (m *Metrics) ObserveAppend(started time.Time) {
	if m == nil {
		return
	}
	m.ledgerAppend.Observe(time.Since(started).Seconds())
}
