package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersRegisterAndIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Operation("withdraw", "success")
	m.Operation("withdraw", "success")
	m.PartialFailure()
	m.ObserveAppend(time.Now())

	if got := testutil.ToFloat64(m.operations.WithLabelValues("withdraw", "success")); got != 2 {
		t.Fatalf("operations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.partialFailures); got != 1 {
		t.Fatalf("partial failures = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Operation("deposit", "success")
	m.OTP("challenge", "sent")
	m.PartialFailure()
	m.ObserveAppend(time.Now())
}
