package xmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gaugeValue(t *testing.T, g *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.WithLabelValues(labels...).Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.WithLabelValues(labels...).Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRecordEnqueuedAndDrained(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordEnqueued("Item", false)
	m.RecordEnqueued("Item", false)
	m.RecordEnqueued("Item", true)

	if got := gaugeValue(t, m.QueueDepth, "Item", "updates"); got != 2 {
		t.Fatalf("want 2 pending updates, got %v", got)
	}
	if got := gaugeValue(t, m.QueueDepth, "Item", "removes"); got != 1 {
		t.Fatalf("want 1 pending remove, got %v", got)
	}

	m.RecordDrained("Item")
	if got := gaugeValue(t, m.QueueDepth, "Item", "updates"); got != 0 {
		t.Fatalf("want 0 after drain, got %v", got)
	}
}

func TestFrameSentAndTransportError(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.FrameSent("Item")
	m.FrameSent("Item")
	m.TransportError("Item")

	if got := counterValue(t, m.FramesSent, "Item"); got != 2 {
		t.Fatalf("want 2 frames sent, got %v", got)
	}
	if got := counterValue(t, m.TransportErrs, "Item"); got != 1 {
		t.Fatalf("want 1 transport error, got %v", got)
	}
}

func TestNilMetricsMethodsAreNoops(t *testing.T) {
	var m *Metrics
	m.RecordEnqueued("Item", false)
	m.RecordDrained("Item")
	m.FrameSent("Item")
	m.TransportError("Item")
	m.DecodeError("Item")
	if err := m.SampleDiskIO(); err != nil {
		t.Fatalf("nil metrics SampleDiskIO should be a no-op, got %v", err)
	}
}
