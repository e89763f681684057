package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matchLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(metric *dto.Metric, want map[string]string) bool {
	got := map[string]string{}
	for _, lp := range metric.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestDispatchMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDispatchMetrics(reg)
	m.ObserveDispatch("SUCCESS", "")
	m.ObserveDispatch("FAILED", "vendor_rejection")
	m.ObserveDispatch("FAILED", "vendor_rejection")
	m.ObserveVendorLatency("success", 0.3)
	m.ObserveBulk(12)

	if got := counterValue(t, reg, "crm_dispatch_total", map[string]string{"status": "SUCCESS", "kind": "none"}); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := counterValue(t, reg, "crm_dispatch_total", map[string]string{"status": "FAILED", "kind": "vendor_rejection"}); got != 2 {
		t.Fatalf("expected 2 rejections, got %v", got)
	}
}

func TestWebhookMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)
	m.ObserveEvent("order.placed", "applied")
	m.ObserveLatency("order.placed", 0.01)

	if got := counterValue(t, reg, "crm_webhook_events_total", map[string]string{"event_type": "order.placed", "result": "applied"}); got != 1 {
		t.Fatalf("expected 1 applied event, got %v", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var d *DispatchMetrics
	d.ObserveDispatch("SUCCESS", "")
	d.ObserveVendorLatency("success", 0.1)
	d.ObserveBulk(3)

	var w *WebhookMetrics
	w.ObserveEvent("order.placed", "applied")
	w.ObserveLatency("order.placed", 0.1)
}
