package metrics

import "github.com/prometheus/client_golang/prometheus"

// DispatchMetrics exposes counters/histograms for vendor submissions.
type DispatchMetrics struct {
	dispatchTotal *prometheus.CounterVec
	vendorLatency *prometheus.HistogramVec
	bulkSize      prometheus.Histogram
}

func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	m := &DispatchMetrics{
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "dispatch",
			Name:      "total",
			Help:      "Vendor intake dispatches by outcome",
		}, []string{"status", "kind"}),
		vendorLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crm",
			Subsystem: "dispatch",
			Name:      "vendor_latency_seconds",
			Help:      "Latency of CuraGenesis intake calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		bulkSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crm",
			Subsystem: "dispatch",
			Name:      "bulk_accounts",
			Help:      "Number of accounts per bulk dispatch request",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.dispatchTotal, m.vendorLatency, m.bulkSize)
	return m
}

// ObserveDispatch counts one dispatch. kind is empty on success.
func (m *DispatchMetrics) ObserveDispatch(status, kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "none"
	}
	m.dispatchTotal.WithLabelValues(status, kind).Inc()
}

func (m *DispatchMetrics) ObserveVendorLatency(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.vendorLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *DispatchMetrics) ObserveBulk(accounts int) {
	if m == nil {
		return
	}
	m.bulkSize.Observe(float64(accounts))
}

// WebhookMetrics exposes counters/histograms for inbound vendor webhooks.
type WebhookMetrics struct {
	eventsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Inbound CuraGenesis webhooks by type and result",
		}, []string{"event_type", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crm",
			Subsystem: "webhook",
			Name:      "latency_seconds",
			Help:      "Latency of CuraGenesis webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.eventsTotal, m.latency)
	return m
}

func (m *WebhookMetrics) ObserveEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(eventType, result).Inc()
}

func (m *WebhookMetrics) ObserveLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(eventType).Observe(seconds)
}
