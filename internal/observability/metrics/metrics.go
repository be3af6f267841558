package metrics

import "github.com/prometheus/client_golang/prometheus"

// MessagingMetrics exposes counters/histograms for the telephony core.
type MessagingMetrics struct {
	outboundTotal  *prometheus.CounterVec
	callbackTotal  *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
}

func NewMessagingMetrics(reg prometheus.Registerer) *MessagingMetrics {
	m := &MessagingMetrics{
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kitewire",
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound SMS sends by result",
		}, []string{"result", "source"}),
		callbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kitewire",
			Subsystem: "messaging",
			Name:      "status_callback_total",
			Help:      "Total provider status callbacks by reported status and outcome",
		}, []string{"status", "outcome"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kitewire",
			Subsystem: "messaging",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of provider webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.outboundTotal, m.callbackTotal, m.webhookLatency)
	return m
}

// ObserveOutbound records a send attempt outcome. result is one of queued,
// not_configured, invalid_number, provider_rejected, store_error; source is
// the resolved credential source.
func (m *MessagingMetrics) ObserveOutbound(result, source string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(result, source).Inc()
}

// ObserveCallback records a status callback outcome: applied, stale,
// unknown, invalid, or error.
func (m *MessagingMetrics) ObserveCallback(status, outcome string) {
	if m == nil {
		return
	}
	m.callbackTotal.WithLabelValues(status, outcome).Inc()
}

func (m *MessagingMetrics) ObserveWebhookLatency(route string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(route).Observe(seconds)
}
