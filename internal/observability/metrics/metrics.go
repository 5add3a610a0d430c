package metrics

import "github.com/prometheus/client_golang/prometheus"

// WidgetMetrics exposes counters/histograms for the chat widget client.
type WidgetMetrics struct {
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	overlaysTotal  *prometheus.CounterVec
}

func NewWidgetMetrics(reg prometheus.Registerer) *WidgetMetrics {
	m := &WidgetMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raven",
			Subsystem: "widget",
			Name:      "api_requests_total",
			Help:      "Total remote API calls made by the widget",
		}, []string{"operation", "outcome"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "raven",
			Subsystem: "widget",
			Name:      "api_request_seconds",
			Help:      "Latency of remote API calls made by the widget",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		overlaysTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raven",
			Subsystem: "widget",
			Name:      "overlays_shown_total",
			Help:      "Overlays and banners displayed to visitors",
		}, []string{"overlay"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency, m.overlaysTotal)
	return m
}

// ObserveRequest records one remote call. Outcome is one of
// success, timeout, network, status.
func (m *WidgetMetrics) ObserveRequest(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(operation, outcome).Inc()
	m.requestLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *WidgetMetrics) ObserveOverlay(overlay string) {
	if m == nil {
		return
	}
	m.overlaysTotal.WithLabelValues(overlay).Inc()
}
