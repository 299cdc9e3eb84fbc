package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wise_weather"

// Metrics holds the Prometheus collectors for community reports and providers.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ReportsSubmitted     prometheus.Counter
	ReportsRejected      *prometheus.CounterVec // labels: reason={duplicate,invalid}
	StoreErrors          *prometheus.CounterVec // labels: op
	ConsensusRequests    *prometheus.CounterVec // labels: confidence
	MarkersServed        prometheus.Gauge
	ProviderFetches      *prometheus.CounterVec // labels: provider, outcome={success,error}
	NotificationFailures prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		ReportsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_submitted_total",
			Help:      "Community reports accepted.",
		}),
		ReportsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_rejected_total",
			Help:      "Community reports rejected by reason.",
		}, []string{"reason"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Report and counter store failures by operation.",
		}, []string{"op"}),
		ConsensusRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consensus_requests_total",
			Help:      "Consensus computations by resulting confidence.",
		}, []string{"confidence"}),
		MarkersServed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "markers_served",
			Help:      "Number of consolidated community map markers.",
		}),
		ProviderFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fetch_total",
			Help:      "Official weather provider calls by outcome.",
		}, []string{"provider", "outcome"}),
		NotificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Report notifications that could not be published.",
		}),
	}
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReportsSubmitted,
		m.ReportsRejected,
		m.StoreErrors,
		m.ConsensusRequests,
		m.MarkersServed,
		m.ProviderFetches,
		m.NotificationFailures,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics so tests can build as many
// as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func (m *Metrics) ReportAccepted() {
	if m == nil {
		return
	}
	m.ReportsSubmitted.Inc()
}

func (m *Metrics) ReportRejected(reason string) {
	if m == nil {
		return
	}
	m.ReportsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) Consensus(confidence string) {
	if m == nil {
		return
	}
	m.ConsensusRequests.WithLabelValues(confidence).Inc()
}

func (m *Metrics) Markers(n int) {
	if m == nil {
		return
	}
	m.MarkersServed.Set(float64(n))
}

func (m *Metrics) ProviderFetch(provider string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.ProviderFetches.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) NotificationFailed() {
	if m == nil {
		return
	}
	m.NotificationFailures.Inc()
}
