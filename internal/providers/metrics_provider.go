package providers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gsd/internal/structures"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(method, endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncGiftEvents(target string, count int)
	IncSessionErrors(target string)
	SetSessionsByState(state string, count int)
	SetLedgerRecords(target string, count int)
	ObservePersistenceDuration(duration time.Duration)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	giftEventsTotal     *prometheus.CounterVec
	sessionErrorsTotal  *prometheus.CounterVec
	sessionsByState     *prometheus.GaugeVec
	ledgerRecords       *prometheus.GaugeVec
	persistenceDuration prometheus.Histogram
}

func (m *MetricsProvider) IncRequestsTotal(method, endpoint string, status int) {
	m.requestsTotal.WithLabelValues(method, endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncGiftEvents(target string, count int) {
	m.giftEventsTotal.WithLabelValues(target).Add(float64(count))
}

func (m *MetricsProvider) IncSessionErrors(target string) {
	m.sessionErrorsTotal.WithLabelValues(target).Inc()
}

func (m *MetricsProvider) SetSessionsByState(state string, count int) {
	m.sessionsByState.WithLabelValues(state).Set(float64(count))
}

func (m *MetricsProvider) SetLedgerRecords(target string, count int) {
	m.ledgerRecords.WithLabelValues(target).Set(float64(count))
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gsd_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gsd_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		giftEventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gsd_gift_events_total",
			Help: "Total number of gift events consumed per target",
		}, []string{"target"}),

		sessionErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gsd_session_errors_total",
			Help: "Total number of session failures per target",
		}, []string{"target"}),

		sessionsByState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gsd_sessions_by_state",
			Help: "Number of monitoring sessions per lifecycle state",
		}, []string{"state"}),

		ledgerRecords: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gsd_ledger_records",
			Help: "Number of distinct gifts in each target ledger",
		}, []string{"target"}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gsd_persistence_duration_seconds",
			Help:    "Duration of persistence operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_, _ string, _ int)              {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncGiftEvents(_ string, _ int)                    {}
func (n *noopMetrics) IncSessionErrors(_ string)                        {}
func (n *noopMetrics) SetSessionsByState(_ string, _ int)               {}
func (n *noopMetrics) SetLedgerRecords(_ string, _ int)                 {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
