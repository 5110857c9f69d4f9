package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tagging outcomes used as metric label values.
const (
	OutcomeSuccess       = "success"
	OutcomeAlreadyTagged = "already_tagged"
	OutcomeNotConfigured = "not_configured"
	OutcomeInvalidID     = "invalid_id"
)

// Metrics holds all Prometheus metrics for the affiliate engine.
type Metrics struct {
	// Tagging metrics
	TaggingAttempts *prometheus.CounterVec
	FallbackDetects prometheus.Counter

	// Bulk metrics
	BulkRuns      *prometheus.CounterVec
	BulkProcessed *prometheus.CounterVec

	// Analytics metrics
	Clicks      *prometheus.CounterVec
	Conversions *prometheus.CounterVec
	Revenue     *prometheus.CounterVec

	// Config metrics
	ConfigUpdates *prometheus.CounterVec

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
	RateLimitHits   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		TaggingAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tagging_attempts_total",
				Help:      "Tagging attempts by network and outcome",
			},
			[]string{"network", "outcome"},
		),
		FallbackDetects: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detection_fallbacks_total",
				Help:      "URLs that fell through to the catch-all network",
			},
		),
		BulkRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bulk_runs_total",
				Help:      "Bulk processing invocations per table",
			},
			[]string{"table"},
		),
		BulkProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bulk_processed_total",
				Help:      "Records handled by bulk processing, by table and outcome",
			},
			[]string{"table", "outcome"},
		),
		Clicks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "clicks_total",
				Help:      "Affiliate clicks tracked per network",
			},
			[]string{"network"},
		),
		Conversions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_total",
				Help:      "Affiliate conversions tracked per network",
			},
			[]string{"network"},
		),
		Revenue: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "revenue_total",
				Help:      "Affiliate revenue tracked per network",
			},
			[]string{"network"},
		),
		ConfigUpdates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_updates_total",
				Help:      "Affiliate configuration upserts per network",
			},
			[]string{"network"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"path", "method", "status"},
		),
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"scope"},
		),
	}
}

// RecordTagging counts one tagging attempt. Nil-safe.
func (m *Metrics) RecordTagging(network, outcome string) {
	if m == nil {
		return
	}
	m.TaggingAttempts.WithLabelValues(network, outcome).Inc()
}

// RecordFallback counts a catch-all detection. Nil-safe.
func (m *Metrics) RecordFallback() {
	if m == nil {
		return
	}
	m.FallbackDetects.Inc()
}

// RecordBulk counts one bulk run and its per-record outcomes. Nil-safe.
func (m *Metrics) RecordBulk(table string, successful, failed int) {
	if m == nil {
		return
	}
	m.BulkRuns.WithLabelValues(table).Inc()
	m.BulkProcessed.WithLabelValues(table, "success").Add(float64(successful))
	m.BulkProcessed.WithLabelValues(table, "failed").Add(float64(failed))
}

// RecordClick counts one tracked click. Nil-safe.
func (m *Metrics) RecordClick(network string) {
	if m == nil {
		return
	}
	m.Clicks.WithLabelValues(network).Inc()
}

// RecordConversion counts one tracked conversion and its revenue. Nil-safe.
func (m *Metrics) RecordConversion(network string, revenue float64) {
	if m == nil {
		return
	}
	m.Conversions.WithLabelValues(network).Inc()
	if revenue > 0 {
		m.Revenue.WithLabelValues(network).Add(revenue)
	}
}

// RecordConfigUpdate counts one configuration upsert. Nil-safe.
func (m *Metrics) RecordConfigUpdate(network string) {
	if m == nil {
		return
	}
	m.ConfigUpdates.WithLabelValues(network).Inc()
}

// RecordRateLimitHit counts one rate-limited request. Nil-safe.
func (m *Metrics) RecordRateLimitHit(scope string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(scope).Inc()
}

// ObserveRequest records one HTTP request's latency. Nil-safe.
func (m *Metrics) ObserveRequest(path, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(path, method, status).Observe(seconds)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
