// Package metrics defines the Prometheus metric collectors used across the
// platform and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	ScoringRunsTotal     *prometheus.CounterVec
	ScoringDuration      *prometheus.HistogramVec
	SamplesFoldedTotal   prometheus.Counter
	VocabularySize       *prometheus.GaugeVec
	SinkWritesTotal      *prometheus.CounterVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all collectors and registers them with reg. Tests
// pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		ScoringRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idlv_scoring_runs_total",
				Help: "Total scoring runs by normalization and status (ok, invalid, error).",
			},
			[]string{"normalization", "status"},
		),
		ScoringDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "idlv_scoring_duration_seconds",
				Help:    "Duration of a single category scoring run in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"normalization"},
		),
		SamplesFoldedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "idlv_samples_folded_total",
				Help: "Total samples folded into frequency tables.",
			},
		),
		VocabularySize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "idlv_vocabulary_size",
				Help: "Vocabulary size of the last scoring run per category.",
			},
			[]string{"category"},
		),
		SinkWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idlv_sink_writes_total",
				Help: "Total list writes by sink and status.",
			},
			[]string{"sink", "status"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "idlv_cache_hits_total",
				Help: "Total number of list cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "idlv_cache_misses_total",
				Help: "Total number of list cache misses.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ScoringRunsTotal,
		m.ScoringDuration,
		m.SamplesFoldedTotal,
		m.VocabularySize,
		m.SinkWritesTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
