// Package metrics defines the Prometheus metric collectors used across the
// analyser and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	TextsIngestedTotal   prometheus.Counter
	RunesIngestedTotal   prometheus.Counter
	ShardDuration        *prometheus.HistogramVec
	AnalysesTotal        *prometheus.CounterVec
	AnalysisDuration     prometheus.Histogram
	FilteredCharsTotal   prometheus.Counter
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	EventsPublishedTotal *prometheus.CounterVec
}

// New creates metrics registered with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
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
		TextsIngestedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ngram_texts_ingested_total",
				Help: "Total texts counted by the n-gram accumulators.",
			},
		),
		RunesIngestedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ngram_runes_ingested_total",
				Help: "Total characters counted by the n-gram accumulators.",
			},
		),
		ShardDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ngram_shard_duration_seconds",
				Help:    "Time spent counting a single shard.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
			},
			[]string{"shard"},
		),
		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analyses_total",
				Help: "Total corpus analyses by status (completed, skipped, failed).",
			},
			[]string{"status"},
		),
		AnalysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "analysis_duration_seconds",
				Help:    "End-to-end corpus analysis latency in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
			},
		),
		FilteredCharsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ngram_filtered_chars_total",
				Help: "Total filtered-character tally increments.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "frequency_cache_hits_total",
				Help: "Total number of frequency cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "frequency_cache_misses_total",
				Help: "Total number of frequency cache misses.",
			},
		),
		EventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_published_total",
				Help: "Total events published to Kafka by status.",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.TextsIngestedTotal,
		m.RunesIngestedTotal,
		m.ShardDuration,
		m.AnalysesTotal,
		m.AnalysisDuration,
		m.FilteredCharsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.EventsPublishedTotal,
	)

	return m
}

// Handler returns the scrape handler for g. A nil g serves the default
// gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
