// Package metrics holds the Prometheus metrics exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all FactorPulse metrics on a private registry.
type Registry struct {
	reg *prometheus.Registry

	FetchDuration *prometheus.HistogramVec
	FetchErrors   *prometheus.CounterVec
	FactorRecords prometheus.Gauge
	LastRefresh   prometheus.Gauge
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	APIRequests   *prometheus.CounterVec
	APIDuration   *prometheus.HistogramVec
	DigestsSent   *prometheus.CounterVec
}

// New creates a Registry with Go runtime and process collectors attached.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "factorpulse_fetch_duration_seconds",
				Help:    "Duration of factor fetches from the backend",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"source", "result"},
		),
		FetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "factorpulse_fetch_errors_total",
				Help: "Total number of failed factor fetches",
			},
			[]string{"source"},
		),
		FactorRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "factorpulse_factor_records",
				Help: "Number of factor records in the current snapshot",
			},
		),
		LastRefresh: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "factorpulse_last_refresh_timestamp_seconds",
				Help: "Unix time of the last successful snapshot refresh",
			},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "factorpulse_cache_hits_total",
				Help: "Snapshot cache hits",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "factorpulse_cache_misses_total",
				Help: "Snapshot cache misses",
			},
		),
		APIRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "factorpulse_api_requests_total",
				Help: "HTTP API requests by route and status code",
			},
			[]string{"route", "method", "code"},
		),
		APIDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "factorpulse_api_request_duration_seconds",
				Help:    "HTTP API request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		DigestsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "factorpulse_digests_total",
				Help: "Digest deliveries by outcome",
			},
			[]string{"result"},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.FetchDuration,
		r.FetchErrors,
		r.FactorRecords,
		r.LastRefresh,
		r.CacheHits,
		r.CacheMisses,
		r.APIRequests,
		r.APIDuration,
		r.DigestsSent,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveFetch records one backend fetch.
func (r *Registry) ObserveFetch(source string, started time.Time, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		r.FetchErrors.WithLabelValues(source).Inc()
	}
	r.FetchDuration.WithLabelValues(source, result).Observe(time.Since(started).Seconds())
}

// ObserveSnapshot records the size and time of a fresh snapshot.
func (r *Registry) ObserveSnapshot(records int, at time.Time) {
	if r == nil {
		return
	}
	r.FactorRecords.Set(float64(records))
	r.LastRefresh.Set(float64(at.Unix()))
}

// ObserveCache records a snapshot cache lookup.
func (r *Registry) ObserveCache(hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.CacheHits.Inc()
		return
	}
	r.CacheMisses.Inc()
}

// ObserveDigest records a digest delivery attempt.
func (r *Registry) ObserveDigest(err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.DigestsSent.WithLabelValues("error").Inc()
		return
	}
	r.DigestsSent.WithLabelValues("ok").Inc()
}
