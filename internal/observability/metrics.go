package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate by method/route/status class.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency. Watch for p95/p99 increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Cache outcomes. Hit rate = hits/(hits+misses); errors count Redis
	// round trips that degraded to a miss.
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	CacheErrorsTotal prometheus.Counter

	// Upstream provider call rate by outcome (success, not_found, error,
	// unavailable, malformed).
	UpstreamRequestsTotal *prometheus.CounterVec

	// Rate limit denials. Watch for overload.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status class.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "weather_cache_hits_total",
		Help: "Weather lookups served from the cache.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "weather_cache_misses_total",
		Help: "Weather lookups that fell through to the upstream provider.",
	})

	CacheErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "weather_cache_errors_total",
		Help: "Cache round trips that failed and were treated as misses.",
	})

	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_upstream_requests_total",
			Help: "Upstream provider calls by outcome.",
		},
		[]string{"outcome"},
	)

	RateLimitDeniedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_denied_total",
		Help: "Requests rejected by the rate limiter.",
	})

	registry.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CacheHitsTotal,
		CacheMissesTotal,
		CacheErrorsTotal,
		UpstreamRequestsTotal,
		RateLimitDeniedTotal,
	)
}

// MetricsHandler exposes the private registry for the /metrics route.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
