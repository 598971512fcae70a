package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "navigator"

// Registry holds all Prometheus metrics for the navigator on a private prometheus registry,
// so several instances (and tests) never collide on registration.
type Registry struct {
	reg *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	RecommendationOutcomes *prometheus.CounterVec
	RecommendationDuration prometheus.Histogram

	UpstreamFetches  *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	PoolsTransformed prometheus.Gauge
}

// NewRegistry creates and registers every navigator metric.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"route", "method"},
		),

		RecommendationOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recommendations_total",
				Help:      "Recommendation runs by outcome (ok, no_input, no_match, error)",
			},
			[]string{"outcome"},
		),

		RecommendationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "recommendation_duration_seconds",
				Help:      "Time to build one recommendation set, including market loading",
				Buckets:   prometheus.DefBuckets,
			},
		),

		UpstreamFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_fetches_total",
				Help:      "Calls to upstream feeds by source and result",
			},
			[]string{"source", "result"},
		),

		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "market_cache_lookups_total",
				Help:      "Market cache lookups by result (hit, miss, error)",
			},
			[]string{"result"},
		),

		PoolsTransformed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pools_transformed",
				Help:      "Pools produced by the most recent market transformation",
			},
		),
	}

	r.reg.MustRegister(
		r.HTTPRequests,
		r.HTTPDuration,
		r.RecommendationOutcomes,
		r.RecommendationDuration,
		r.UpstreamFetches,
		r.CacheLookups,
		r.PoolsTransformed,
		collectors.NewGoCollector(),
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (r *Registry) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveRecommendation records the outcome of one recommendation run.
func (r *Registry) ObserveRecommendation(outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.RecommendationOutcomes.WithLabelValues(outcome).Inc()
	r.RecommendationDuration.Observe(elapsed.Seconds())
}

// ObserveUpstream records one upstream call; err == nil counts as success.
func (r *Registry) ObserveUpstream(source string, err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	r.UpstreamFetches.WithLabelValues(source, result).Inc()
}

// ObserveCache records a market cache lookup.
func (r *Registry) ObserveCache(result string) {
	if r == nil {
		return
	}
	r.CacheLookups.WithLabelValues(result).Inc()
}

// SetPoolsTransformed records the size of the last transformed pool list.
func (r *Registry) SetPoolsTransformed(n int) {
	if r == nil {
		return
	}
	r.PoolsTransformed.Set(float64(n))
}
