package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shipping"

// Metrics groups the collectors the service records to.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	Lookups      *prometheus.CounterVec
	CacheResults *prometheus.CounterVec
}

// New registers the collectors on reg. Passing a fresh prometheus.NewRegistry()
// keeps tests isolated from the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_lookups_total",
			Help:      "Shipping rate lookups by the tier that answered them.",
		}, []string{"tier"}),
		CacheResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_cache_total",
			Help:      "Active rate cache hits and misses.",
		}, []string{"result"}),
	}
}

// Nop returns collectors registered nowhere.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
