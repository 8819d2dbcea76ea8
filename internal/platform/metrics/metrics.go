package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Methods tolerate
// a nil receiver so tests can run handlers without a registry.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	RateLimited     prometheus.Counter
	AuthFailures    prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "syscatalog_requests_total",
			Help: "API requests by method and envelope status",
		}, []string{"method", "status"}),
		RequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "syscatalog_request_duration_seconds",
			Help:    "End-to-end request processing time",
			Buckets: prometheus.DefBuckets,
		}),
		RateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "syscatalog_rate_limited_total",
			Help: "Requests refused by the rate limiter",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "syscatalog_auth_failures_total",
			Help: "Requests refused by the authenticator",
		}),
	}
}

func (m *Metrics) ObserveRequest(method, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

func (m *Metrics) IncAuthFailure() {
	if m == nil {
		return
	}
	m.AuthFailures.Inc()
}
