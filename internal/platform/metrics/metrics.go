// Package metrics provides transport-level Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-surface metrics. Module-specific metrics live in
// each module's own metrics package.
type Metrics struct {
	AuthFailures    prometheus.Counter
	RequestDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AuthFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_auth_failures_total",
			Help: "Requests rejected for missing or invalid credentials.",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "guardian_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
