// Package metrics provides Prometheus instrumentation for the retention scheduler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ExpiredRecords  *prometheus.CounterVec
	TicketsOpened   *prometheus.CounterVec
	TicketsExecuted prometheus.Counter
	TicketsBlocked  prometheus.Counter
	Violations      prometheus.Counter
	SweepDuration   prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ExpiredRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_data_retention_expired_total",
			Help: "Records purged after their retention window, by data category.",
		}, []string{"data_category"}),
		TicketsOpened: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_retention_tickets_opened_total",
			Help: "Retention tickets opened, by origin.",
		}, []string{"origin"}),
		TicketsExecuted: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_retention_tickets_executed_total",
			Help: "Retention tickets that completed deletion.",
		}),
		TicketsBlocked: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_retention_tickets_blocked_total",
			Help: "Sweep evaluations that found a ticket blocked by a hold.",
		}),
		Violations: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_retention_violations_total",
			Help: "Tickets pending past the overdue threshold.",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "guardian_retention_sweep_duration_seconds",
			Help:    "Wall time of one retention sweep.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
