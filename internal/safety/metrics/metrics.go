// Package metrics provides Prometheus instrumentation for the safety event bus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsPublished      *prometheus.CounterVec
	NotifyFailures       prometheus.Counter
	DeadLetters          prometheus.Counter
	RelayedEvents        prometheus.Counter
	NotifyRetryExhausted prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_safety_events_total",
			Help: "Safety events published, by type and severity.",
		}, []string{"event_type", "severity"}),
		NotifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_parent_notify_failures_total",
			Help: "Parent notification attempts that returned an error.",
		}),
		DeadLetters: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_parent_notify_dead_letters_total",
			Help: "Parent notifications abandoned after exhausting retries.",
		}),
		RelayedEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_safety_events_relayed_total",
			Help: "Safety events relayed to the event stream.",
		}),
		NotifyRetryExhausted: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_parent_notify_retry_exhausted_total",
			Help: "Notification retry loops that hit the attempt budget.",
		}),
	}
}
