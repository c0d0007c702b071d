package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Reservations prometheus.Counter
	Denials      *prometheus.CounterVec
	Cooldowns    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Reservations: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_interactions_reserved_total",
			Help: "Total number of accepted interaction reservations",
		}),
		Denials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_interaction_denials_total",
			Help: "Total number of denied interaction reservations by reason",
		}, []string{"reason"}),
		Cooldowns: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_interaction_cooldowns_total",
			Help: "Total number of forced cooldown transitions",
		}),
	}
}

func (m *Metrics) IncrementReservations() {
	m.Reservations.Inc()
}

func (m *Metrics) IncrementDenials(reason string) {
	m.Denials.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementCooldowns() {
	m.Cooldowns.Inc()
}
