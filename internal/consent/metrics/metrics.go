package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the consent ledger. The unauthorized-access counter is part of
// the alerting contract; do not rename.
type Metrics struct {
	UnauthorizedAccess prometheus.Counter
	ConsentsGranted    prometheus.Counter
	ConsentsRevoked    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UnauthorizedAccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_unauthorized_access_total",
			Help: "Total number of actions denied for missing or revoked consent",
		}),
		ConsentsGranted: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_consents_granted_total",
			Help: "Total number of consent records granted",
		}),
		ConsentsRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_consents_revoked_total",
			Help: "Total number of consent revocations",
		}),
	}
}

func (m *Metrics) IncrementUnauthorizedAccess() { m.UnauthorizedAccess.Inc() }
func (m *Metrics) IncrementConsentsGranted()    { m.ConsentsGranted.Inc() }
func (m *Metrics) IncrementConsentsRevoked()    { m.ConsentsRevoked.Inc() }
