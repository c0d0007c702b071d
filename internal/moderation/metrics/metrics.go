package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the moderation counters consumed by the external alerting
// stack. Names are a contract with the alert rules; do not rename.
type Metrics struct {
	InappropriateContent prometheus.Counter
	SafetyScore          prometheus.Histogram
	ScorerFailures       prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		InappropriateContent: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_inappropriate_content_total",
			Help: "Total number of messages blocked for inappropriate content",
		}),
		SafetyScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "guardian_safety_score",
			Help:    "Distribution of moderation safety scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ScorerFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_moderation_scorer_failures_total",
			Help: "Total number of scorer calls that failed and forced a fail-closed block",
		}),
	}
}

func (m *Metrics) IncrementInappropriateContent() {
	m.InappropriateContent.Inc()
}

func (m *Metrics) ObserveSafetyScore(score float64) {
	m.SafetyScore.Observe(score)
}

func (m *Metrics) IncrementScorerFailures() {
	m.ScorerFailures.Inc()
}
