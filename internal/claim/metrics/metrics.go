package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the claim pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ClaimOutcomes      *prometheus.CounterVec
	LedgerCallDuration *prometheus.HistogramVec
	BreakerTransitions *prometheus.CounterVec
}

// New registers claim collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ClaimOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "solmeet_claims_total",
			Help: "Claim presentations, labeled by outcome (accepted or the rejection code)",
		}, []string{"outcome"}),
		LedgerCallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "solmeet_ledger_call_duration_seconds",
			Help:    "Latency of proof ledger calls made by the claim pipeline",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"op"}),
		BreakerTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "solmeet_ledger_breaker_transitions_total",
			Help: "Ledger circuit breaker state changes",
		}, []string{"to"}),
	}
}

func (m *Metrics) IncrementOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ClaimOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLedgerCall(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.LedgerCallDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) IncrementBreakerTransition(to string) {
	if m == nil {
		return
	}
	m.BreakerTransitions.WithLabelValues(to).Inc()
}
