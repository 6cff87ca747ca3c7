package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for event lifecycle operations.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	EventsCreated       prometheus.Counter
	EventTransitions    *prometheus.CounterVec
	CredentialsIssued   prometheus.Counter
	EventsExpired       prometheus.Counter
	ExpirySweepFailures prometheus.Counter
}

// New registers event collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "solmeet_events_created_total",
			Help: "Total number of events created",
		}),
		EventTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "solmeet_event_transitions_total",
			Help: "Event lifecycle transitions, labeled by target status",
		}, []string{"to"}),
		CredentialsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "solmeet_credentials_issued_total",
			Help: "Total number of claim credentials minted",
		}),
		EventsExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "solmeet_events_expired_total",
			Help: "Open events closed by the window expiry sweep",
		}),
		ExpirySweepFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "solmeet_event_expiry_sweep_failures_total",
			Help: "Expiry sweep iterations that failed",
		}),
	}
}

func (m *Metrics) IncrementEventsCreated() {
	if m == nil {
		return
	}
	m.EventsCreated.Inc()
}

func (m *Metrics) IncrementTransition(to string) {
	if m == nil {
		return
	}
	m.EventTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) AddCredentialsIssued(n int) {
	if m == nil {
		return
	}
	m.CredentialsIssued.Add(float64(n))
}

func (m *Metrics) AddEventsExpired(n int) {
	if m == nil {
		return
	}
	m.EventsExpired.Add(float64(n))
}

func (m *Metrics) IncrementSweepFailure() {
	if m == nil {
		return
	}
	m.ExpirySweepFailures.Inc()
}
