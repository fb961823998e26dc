package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification workflow. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// Stage transitions by target stage
	Transitions *prometheus.CounterVec

	// Operation outcomes by operation and result code
	Outcomes *prometheus.CounterVec

	// External call latency by provider
	ProviderLatency *prometheus.HistogramVec

	// Retries of external calls by provider
	ProviderRetries *prometheus.CounterVec

	SessionsExpired prometheus.Counter

	// Risk decisions by approval
	Decisions *prometheus.CounterVec

	// Background screening results by outcome
	Screenings *prometheus.CounterVec
}

// New registers the verification metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_session_transitions_total",
			Help: "Session stage transitions by target stage",
		}, []string{"stage"}),

		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_operation_outcomes_total",
			Help: "Verification operation outcomes by operation and result",
		}, []string{"operation", "result"}), // result: "ok" or an error code

		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "onboarding_provider_duration_seconds",
			Help:    "Duration of external provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),

		ProviderRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_provider_retries_total",
			Help: "Retried external provider calls",
		}, []string{"provider"}),

		SessionsExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "onboarding_sessions_expired_total",
			Help: "Sessions moved to expired by the sweeper",
		}),

		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_risk_decisions_total",
			Help: "Registration risk decisions by outcome",
		}, []string{"approved"}),

		Screenings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_screenings_total",
			Help: "Background AML and credit screenings by outcome",
		}, []string{"outcome"}), // outcome: active, pending_review, rejected or failed
	}
}

func (m *Metrics) IncrementTransition(stage string) {
	if m != nil {
		m.Transitions.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) IncrementOutcome(operation, result string) {
	if m != nil {
		m.Outcomes.WithLabelValues(operation, result).Inc()
	}
}

// ObserveProviderLatency records the duration of one external call attempt.
func (m *Metrics) ObserveProviderLatency(provider string, d time.Duration) {
	if m != nil {
		m.ProviderLatency.WithLabelValues(provider).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementRetry(provider string) {
	if m != nil {
		m.ProviderRetries.WithLabelValues(provider).Inc()
	}
}

func (m *Metrics) AddExpired(n int) {
	if m != nil && n > 0 {
		m.SessionsExpired.Add(float64(n))
	}
}

func (m *Metrics) IncrementDecision(approved bool) {
	if m != nil {
		label := "false"
		if approved {
			label = "true"
		}
		m.Decisions.WithLabelValues(label).Inc()
	}
}

func (m *Metrics) IncrementScreening(outcome string) {
	if m != nil {
		m.Screenings.WithLabelValues(outcome).Inc()
	}
}
