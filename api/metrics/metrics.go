package metrics

import (
	"errors"

	"Tourney/api/progression"

	"github.com/prometheus/client_golang/prometheus"
)

// Progression holds the resolver-facing counters.
type Progression struct {
	Outcomes      *prometheus.CounterVec
	Failures      *prometheus.CounterVec
	ApplyDuration prometheus.Histogram
	AuditFindings *prometheus.CounterVec
}

func NewProgression(reg prometheus.Registerer) *Progression {
	p := &Progression{
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tourney",
			Subsystem: "progression",
			Name:      "outcomes_total",
			Help:      "Resolved match outcomes by kind.",
		}, []string{"kind"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tourney",
			Subsystem: "progression",
			Name:      "failures_total",
			Help:      "Resolution failures by reason.",
		}, []string{"reason"}),
		ApplyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tourney",
			Subsystem: "progression",
			Name:      "record_result_seconds",
			Help:      "Time spent recording a result, including lock wait.",
			Buckets:   prometheus.DefBuckets,
		}),
		AuditFindings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tourney",
			Subsystem: "audit",
			Name:      "findings_total",
			Help:      "Progression audit findings by status.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(p.Outcomes, p.Failures, p.ApplyDuration, p.AuditFindings)
	}
	return p
}

func (p *Progression) ObserveOutcome(o progression.Outcome) {
	if p == nil {
		return
	}
	p.Outcomes.WithLabelValues(string(o.Kind)).Inc()
}

func (p *Progression) ObserveFailure(err error) {
	if p == nil || err == nil {
		return
	}
	p.Failures.WithLabelValues(FailureReason(err)).Inc()
}

func (p *Progression) ObserveAudit(status string) {
	if p == nil {
		return
	}
	p.AuditFindings.WithLabelValues(status).Inc()
}

// FailureReason maps a resolver error onto a low-cardinality label.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, progression.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, progression.ErrMissingFirstLeg):
		return "missing_first_leg"
	case errors.Is(err, progression.ErrMissingPenaltyScore):
		return "missing_penalty_score"
	case errors.Is(err, progression.ErrMismatchedLegs):
		return "mismatched_legs"
	case errors.Is(err, progression.ErrInvalidDetails):
		return "invalid_details"
	default:
		return "other"
	}
}
