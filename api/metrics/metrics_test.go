package metrics

import (
	"errors"
	"fmt"
	"testing"

	"Tourney/api/progression"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestProgression_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProgression(reg)

	p.ObserveOutcome(progression.Outcome{Kind: progression.KindTieResolved})
	p.ObserveOutcome(progression.Outcome{Kind: progression.KindTieResolved})
	p.ObserveOutcome(progression.Outcome{Kind: progression.KindNoOp})
	p.ObserveFailure(fmt.Errorf("tie %q: %w", "G", progression.ErrMissingPenaltyScore))
	p.ObserveFailure(nil)
	p.ObserveAudit("mismatch")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.Outcomes.WithLabelValues("tie_resolved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Outcomes.WithLabelValues("no_op")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Failures.WithLabelValues("missing_penalty_score")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.AuditFindings.WithLabelValues("mismatch")))
}

func TestProgression_NilIsSafe(t *testing.T) {
	var p *Progression
	p.ObserveOutcome(progression.Outcome{Kind: progression.KindNoOp})
	p.ObserveFailure(errors.New("boom"))
	p.ObserveAudit("ok")
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "invalid_state", FailureReason(progression.ErrInvalidState))
	assert.Equal(t, "missing_first_leg", FailureReason(fmt.Errorf("x: %w", progression.ErrMissingFirstLeg)))
	assert.Equal(t, "mismatched_legs", FailureReason(progression.ErrMismatchedLegs))
	assert.Equal(t, "invalid_details", FailureReason(progression.ErrInvalidDetails))
	assert.Equal(t, "other", FailureReason(errors.New("db down")))
}
