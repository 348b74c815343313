// Package progression decides what a completed match means for the rest of a
// tournament: nothing (league and group play), wait for the second leg, or
// advance a tie winner into a slot of the next round.
//
// Resolve is a pure function. It reads its arguments, never mutates them and
// keeps no state, so resolving the same inputs twice yields the same Outcome.
// Persisting the outcome, and serialising concurrent resolutions of one tie,
// is the caller's job.
package progression

import "fmt"

// Resolve decides the consequence of a completed match. siblings holds the
// other matches of the same tournament round and is only consulted for the
// second leg of a two-leg tie.
func Resolve(match Match, t Tournament, siblings []Match) (Outcome, error) {
	if !match.Scored() {
		return Outcome{}, fmt.Errorf("%w: match %d has status %q", ErrInvalidState, match.ID, match.Status)
	}

	noop := Outcome{Kind: KindNoOp, MatchID: match.ID}
	if !t.IsKnockoutType() {
		if t.Type == League {
			return noop, nil
		}
		return Outcome{}, fmt.Errorf("%w: unknown tournament type %q", ErrInvalidDetails, t.Type)
	}

	switch c := match.Context.(type) {
	case LeagueContext, GroupStageContext:
		return noop, nil
	case SingleLegContext:
		if t.Format != Single {
			return Outcome{}, fmt.Errorf("%w: single-leg match %d in %q tournament", ErrInvalidDetails, match.ID, t.Format)
		}
		return resolveSingleLeg(match, c)
	case TwoLegContext:
		if t.Format != HomeAway {
			return Outcome{}, fmt.Errorf("%w: two-leg match %d in %q tournament", ErrInvalidDetails, match.ID, t.Format)
		}
		if c.Leg == 1 {
			return Outcome{Kind: KindAwaitingSecondLeg, MatchID: match.ID}, nil
		}
		return resolveSecondLeg(match, c, siblings)
	default:
		return Outcome{}, fmt.Errorf("%w: match %d has no bracket context", ErrInvalidDetails, match.ID)
	}
}

func resolveSingleLeg(m Match, c SingleLegContext) (Outcome, error) {
	if m.HomeParticipantID == 0 || m.AwayParticipantID == 0 {
		return Outcome{}, fmt.Errorf("%w: match %d has an unfilled slot", ErrInvalidState, m.ID)
	}

	home, away := *m.HomeScore, *m.AwayScore
	side, decider, err := decide(home, away, m.HomePenaltyScore, m.AwayPenaltyScore, DecidedByScore)
	if err != nil {
		return Outcome{}, fmt.Errorf("match %d: %w", m.ID, err)
	}

	r := Resolution{
		WinnerParticipantID: m.HomeParticipantID,
		LoserParticipantID:  m.AwayParticipantID,
		Target:              TargetSlot(m.Round, c.MatchIndex),
		DecidedBy:           decider,
		WinnerGoals:         home,
		LoserGoals:          away,
	}
	if side == Away {
		r.WinnerParticipantID, r.LoserParticipantID = m.AwayParticipantID, m.HomeParticipantID
		r.WinnerGoals, r.LoserGoals = away, home
	}
	return Outcome{Kind: KindTieResolved, MatchID: m.ID, Resolved: &r}, nil
}

// resolveSecondLeg scores a two-leg tie. The "first team" is leg 1's home
// side, which plays away in leg 2.
func resolveSecondLeg(leg2 Match, c TwoLegContext, siblings []Match) (Outcome, error) {
	leg1, ok := findFirstLeg(leg2, c, siblings)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: tie %q (match %d)", ErrMissingFirstLeg, c.GroupID, leg2.ID)
	}
	if !leg1.Scored() {
		return Outcome{}, fmt.Errorf("%w: first leg %d of tie %q is not completed", ErrInvalidState, leg1.ID, c.GroupID)
	}

	first, second := leg1.HomeParticipantID, leg1.AwayParticipantID
	if first == 0 || second == 0 {
		return Outcome{}, fmt.Errorf("%w: first leg %d has an unfilled slot", ErrInvalidState, leg1.ID)
	}
	if (leg2.AwayParticipantID != 0 && leg2.AwayParticipantID != first) ||
		(leg2.HomeParticipantID != 0 && leg2.HomeParticipantID != second) {
		return Outcome{}, fmt.Errorf("%w: tie %q legs %d and %d", ErrMismatchedLegs, c.GroupID, leg1.ID, leg2.ID)
	}

	firstGoals := *leg1.HomeScore + *leg2.AwayScore
	secondGoals := *leg1.AwayScore + *leg2.HomeScore

	// Penalties are taken at the end of leg 2 and recorded from its perspective.
	side, decider, err := decide(firstGoals, secondGoals, leg2.AwayPenaltyScore, leg2.HomePenaltyScore, DecidedByAggregate)
	if err != nil {
		return Outcome{}, fmt.Errorf("tie %q: %w", c.GroupID, err)
	}

	r := Resolution{
		WinnerParticipantID: first,
		LoserParticipantID:  second,
		Target:              TargetSlot(leg2.Round, c.MatchIndex),
		DecidedBy:           decider,
		WinnerGoals:         firstGoals,
		LoserGoals:          secondGoals,
	}
	if side == Away {
		r.WinnerParticipantID, r.LoserParticipantID = second, first
		r.WinnerGoals, r.LoserGoals = secondGoals, firstGoals
	}
	return Outcome{Kind: KindTieResolved, MatchID: leg2.ID, Resolved: &r}, nil
}

func findFirstLeg(leg2 Match, c TwoLegContext, siblings []Match) (Match, bool) {
	for _, s := range siblings {
		if s.ID == leg2.ID || s.TournamentID != leg2.TournamentID || s.Round != leg2.Round {
			continue
		}
		sc, ok := s.Context.(TwoLegContext)
		if ok && sc.Leg == 1 && sc.GroupID == c.GroupID {
			return s, true
		}
	}
	return Match{}, false
}

// decide compares a and b, falling back to penalties when level. Home stands
// for a and Away for b.
func decide(a, b int, penA, penB *int, byGoals Decider) (Side, Decider, error) {
	switch {
	case a > b:
		return Home, byGoals, nil
	case b > a:
		return Away, byGoals, nil
	}
	if penA == nil || penB == nil {
		return "", "", fmt.Errorf("%w: level at %d-%d", ErrMissingPenaltyScore, a, b)
	}
	switch {
	case *penA > *penB:
		return Home, DecidedByPenalties, nil
	case *penB > *penA:
		return Away, DecidedByPenalties, nil
	}
	return "", "", fmt.Errorf("%w: penalty shootout level at %d-%d", ErrMissingPenaltyScore, *penA, *penB)
}
