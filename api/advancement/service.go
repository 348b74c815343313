// Package advancement records match results and writes resolved winners
// into the next round of a knockout bracket.
package advancement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"Tourney/api/cache"
	"Tourney/api/events"
	"Tourney/api/metrics"
	"Tourney/api/models"
	"Tourney/api/progression"
	"Tourney/api/reporting"

	"gorm.io/gorm"
)

const defaultLockTTL = 10 * time.Second

// Publisher is the slice of the event bus the service needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

type Service struct {
	DB      *gorm.DB
	Logger  *slog.Logger
	Events  Publisher
	Metrics *metrics.Progression
	LockTTL time.Duration
}

// ResultInput is a score entry. Nil fields keep the stored value.
type ResultInput struct {
	Status           *string `json:"status"`
	HomeScore        *int    `json:"home_score"`
	AwayScore        *int    `json:"away_score"`
	HomePenaltyScore *int    `json:"home_penalty_score"`
	AwayPenaltyScore *int    `json:"away_penalty_score"`
}

// ValidationError carries field errors in the API's error map shape.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid result: %v", e.Fields)
}

type Result struct {
	Match   *models.Match        `json:"match"`
	Outcome *progression.Outcome `json:"outcome,omitempty"`
	Applied *Applied             `json:"applied,omitempty"`
}

// Inspection is a dry run of the resolver for one match.
type Inspection struct {
	Match   *models.Match        `json:"match"`
	Outcome *progression.Outcome `json:"outcome,omitempty"`
	Finding *Finding             `json:"finding,omitempty"`
	Error   string               `json:"error,omitempty"`
}

func LockKey(tournamentID uint) string {
	return fmt.Sprintf("progression:%d", tournamentID)
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// RecordResult stores a score entry and, when it completes the match, resolves
// the tie and advances the winner in the same transaction. Any resolver error
// rolls the score entry back.
func (s *Service) RecordResult(ctx context.Context, matchID uint, in ResultInput) (*Result, error) {
	started := time.Now()
	defer func() {
		if s.Metrics != nil {
			s.Metrics.ApplyDuration.Observe(time.Since(started).Seconds())
		}
	}()

	probe, err := (&models.Match{}).FindMatchByID(s.DB.WithContext(ctx), matchID)
	if err != nil {
		return nil, err
	}
	tournamentID := probe.TournamentID

	ttl := s.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	unlock, err := cache.Lock(ctx, LockKey(tournamentID), ttl)
	if err != nil {
		return nil, fmt.Errorf("lock tournament %d: %w", tournamentID, err)
	}
	defer unlock()

	var (
		result     Result
		tournament models.Tournament
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := tournament.LockTournament(tx, tournamentID); err != nil {
			return err
		}

		var match models.Match
		if _, err := match.FindMatchByID(tx, matchID); err != nil {
			return err
		}
		if match.Status == string(progression.StatusCompleted) && match.CompletedAt != nil &&
			in.Status != nil && *in.Status != string(progression.StatusCompleted) {
			return &ValidationError{Fields: map[string]string{
				"Invalid_status": "a completed match cannot be reopened",
			}}
		}
		applyInput(&match, in)
		if errs := match.Validate(); len(errs) > 0 {
			return &ValidationError{Fields: errs}
		}
		if _, err := match.UpdateResult(tx); err != nil {
			return err
		}
		result.Match = &match

		if match.Status != string(progression.StatusCompleted) {
			return nil
		}

		outcome, err := resolveMatch(tx, &tournament, &match)
		if err != nil {
			return err
		}
		if outcome.Kind == progression.KindAwaitingSecondLeg {
			// A corrected first leg reopens a tie whose second leg is already in.
			leg2, err := completedSecondLeg(tx, &tournament, &match)
			if err != nil {
				return err
			}
			if leg2 != nil {
				if outcome, err = resolveMatch(tx, &tournament, leg2); err != nil {
					return err
				}
			}
		}
		result.Outcome = &outcome

		applied, err := Apply(tx, &tournament, outcome)
		if err != nil {
			return err
		}
		if outcome.IsResolved() {
			result.Applied = &applied
		}
		return nil
	})
	if err != nil {
		s.observeFailure(ctx, tournamentID, matchID, err)
		return nil, err
	}

	if result.Outcome != nil {
		s.Metrics.ObserveOutcome(*result.Outcome)
		s.logger().Info("match result recorded",
			slog.Uint64("tournament_id", uint64(tournamentID)),
			slog.Uint64("match_id", uint64(matchID)),
			slog.String("outcome", string(result.Outcome.Kind)),
			slog.String("correlation_id", events.CorrelationID(ctx)),
		)
		s.publish(ctx, &tournament, result)
	}
	return &result, nil
}

// Inspect resolves a stored match without writing and reports whether the
// bracket already reflects the outcome.
func (s *Service) Inspect(ctx context.Context, matchID uint) (*Inspection, error) {
	db := s.DB.WithContext(ctx)

	var match models.Match
	if _, err := match.FindMatchByID(db, matchID); err != nil {
		return nil, err
	}
	var tournament models.Tournament
	if _, err := tournament.FindTournamentByID(db, match.TournamentID); err != nil {
		return nil, err
	}

	insp := &Inspection{Match: &match}
	outcome, err := resolveMatch(db, &tournament, &match)
	if err != nil {
		insp.Error = err.Error()
		return insp, err
	}
	insp.Outcome = &outcome

	if outcome.IsResolved() {
		next, err := match.FindTournamentMatches(db, tournament.ID, outcome.Resolved.Target.Round)
		if err != nil {
			return nil, err
		}
		f := checkTarget(&tournament, next, outcome)
		insp.Finding = &f
	}
	return insp, nil
}

// resolveMatch loads the first leg only when the match is a second leg.
func resolveMatch(db *gorm.DB, t *models.Tournament, m *models.Match) (progression.Outcome, error) {
	pt := t.Progression()
	pm, err := m.Progression(pt)
	if err != nil {
		return progression.Outcome{}, err
	}

	var siblings []progression.Match
	if tl, ok := pm.Context.(progression.TwoLegContext); ok && tl.Leg == 2 {
		rows, err := m.FindTournamentMatches(db, t.ID, m.Round)
		if err != nil {
			return progression.Outcome{}, err
		}
		for i := range rows {
			if rows[i].ID == m.ID || rows[i].Details.GroupID != tl.GroupID {
				continue
			}
			sib, err := rows[i].Progression(pt)
			if err != nil {
				return progression.Outcome{}, fmt.Errorf("match %d: %w", rows[i].ID, err)
			}
			siblings = append(siblings, sib)
		}
	}

	return progression.Resolve(pm, pt, siblings)
}

// completedSecondLeg returns the completed leg 2 paired with a first leg, or
// nil when the second leg has not been played.
func completedSecondLeg(db *gorm.DB, t *models.Tournament, leg1 *models.Match) (*models.Match, error) {
	mc, err := progression.ParseContext(t.Progression(), leg1.Details)
	if err != nil {
		return nil, err
	}
	tl, ok := mc.(progression.TwoLegContext)
	if !ok || tl.Leg != 1 {
		return nil, nil
	}
	rows, err := leg1.FindTournamentMatches(db, t.ID, leg1.Round)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		m := &rows[i]
		if m.ID != leg1.ID && m.Details.GroupID == tl.GroupID && m.Details.Leg == 2 &&
			m.Status == string(progression.StatusCompleted) {
			return m, nil
		}
	}
	return nil, nil
}

func applyInput(m *models.Match, in ResultInput) {
	if in.Status != nil {
		m.Status = *in.Status
	}
	if in.HomeScore != nil {
		m.HomeScore = in.HomeScore
	}
	if in.AwayScore != nil {
		m.AwayScore = in.AwayScore
	}
	if in.HomePenaltyScore != nil {
		m.HomePenaltyScore = in.HomePenaltyScore
	}
	if in.AwayPenaltyScore != nil {
		m.AwayPenaltyScore = in.AwayPenaltyScore
	}
}

func (s *Service) observeFailure(ctx context.Context, tournamentID, matchID uint, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) || errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	s.Metrics.ObserveFailure(err)

	attrs := []any{
		slog.Uint64("tournament_id", uint64(tournamentID)),
		slog.Uint64("match_id", uint64(matchID)),
		slog.Any("error", err),
	}
	if progression.IsIntegrityError(err) || errors.Is(err, ErrSlotConflict) {
		s.logger().Error("bracket integrity failure", attrs...)
		reporting.Capture(ctx, err, map[string]string{
			"tournament_id": fmt.Sprint(tournamentID),
			"match_id":      fmt.Sprint(matchID),
			"reason":        metrics.FailureReason(err),
		})
		return
	}
	s.logger().Warn("match result rejected", attrs...)
}

func (s *Service) publish(ctx context.Context, t *models.Tournament, res Result) {
	if s.Events == nil || res.Applied == nil || res.Outcome.Resolved == nil {
		return
	}

	err := s.Events.Publish(ctx, events.TieResolvedV1, events.TieResolvedPayload{
		TournamentID:   t.ID,
		MatchID:        res.Match.ID,
		Resolution:     *res.Outcome.Resolved,
		TargetMatchIDs: res.Applied.TargetMatchIDs,
	})
	if err != nil {
		s.logger().Warn("publish tie resolved", slog.Any("error", err))
	}

	if res.Applied.ChampionID != 0 && res.Applied.Changed {
		err := s.Events.Publish(ctx, events.TournamentCompletedV1, events.TournamentCompletedPayload{
			TournamentID:          t.ID,
			ChampionParticipantID: res.Applied.ChampionID,
			FinalMatchID:          res.Match.ID,
		})
		if err != nil {
			s.logger().Warn("publish tournament completed", slog.Any("error", err))
		}
	}
}
