package controllers

import (
	"log/slog"

	"Tourney/api/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// registerSubscribers keeps read caches in step with advancement and leaves
// an audit trail of every bracket write.
func (s *Server) registerSubscribers() {
	s.Events.Subscribe("match-cache-on-tie-resolved", events.TieResolvedV1, func(msg *message.Message) error {
		payload, err := events.DecodeTieResolved(msg)
		if err != nil {
			return err
		}
		invalidateMatchListCache(payload.TournamentID)
		s.Logger.Info("winner advanced",
			slog.Uint64("tournament_id", uint64(payload.TournamentID)),
			slog.Uint64("match_id", uint64(payload.MatchID)),
			slog.Uint64("winner_participant_id", uint64(payload.Resolution.WinnerParticipantID)),
			slog.Int("target_round", payload.Resolution.Target.Round),
			slog.Int("target_slot", payload.Resolution.Target.Index),
			slog.String("target_side", string(payload.Resolution.Target.Side)),
			slog.String("correlation_id", middleware.MessageCorrelationID(msg)),
		)
		return nil
	})

	s.Events.Subscribe("tournament-cache-on-completed", events.TournamentCompletedV1, func(msg *message.Message) error {
		payload, err := events.DecodeTournamentCompleted(msg)
		if err != nil {
			return err
		}
		invalidateTournamentCache(payload.TournamentID)
		s.Logger.Info("tournament completed",
			slog.Uint64("tournament_id", uint64(payload.TournamentID)),
			slog.Uint64("champion_participant_id", uint64(payload.ChampionParticipantID)),
			slog.Uint64("final_match_id", uint64(payload.FinalMatchID)),
			slog.String("correlation_id", middleware.MessageCorrelationID(msg)),
		)
		return nil
	})
}
