package events

import (
	"encoding/json"
	"fmt"

	"Tourney/api/progression"

	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	TieResolvedV1         = "progression.tie_resolved.v1"
	TournamentCompletedV1 = "progression.tournament_completed.v1"
)

type TieResolvedPayload struct {
	TournamentID   uint                   `json:"tournament_id"`
	MatchID        uint                   `json:"match_id"`
	Resolution     progression.Resolution `json:"resolution"`
	TargetMatchIDs []uint                 `json:"target_match_ids,omitempty"`
}

type TournamentCompletedPayload struct {
	TournamentID          uint `json:"tournament_id"`
	ChampionParticipantID uint `json:"champion_participant_id"`
	FinalMatchID          uint `json:"final_match_id"`
}

func DecodeTieResolved(msg *message.Message) (TieResolvedPayload, error) {
	var p TieResolvedPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return p, fmt.Errorf("failed to decode %s: %w", TieResolvedV1, err)
	}
	return p, nil
}

func DecodeTournamentCompleted(msg *message.Message) (TournamentCompletedPayload, error) {
	var p TournamentCompletedPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return p, fmt.Errorf("failed to decode %s: %w", TournamentCompletedV1, err)
	}
	return p, nil
}
