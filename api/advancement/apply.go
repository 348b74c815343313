package advancement

import (
	"errors"
	"fmt"

	"Tourney/api/models"
	"Tourney/api/progression"

	"gorm.io/gorm"
)

var ErrSlotConflict = errors.New("target slot already holds another participant")

// Applied describes the writes made for a TieResolved outcome.
type Applied struct {
	TargetMatchIDs  []uint `json:"target_match_ids,omitempty"`
	CreatedMatchIDs []uint `json:"created_match_ids,omitempty"`
	ChampionID      uint   `json:"champion_id,omitempty"`
	Changed         bool   `json:"changed"`
}

type legSide struct {
	leg  int
	side progression.Side
}

// targetLegs lists the matches a winner is written into. Leg 2 of a
// home-and-away tie swaps venues.
func targetLegs(format progression.MatchFormat, side progression.Side) []legSide {
	if format == progression.HomeAway {
		return []legSide{{1, side}, {2, side.Opposite()}}
	}
	return []legSide{{0, side}}
}

// Apply writes a resolved winner into the next round, creating the target
// match when the bracket has not materialised it yet. Applying the same
// outcome twice is a no-op. It must run inside the caller's transaction.
func Apply(tx *gorm.DB, t *models.Tournament, outcome progression.Outcome) (Applied, error) {
	var applied Applied
	if !outcome.IsResolved() {
		return applied, nil
	}
	r := outcome.Resolved
	winner := r.WinnerParticipantID

	if t.TotalRounds > 0 && r.Target.Round > t.TotalRounds {
		return crownChampion(tx, t, winner)
	}

	pt := t.Progression()
	existing, err := (&models.Match{}).FindSlotMatches(tx, t.ID, r.Target.Round, r.Target.Index)
	if err != nil {
		return applied, fmt.Errorf("load target slot: %w", err)
	}

	groupID := ""
	for _, m := range existing {
		if m.Details.GroupID != "" {
			groupID = m.Details.GroupID
			break
		}
	}

	for _, ls := range targetLegs(pt.Format, r.Target.Side) {
		target := pickLeg(existing, ls.leg)
		if target == nil {
			created := models.Match{
				TournamentID: t.ID,
				Round:        r.Target.Round,
				Status:       string(progression.StatusScheduled),
				Details:      progression.DetailsFor(pt, r.Target.Round, r.Target.Index, ls.leg),
			}
			if groupID != "" && ls.leg > 0 {
				created.Details.GroupID = groupID
			}
			created.Prepare()
			if _, err := created.SaveMatch(tx); err != nil {
				return applied, fmt.Errorf("create target match: %w", err)
			}
			existing = append(existing, created)
			target = &existing[len(existing)-1]
			applied.CreatedMatchIDs = append(applied.CreatedMatchIDs, created.ID)
		}

		if other := target.ParticipantOn(ls.side.Opposite()); other != nil && *other == winner {
			return applied, fmt.Errorf("%w: participant %d already on the %s side of match %d",
				ErrSlotConflict, winner, ls.side.Opposite(), target.ID)
		}
		current := target.ParticipantOn(ls.side)
		switch {
		case current == nil:
			if err := target.AssignParticipant(tx, ls.side, winner); err != nil {
				return applied, fmt.Errorf("assign participant: %w", err)
			}
			applied.Changed = true
		case *current != winner:
			return applied, fmt.Errorf("%w: match %d %s side holds %d, winner is %d",
				ErrSlotConflict, target.ID, ls.side, *current, winner)
		}
		applied.TargetMatchIDs = append(applied.TargetMatchIDs, target.ID)
	}

	return applied, nil
}

func pickLeg(matches []models.Match, leg int) *models.Match {
	for i := range matches {
		if leg == 0 || matches[i].Details.Leg == leg {
			return &matches[i]
		}
	}
	return nil
}

func crownChampion(tx *gorm.DB, t *models.Tournament, winner uint) (Applied, error) {
	applied := Applied{ChampionID: winner}
	if t.ChampionParticipantID != nil {
		if *t.ChampionParticipantID != winner {
			return applied, fmt.Errorf("%w: tournament %d champion is %d, winner is %d",
				ErrSlotConflict, t.ID, *t.ChampionParticipantID, winner)
		}
		return applied, nil
	}
	if err := t.CompleteTournament(tx, winner); err != nil {
		return applied, fmt.Errorf("complete tournament: %w", err)
	}
	applied.Changed = true
	return applied, nil
}
