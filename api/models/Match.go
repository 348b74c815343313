package models

import (
	"errors"
	"time"

	"Tourney/api/progression"

	"gorm.io/gorm"
)

type Match struct {
	ID           uint       `gorm:"primary_key;autoIncrement" json:"id"`
	Tournament   Tournament `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	TournamentID uint       `gorm:"not null;index:idx_matches_tournament_round" json:"tournament_id"`
	Round        int        `gorm:"not null;index:idx_matches_tournament_round" json:"round"`
	Status       string     `gorm:"size:20;not null;default:'scheduled'" json:"status"`

	HomeParticipantID *uint `gorm:"index" json:"home_participant_id"`
	AwayParticipantID *uint `gorm:"index" json:"away_participant_id"`

	HomeScore        *int `json:"home_score"`
	AwayScore        *int `json:"away_score"`
	HomePenaltyScore *int `json:"home_penalty_score"`
	AwayPenaltyScore *int `json:"away_penalty_score"`

	// Bracket position written by the generator: match_index, leg, group_id, stage.
	Details progression.Details `gorm:"embedded" json:"details"`

	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

//
// ===============================
// PREPARE & VALIDATE
// ===============================
//

func (m *Match) Prepare() {
	m.Tournament = Tournament{}
	if m.Status == "" {
		m.Status = string(progression.StatusScheduled)
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = time.Now()
}

func (m *Match) Validate() map[string]string {
	errorsMap := make(map[string]string)

	if m.TournamentID == 0 {
		errorsMap["Required_tournament"] = errors.New("required tournament").Error()
	}
	if m.Round < 1 {
		errorsMap["Invalid_round"] = errors.New("round must be at least 1").Error()
	}
	switch progression.Status(m.Status) {
	case progression.StatusScheduled:
		if m.HomeScore != nil || m.AwayScore != nil {
			errorsMap["Invalid_score"] = errors.New("scheduled matches cannot carry a score").Error()
		}
	case progression.StatusLive, progression.StatusCompleted:
		if m.HomeScore == nil || m.AwayScore == nil {
			errorsMap["Required_score"] = errors.New("both scores are required once play starts").Error()
		}
	default:
		errorsMap["Invalid_status"] = errors.New("status must be scheduled, live or completed").Error()
	}
	for key, v := range map[string]*int{
		"home_score":         m.HomeScore,
		"away_score":         m.AwayScore,
		"home_penalty_score": m.HomePenaltyScore,
		"away_penalty_score": m.AwayPenaltyScore,
	} {
		if v != nil && *v < 0 {
			errorsMap["Invalid_"+key] = errors.New(key + " cannot be negative").Error()
		}
	}
	if (m.HomePenaltyScore == nil) != (m.AwayPenaltyScore == nil) {
		errorsMap["Invalid_penalty_score"] = errors.New("penalty scores must be given for both sides").Error()
	} else if m.HomePenaltyScore != nil {
		switch {
		case progression.Status(m.Status) == progression.StatusScheduled:
			errorsMap["Invalid_penalty_score"] = errors.New("scheduled matches cannot carry penalty scores").Error()
		case m.Details.Leg == 1:
			errorsMap["Invalid_penalty_score"] = errors.New("penalties are taken after the second leg").Error()
		case m.Details.Leg != 2 && m.HomeScore != nil && m.AwayScore != nil && *m.HomeScore != *m.AwayScore:
			// A second leg's shootout follows a level aggregate, which the resolver checks.
			errorsMap["Invalid_penalty_score"] = errors.New("penalty scores require a level score").Error()
		}
	}
	if m.HomeParticipantID != nil && m.AwayParticipantID != nil && *m.HomeParticipantID == *m.AwayParticipantID {
		errorsMap["Invalid_participants"] = errors.New("a participant cannot play itself").Error()
	}

	return errorsMap
}

// Progression converts the record into the resolver's view, validating its
// bracket details against the tournament format.
func (m *Match) Progression(t progression.Tournament) (progression.Match, error) {
	ctx, err := progression.ParseContext(t, m.Details)
	if err != nil {
		return progression.Match{}, err
	}
	return progression.Match{
		ID:                m.ID,
		TournamentID:      m.TournamentID,
		Round:             m.Round,
		Status:            progression.Status(m.Status),
		HomeParticipantID: derefUint(m.HomeParticipantID),
		AwayParticipantID: derefUint(m.AwayParticipantID),
		HomeScore:         m.HomeScore,
		AwayScore:         m.AwayScore,
		HomePenaltyScore:  m.HomePenaltyScore,
		AwayPenaltyScore:  m.AwayPenaltyScore,
		Context:           ctx,
	}, nil
}

// ParticipantOn returns the participant on side, if assigned.
func (m *Match) ParticipantOn(side progression.Side) *uint {
	if side == progression.Home {
		return m.HomeParticipantID
	}
	return m.AwayParticipantID
}

func derefUint(v *uint) uint {
	if v == nil {
		return 0
	}
	return *v
}

//
// ===============================
// DATABASE OPERATIONS
// ===============================
//

func (m *Match) SaveMatch(db *gorm.DB) (*Match, error) {
	if err := db.Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Match) FindMatchByID(db *gorm.DB, id uint) (*Match, error) {
	if err := db.Where("id = ?", id).First(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// FindTournamentMatches lists a tournament's matches, optionally one round.
func (m *Match) FindTournamentMatches(db *gorm.DB, tournamentID uint, round int) ([]Match, error) {
	var matches []Match
	q := db.Where("tournament_id = ?", tournamentID)
	if round > 0 {
		q = q.Where("round = ?", round)
	}
	err := q.Order("round ASC, match_index ASC, leg ASC, id ASC").Find(&matches).Error
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// FindSlotMatches returns the match (or both legs) at a bracket position.
func (m *Match) FindSlotMatches(db *gorm.DB, tournamentID uint, round, index int) ([]Match, error) {
	var matches []Match
	err := db.
		Where("tournament_id = ? AND round = ? AND match_index = ?", tournamentID, round, index).
		Order("leg ASC, id ASC").
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// UpdateResult persists score entry fields.
func (m *Match) UpdateResult(db *gorm.DB) (*Match, error) {
	m.UpdatedAt = time.Now()
	if m.Status == string(progression.StatusCompleted) && m.CompletedAt == nil {
		now := m.UpdatedAt
		m.CompletedAt = &now
	}

	err := db.Model(&Match{}).
		Where("id = ?", m.ID).
		Updates(map[string]interface{}{
			"status":             m.Status,
			"home_score":         m.HomeScore,
			"away_score":         m.AwayScore,
			"home_penalty_score": m.HomePenaltyScore,
			"away_penalty_score": m.AwayPenaltyScore,
			"completed_at":       m.CompletedAt,
			"updated_at":         m.UpdatedAt,
		}).Error
	if err != nil {
		return nil, err
	}
	return m, nil
}

// AssignParticipant fills one side of the match.
func (m *Match) AssignParticipant(db *gorm.DB, side progression.Side, participantID uint) error {
	column := "home_participant_id"
	if side == progression.Away {
		column = "away_participant_id"
	}
	now := time.Now()
	err := db.Model(&Match{}).
		Where("id = ?", m.ID).
		Updates(map[string]interface{}{
			column:       participantID,
			"updated_at": now,
		}).Error
	if err != nil {
		return err
	}

	if side == progression.Home {
		m.HomeParticipantID = &participantID
	} else {
		m.AwayParticipantID = &participantID
	}
	m.UpdatedAt = now
	return nil
}
