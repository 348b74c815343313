package models

import (
	"errors"
	"html"
	"strings"
	"time"

	"Tourney/api/progression"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	TournamentStatusDraft     = "draft"
	TournamentStatusActive    = "active"
	TournamentStatusCompleted = "completed"
)

type Tournament struct {
	ID       uint      `gorm:"primary_key;autoIncrement" json:"id"`
	PublicID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"public_id"`
	Name     string    `gorm:"size:255;not null" json:"name"`

	Type        string `gorm:"size:20;not null" json:"type"`
	MatchFormat string `gorm:"size:20;not null;default:'single'" json:"match_format"`
	// TotalRounds is the final knockout round; 0 when the generator did not say.
	TotalRounds int    `gorm:"default:0" json:"total_rounds"`
	Status      string `gorm:"size:20;not null;default:'draft'" json:"status"`

	ChampionParticipantID *uint      `json:"champion_participant_id"`
	CompletedAt           *time.Time `json:"completed_at"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

//
// ===============================
// PREPARE & VALIDATE
// ===============================
//

func (t *Tournament) Prepare() {
	t.Name = html.EscapeString(strings.TrimSpace(t.Name))
	t.Type = strings.ToLower(strings.TrimSpace(t.Type))
	t.MatchFormat = strings.ToLower(strings.TrimSpace(t.MatchFormat))
	if t.PublicID == uuid.Nil {
		t.PublicID = uuid.New()
	}
	if t.MatchFormat == "" {
		t.MatchFormat = string(progression.Single)
	}
	if t.Status == "" {
		t.Status = TournamentStatusActive
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()
}

func (t *Tournament) Validate() map[string]string {
	errorsMap := make(map[string]string)

	if t.Name == "" {
		errorsMap["Required_name"] = errors.New("required name").Error()
	}
	switch progression.TournamentType(t.Type) {
	case progression.League, progression.Knockout, progression.GroupKnockout:
	default:
		errorsMap["Invalid_type"] = errors.New("type must be league, knockout or group_knockout").Error()
	}
	switch progression.MatchFormat(t.MatchFormat) {
	case progression.Single, progression.HomeAway:
	default:
		errorsMap["Invalid_match_format"] = errors.New("match_format must be single or home_away").Error()
	}
	if t.TotalRounds < 0 {
		errorsMap["Invalid_total_rounds"] = errors.New("total_rounds cannot be negative").Error()
	}
	switch t.Status {
	case TournamentStatusDraft, TournamentStatusActive, TournamentStatusCompleted:
	default:
		errorsMap["Invalid_status"] = errors.New("unknown status").Error()
	}

	return errorsMap
}

// Progression returns the resolver's view of the tournament.
func (t *Tournament) Progression() progression.Tournament {
	return progression.Tournament{
		ID:     t.ID,
		Type:   progression.TournamentType(t.Type),
		Format: progression.MatchFormat(t.MatchFormat),
	}
}

//
// ===============================
// DATABASE OPERATIONS
// ===============================
//

func (t *Tournament) SaveTournament(db *gorm.DB) (*Tournament, error) {
	if err := db.Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tournament) FindTournamentByID(db *gorm.DB, id uint) (*Tournament, error) {
	if err := db.Where("id = ?", id).First(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tournament) FindTournamentByPublicID(db *gorm.DB, publicID uuid.UUID) (*Tournament, error) {
	if err := db.Where("public_id = ?", publicID).First(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// LockTournament re-reads the tournament row with FOR UPDATE. It must run
// inside a transaction; dialects without row locks ignore the clause.
func (t *Tournament) LockTournament(tx *gorm.DB, id uint) (*Tournament, error) {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(t, id).Error
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FindActiveTournaments lists tournaments still accepting results.
func (t *Tournament) FindActiveTournaments(db *gorm.DB) ([]Tournament, error) {
	var tournaments []Tournament
	err := db.
		Where("status = ?", TournamentStatusActive).
		Order("id ASC").
		Find(&tournaments).Error
	if err != nil {
		return nil, err
	}
	return tournaments, nil
}

// CompleteTournament records the champion and closes the tournament.
func (t *Tournament) CompleteTournament(db *gorm.DB, championID uint) error {
	now := time.Now()
	err := db.Model(&Tournament{}).
		Where("id = ?", t.ID).
		Updates(map[string]interface{}{
			"status":                  TournamentStatusCompleted,
			"champion_participant_id": championID,
			"completed_at":            now,
			"updated_at":              now,
		}).Error
	if err != nil {
		return err
	}

	t.Status = TournamentStatusCompleted
	t.ChampionParticipantID = &championID
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}
