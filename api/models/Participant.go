package models

import (
	"errors"
	"html"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Participant struct {
	ID           uint       `gorm:"primary_key;autoIncrement" json:"id"`
	Tournament   Tournament `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	TournamentID uint       `gorm:"not null;index" json:"tournament_id"`
	Name         string     `gorm:"size:255;not null" json:"name"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (p *Participant) Prepare() {
	p.Name = html.EscapeString(strings.TrimSpace(p.Name))
	p.Tournament = Tournament{}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
}

func (p *Participant) Validate() map[string]string {
	errorsMap := make(map[string]string)
	if p.Name == "" {
		errorsMap["Required_name"] = errors.New("required name").Error()
	}
	if p.TournamentID == 0 {
		errorsMap["Required_tournament"] = errors.New("required tournament").Error()
	}
	return errorsMap
}

func (p *Participant) SaveParticipant(db *gorm.DB) (*Participant, error) {
	if err := db.Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Participant) FindTournamentParticipants(db *gorm.DB, tournamentID uint) ([]Participant, error) {
	var participants []Participant
	err := db.
		Where("tournament_id = ?", tournamentID).
		Order("id ASC").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// CountInTournament returns how many of ids are registered in the tournament.
func (p *Participant) CountInTournament(db *gorm.DB, tournamentID uint, ids ...uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := db.Model(&Participant{}).
		Where("tournament_id = ? AND id IN ?", tournamentID, ids).
		Count(&count).Error
	return count, err
}
