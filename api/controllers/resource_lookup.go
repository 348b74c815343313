package controllers

import (
	"errors"
	"strconv"
	"strings"

	"Tourney/api/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errInvalidIdentifier = errors.New("invalid identifier")

func isUUIDLike(value string) bool {
	if len(value) != 36 {
		return false
	}
	for i, r := range value {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return false
			}
		default:
			if (r < '0' || r > '9') && (r < 'a' || r > 'f') && (r < 'A' || r > 'F') {
				return false
			}
		}
	}
	return true
}

// resolveTournamentByIdentifier accepts a numeric id or a public uuid.
func resolveTournamentByIdentifier(db *gorm.DB, identifier string) (*models.Tournament, error) {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil, errInvalidIdentifier
	}
	var tournament models.Tournament
	if isUUIDLike(trimmed) {
		publicID, err := uuid.Parse(trimmed)
		if err != nil {
			return nil, errInvalidIdentifier
		}
		return tournament.FindTournamentByPublicID(db, publicID)
	}
	numericID, err := strconv.ParseUint(trimmed, 10, 32)
	if err != nil || numericID == 0 {
		return nil, errInvalidIdentifier
	}
	return tournament.FindTournamentByID(db, uint(numericID))
}

func parseMatchID(identifier string) (uint, error) {
	numericID, err := strconv.ParseUint(strings.TrimSpace(identifier), 10, 32)
	if err != nil || numericID == 0 {
		return 0, errInvalidIdentifier
	}
	return uint(numericID), nil
}
