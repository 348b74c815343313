package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"Tourney/api/cache"
	"Tourney/api/models"

	"github.com/gin-gonic/gin"
)

// CreateTournament registers a tournament. Status defaults to active.
func (s *Server) CreateTournament(c *gin.Context) {
	errList := map[string]string{}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		errList["Invalid_body"] = "Unable to get request"
		respondErrors(c, http.StatusUnprocessableEntity, errList)
		return
	}

	tournament := models.Tournament{}
	if err := json.Unmarshal(body, &tournament); err != nil {
		errList["Unmarshal_error"] = "Cannot unmarshal body"
		respondErrors(c, http.StatusUnprocessableEntity, errList)
		return
	}
	tournament.ID = 0
	tournament.ChampionParticipantID = nil
	tournament.CompletedAt = nil

	tournament.Prepare()
	if errorMessages := tournament.Validate(); len(errorMessages) > 0 {
		respondErrors(c, http.StatusUnprocessableEntity, errorMessages)
		return
	}

	created, err := tournament.SaveTournament(s.DB)
	if err != nil {
		s.respondProgressionError(c, err, "Tournament")
		return
	}
	respond(c, http.StatusCreated, created)
}

func (s *Server) GetTournament(c *gin.Context) {
	tournament, err := resolveTournamentByIdentifier(s.DB, c.Param("id"))
	if err != nil {
		s.respondProgressionError(c, err, "Tournament")
		return
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("tournament:%d", tournament.ID)
	if cached, err := cache.Get(ctx, cacheKey); err == nil && cached != "" {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	if jsonBytes, err := json.Marshal(gin.H{
		"status":   http.StatusOK,
		"response": tournament,
	}); err == nil {
		_ = cache.Set(ctx, cacheKey, jsonBytes, cacheTTL)
	}
	respond(c, http.StatusOK, tournament)
}

func (s *Server) CreateParticipant(c *gin.Context) {
	errList := map[string]string{}

	tournament, err := resolveTournamentByIdentifier(s.DB, c.Param("id"))
	if err != nil {
		s.respondProgressionError(c, err, "Tournament")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		errList["Invalid_body"] = "Unable to get request"
		respondErrors(c, http.StatusUnprocessableEntity, errList)
		return
	}
	participant := models.Participant{}
	if err := json.Unmarshal(body, &participant); err != nil {
		errList["Unmarshal_error"] = "Cannot unmarshal body"
		respondErrors(c, http.StatusUnprocessableEntity, errList)
		return
	}
	participant.ID = 0
	participant.TournamentID = tournament.ID

	participant.Prepare()
	if errorMessages := participant.Validate(); len(errorMessages) > 0 {
		respondErrors(c, http.StatusUnprocessableEntity, errorMessages)
		return
	}

	created, err := participant.SaveParticipant(s.DB)
	if err != nil {
		s.respondProgressionError(c, err, "Participant")
		return
	}
	respond(c, http.StatusCreated, created)
}

func (s *Server) GetParticipants(c *gin.Context) {
	tournament, err := resolveTournamentByIdentifier(s.DB, c.Param("id"))
	if err != nil {
		s.respondProgressionError(c, err, "Tournament")
		return
	}

	participants, err := (&models.Participant{}).FindTournamentParticipants(s.DB, tournament.ID)
	if err != nil {
		s.respondProgressionError(c, err, "Participant")
		return
	}
	respond(c, http.StatusOK, participants)
}
