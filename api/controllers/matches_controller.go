package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"Tourney/api/advancement"
	"Tourney/api/cache"
	"Tourney/api/models"
	"Tourney/api/progression"

	"github.com/gin-gonic/gin"
)

// matchInput is one match of the bracket generator's output.
type matchInput struct {
	Round             int                 `json:"round"`
	HomeParticipantID *uint               `json:"home_participant_id"`
	AwayParticipantID *uint               `json:"away_participant_id"`
	Details           progression.Details `json:"details"`
}

// CreateMatch stores a generated fixture. Scores are entered separately.
func (s *Server) CreateMatch(c *gin.Context) {
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
	input := matchInput{}
	if err := json.Unmarshal(body, &input); err != nil {
		errList["Unmarshal_error"] = "Cannot unmarshal body"
		respondErrors(c, http.StatusUnprocessableEntity, errList)
		return
	}

	match := models.Match{
		TournamentID:      tournament.ID,
		Round:             input.Round,
		Status:            string(progression.StatusScheduled),
		HomeParticipantID: input.HomeParticipantID,
		AwayParticipantID: input.AwayParticipantID,
		Details:           input.Details,
	}
	match.Prepare()
	errList = match.Validate()

	pt := tournament.Progression()
	matchCtx, err := progression.ParseContext(pt, match.Details)
	if err != nil {
		errList["Invalid_details"] = err.Error()
	}

	var ids []uint
	for _, id := range []*uint{match.HomeParticipantID, match.AwayParticipantID} {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	if len(ids) > 0 {
		count, err := (&models.Participant{}).CountInTournament(s.DB, tournament.ID, ids...)
		if err != nil {
			s.respondProgressionError(c, err, "Participant")
			return
		}
		if int(count) != len(ids) {
			errList["Invalid_participant"] = "participants must belong to the tournament"
		}
	}
	if len(errList) > 0 {
		respondErrors(c, http.StatusUnprocessableEntity, errList)
		return
	}

	if index, leg, knockout := slotOf(matchCtx); knockout {
		existing, err := match.FindSlotMatches(s.DB, tournament.ID, match.Round, index)
		if err != nil {
			s.respondProgressionError(c, err, "Match")
			return
		}
		for _, m := range existing {
			if leg == 0 || m.Details.Leg == leg {
				respondErrors(c, http.StatusConflict, map[string]string{
					"Slot_taken": "a match already occupies this bracket position",
				})
				return
			}
		}
	}

	created, err := match.SaveMatch(s.DB)
	if err != nil {
		s.respondProgressionError(c, err, "Match")
		return
	}
	invalidateMatchListCache(tournament.ID)
	respond(c, http.StatusCreated, created)
}

// slotOf returns the bracket position of a knockout match. leg is 0 for
// single-match ties.
func slotOf(ctx progression.MatchContext) (index, leg int, knockout bool) {
	switch mc := ctx.(type) {
	case progression.SingleLegContext:
		return mc.MatchIndex, 0, true
	case progression.TwoLegContext:
		return mc.MatchIndex, mc.Leg, true
	default:
		return 0, 0, false
	}
}

// GetTournamentMatches lists matches in bracket order, optionally one round.
func (s *Server) GetTournamentMatches(c *gin.Context) {
	tournament, err := resolveTournamentByIdentifier(s.DB, c.Param("id"))
	if err != nil {
		s.respondProgressionError(c, err, "Tournament")
		return
	}

	round := 0
	if raw := c.Query("round"); raw != "" {
		round, err = strconv.Atoi(raw)
		if err != nil || round < 1 {
			respondErrors(c, http.StatusBadRequest, map[string]string{"Invalid_round": "round must be a positive integer"})
			return
		}
	}

	ctx := context.Background()
	cacheKey := matchListCacheKey(tournament.ID, round)
	if cached, err := cache.Get(ctx, cacheKey); err == nil && cached != "" {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	matches, err := (&models.Match{}).FindTournamentMatches(s.DB, tournament.ID, round)
	if err != nil {
		s.respondProgressionError(c, err, "Match")
		return
	}

	if jsonBytes, err := json.Marshal(gin.H{
		"status":   http.StatusOK,
		"response": matches,
	}); err == nil {
		_ = cache.Set(ctx, cacheKey, jsonBytes, cacheTTL)
	}
	respond(c, http.StatusOK, matches)
}

func (s *Server) GetMatch(c *gin.Context) {
	matchID, err := parseMatchID(c.Param("id"))
	if err != nil {
		s.respondProgressionError(c, err, "Match")
		return
	}

	match, err := (&models.Match{}).FindMatchByID(s.DB, matchID)
	if err != nil {
		s.respondProgressionError(c, err, "Match")
		return
	}
	respond(c, http.StatusOK, match)
}

// RecordMatchScore is score entry. Completing a knockout match resolves the
// tie and advances the winner before responding.
func (s *Server) RecordMatchScore(c *gin.Context) {
	errList := map[string]string{}

	matchID, err := parseMatchID(c.Param("id"))
	if err != nil {
		s.respondProgressionError(c, err, "Match")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		errList["Invalid_body"] = "Unable to get request"
		respondErrors(c, http.StatusUnprocessableEntity, errList)
		return
	}
	input := advancement.ResultInput{}
	if err := json.Unmarshal(body, &input); err != nil {
		errList["Unmarshal_error"] = "Cannot unmarshal body"
		respondErrors(c, http.StatusUnprocessableEntity, errList)
		return
	}

	result, err := s.Progression.RecordResult(c.Request.Context(), matchID, input)
	if err != nil {
		s.respondProgressionError(c, err, "Match")
		return
	}
	invalidateMatchListCache(result.Match.TournamentID)
	if result.Applied != nil && result.Applied.ChampionID != 0 {
		invalidateTournamentCache(result.Match.TournamentID)
	}
	respond(c, http.StatusOK, result)
}

// GetMatchProgression resolves a match without writing anything.
func (s *Server) GetMatchProgression(c *gin.Context) {
	matchID, err := parseMatchID(c.Param("id"))
	if err != nil {
		s.respondProgressionError(c, err, "Match")
		return
	}

	inspection, err := s.Progression.Inspect(c.Request.Context(), matchID)
	if err != nil {
		s.respondProgressionError(c, err, "Match")
		return
	}
	respond(c, http.StatusOK, inspection)
}

func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		respondErrors(c, http.StatusServiceUnavailable, map[string]string{"Database": "unreachable"})
		return
	}
	respond(c, http.StatusOK, gin.H{"database": "ok", "redis": cache.Client != nil})
}
