package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"Tourney/api/advancement"
	"Tourney/api/cache"
	"Tourney/api/progression"
	httpctx "Tourney/api/utils/httpctx"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func respondErrors(c *gin.Context, code int, errList map[string]string) {
	c.JSON(code, gin.H{
		"status": code,
		"error":  errList,
	})
}

func respond(c *gin.Context, code int, response interface{}) {
	c.JSON(code, gin.H{
		"status":   code,
		"response": response,
	})
}

// respondProgressionError maps lookup, validation and resolver failures onto
// the error envelope. notFound names the resource for 404s.
func (s *Server) respondProgressionError(c *gin.Context, err error, notFound string) {
	var verr *advancement.ValidationError
	switch {
	case errors.As(err, &verr):
		respondErrors(c, http.StatusUnprocessableEntity, verr.Fields)
	case errors.Is(err, errInvalidIdentifier):
		respondErrors(c, http.StatusBadRequest, map[string]string{"Invalid_id": "Invalid " + notFound + " ID"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondErrors(c, http.StatusNotFound, map[string]string{"Not_found": notFound + " not found"})
	case errors.Is(err, progression.ErrInvalidState):
		respondErrors(c, http.StatusConflict, map[string]string{"Invalid_state": err.Error()})
	case errors.Is(err, advancement.ErrSlotConflict):
		respondErrors(c, http.StatusConflict, map[string]string{"Slot_conflict": err.Error()})
	case errors.Is(err, progression.ErrMissingPenaltyScore):
		respondErrors(c, http.StatusUnprocessableEntity, map[string]string{"Missing_penalty_score": err.Error()})
	case progression.IsIntegrityError(err):
		respondErrors(c, http.StatusInternalServerError, map[string]string{
			"Bracket_integrity": err.Error(),
			"Correlation_id":    httpctx.CorrelationID(c),
		})
	case errors.Is(err, cache.ErrLockTimeout):
		respondErrors(c, http.StatusServiceUnavailable, map[string]string{"Busy": "Tournament is busy, retry shortly"})
	default:
		id := httpctx.CorrelationID(c)
		s.Logger.Error("request failed",
			slog.String("path", c.FullPath()),
			slog.String("correlation_id", id),
			slog.Any("error", err),
		)
		respondErrors(c, http.StatusInternalServerError, map[string]string{
			"Internal_error": "Something went wrong",
			"Correlation_id": id,
		})
	}
}
