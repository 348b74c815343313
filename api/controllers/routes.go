package controllers

import (
	"Tourney/api/middlewares"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initializeRoutes() {
	organizer := middlewares.OrganizerTokenMiddleware(s.Config.Organizer.Token)

	s.Router.GET("/healthz", s.Healthz)
	s.Router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})))

	v1 := s.Router.Group("/api/v1")
	{
		// Tournament routes
		v1.POST("/tournaments", organizer, s.CreateTournament)
		v1.GET("/tournaments/:id", s.GetTournament)

		// Participant routes
		v1.POST("/tournaments/:id/participants", organizer, s.CreateParticipant)
		v1.GET("/tournaments/:id/participants", s.GetParticipants)

		// Match routes
		v1.POST("/tournaments/:id/matches", organizer, s.CreateMatch)
		v1.GET("/tournaments/:id/matches", s.GetTournamentMatches)
		v1.GET("/matches/:id", s.GetMatch)
		v1.PUT("/matches/:id/score", organizer, middlewares.ScoreRateLimitMiddleware(), s.RecordMatchScore)
		v1.GET("/matches/:id/progression", s.GetMatchProgression)
	}
}
