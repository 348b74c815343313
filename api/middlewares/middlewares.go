package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"Tourney/api/events"
	httpctx "Tourney/api/utils/httpctx"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/gin-gonic/gin"
)

const CorrelationHeader = "X-Correlation-ID"

// OrganizerTokenMiddleware guards organizer-only routes with a shared bearer
// token. An empty token leaves the routes open, which is only meant for local
// development.
func OrganizerTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		bearer := strings.TrimSpace(c.GetHeader("Authorization"))
		provided := strings.TrimSpace(strings.TrimPrefix(bearer, "Bearer "))
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status": http.StatusUnauthorized,
				"error":  map[string]string{"Unauthorized": "Unauthorized"},
			})
			return
		}

		c.Next()
	}
}

// CorrelationIDMiddleware reuses the caller's X-Correlation-ID or mints one,
// echoes it back and carries it on the request context so published events
// share it.
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(CorrelationHeader))
		if id == "" {
			id = watermill.NewUUID()
		}
		c.Set(httpctx.CorrelationKey, id)
		c.Request = c.Request.WithContext(events.WithCorrelationID(c.Request.Context(), id))
		c.Writer.Header().Set(CorrelationHeader, id)
		c.Next()
	}
}

// CORSMiddleware lets the configured front-end origins call the API.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		for _, o := range allowedOrigins {
			if o == origin {
				c.Writer.Header().Set("Access-Control-Allow-Origin", o)
				break
			}
		}

		c.Writer.Header().Set("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, Authorization, Content-Length, Accept, Origin, Cache-Control, X-Requested-With, "+CorrelationHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", CorrelationHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods",
			"POST, GET, OPTIONS, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
