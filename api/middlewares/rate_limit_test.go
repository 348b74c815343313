package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// helper to reset global state between tests
func resetLimiters() {
	visitors.reset()
	scoreVisitors.reset()
}

// makeTestRouter creates a Gin engine with a single middleware and a test route.
func makeTestRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	return r
}

func hit(r *gin.Engine) int {
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitMiddleware_AllowsInitialBurst(t *testing.T) {
	resetLimiters()
	router := makeTestRouter(RateLimitMiddleware())

	for i := 0; i < 100; i++ {
		if !assert.Equal(t, http.StatusOK, hit(router), "request %d", i+1) {
			return
		}
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(router))
}

func TestScoreRateLimitMiddleware_StricterLimit(t *testing.T) {
	resetLimiters()
	router := makeTestRouter(ScoreRateLimitMiddleware())

	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, hit(router), "submission %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(router))
}

func TestSweepVisitors(t *testing.T) {
	resetLimiters()
	router := makeTestRouter(ScoreRateLimitMiddleware())
	for i := 0; i < 11; i++ {
		hit(router)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(router))

	SweepVisitors(-time.Second)
	assert.Equal(t, http.StatusOK, hit(router))
}
