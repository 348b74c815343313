package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// visitor holds the rate limiter and the last time we saw this IP.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorSet is a per-IP limiter table.
type visitorSet struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	newLimit func() *rate.Limiter
}

func newVisitorSet(newLimit func() *rate.Limiter) *visitorSet {
	return &visitorSet{visitors: make(map[string]*visitor), newLimit: newLimit}
}

func (s *visitorSet) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exists := s.visitors[ip]
	if !exists {
		v = &visitor{limiter: s.newLimit()}
		s.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// sweep drops visitors idle for longer than ttl.
func (s *visitorSet) sweep(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ip, v := range s.visitors {
		if time.Since(v.lastSeen) > ttl {
			delete(s.visitors, ip)
		}
	}
}

func (s *visitorSet) reset() {
	s.mu.Lock()
	s.visitors = make(map[string]*visitor)
	s.mu.Unlock()
}

var (
	// General API visitors: 1 request/second average, burst of 100.
	visitors = newVisitorSet(func() *rate.Limiter {
		return rate.NewLimiter(rate.Every(time.Second), 100)
	})

	// Score entry is stricter: one write every 2 seconds, burst of 10.
	scoreVisitors = newVisitorSet(func() *rate.Limiter {
		return rate.NewLimiter(rate.Every(2*time.Second), 10)
	})
)

// SweepVisitors forgets idle IPs in both limiter tables.
func SweepVisitors(ttl time.Duration) {
	visitors.sweep(ttl)
	scoreVisitors.sweep(ttl)
}

func limit(set *visitorSet, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !set.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status": http.StatusTooManyRequests,
				"error":  map[string]string{"Too_many_requests": message},
			})
			return
		}
		c.Next()
	}
}

// RateLimitMiddleware applies a simple per-IP rate limit for all routes.
func RateLimitMiddleware() gin.HandlerFunc {
	return limit(visitors, "Too many requests. Please slow down.")
}

// ScoreRateLimitMiddleware applies a stricter per-IP limit to score entry.
func ScoreRateLimitMiddleware() gin.HandlerFunc {
	return limit(scoreVisitors, "Too many score submissions. Please wait and try again.")
}
