package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
	ierr "github.com/warebill/warebill/internal/errors"
	"golang.org/x/time/rate"
)

// RateLimiter applies a per-client token bucket keyed by client IP. Limiters
// are kept for the lifetime of the process; billing APIs see a small, stable
// set of callers.
func RateLimiter(rps rate.Limit, burst int) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters[key]; ok {
			return l
		}
		l := rate.NewLimiter(rps, burst)
		limiters[key] = l
		return l
	}

	return func(c *gin.Context) {
		if !limiterFor(c.ClientIP()).Allow() {
			c.Error(ierr.NewError("rate limit exceeded").
				WithHint("Too many requests, please slow down").
				Mark(ierr.ErrTooManyRequests))
			c.Abort()
			return
		}
		c.Next()
	}
}
