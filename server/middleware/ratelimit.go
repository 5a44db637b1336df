package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/flowengine/errors"
)

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	// RequestsPerMinute is the budget per key (default: 60).
	RequestsPerMinute int
	// KeyFunc extracts the limit key. Defaults to UserKey.
	KeyFunc func(*gin.Context) string
}

// RateLimit applies a per-key sliding-window limit. It is meant for
// expensive routes such as workflow execution and runs after Authenticate.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = UserKey
	}
	rl := newRateLimiter(cfg.RequestsPerMinute, time.Minute, time.Now)

	return func(c *gin.Context) {
		if wait, ok := rl.allow(cfg.KeyFunc(c)); !ok {
			abortWithError(c, apperrors.RateLimited(wait))
			return
		}
		c.Next()
	}
}

// UserKey keys on the authenticated user, falling back to the client IP.
func UserKey(c *gin.Context) string {
	if uid := c.GetString("user_id"); uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.ClientIP()
}

type rateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func newRateLimiter(limit int, window time.Duration, now func() time.Time) *rateLimiter {
	return &rateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		now:       now,
		lastSweep: now(),
	}
}

// allow records a request for key. When over budget it returns how long
// until the oldest request leaves the window.
func (rl *rateLimiter) allow(key string) (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	if now.Sub(rl.lastSweep) > 5*rl.window {
		rl.sweep(cutoff)
		rl.lastSweep = now
	}

	valid := filterByTime(rl.requests[key], cutoff)
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return valid[0].Sub(cutoff), false
	}
	rl.requests[key] = append(valid, now)
	return 0, true
}

func (rl *rateLimiter) sweep(cutoff time.Time) {
	for key, times := range rl.requests {
		valid := filterByTime(times, cutoff)
		if len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

func filterByTime(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}
