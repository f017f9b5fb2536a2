package auth

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter throttles login and password-reset attempts per client IP and
// identifier. It complements the per-account lockout in Service, which an
// attacker cycling through usernames would never trigger.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptWindow
	max      int
	window   time.Duration
	lockout  time.Duration
	now      func() time.Time
}

type attemptWindow struct {
	count       int
	started     time.Time
	lockedUntil time.Time
}

// NewRateLimiter returns a limiter allowing max failures per window before
// blocking the key for lockout. Zero values fall back to 5, 15m and 30m.
func NewRateLimiter(max int, window, lockout time.Duration) *RateLimiter {
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if lockout <= 0 {
		lockout = 30 * time.Minute
	}
	return &RateLimiter{
		attempts: make(map[string]*attemptWindow),
		max:      max,
		window:   window,
		lockout:  lockout,
		now:      time.Now,
	}
}

func limiterKey(ip, identifier string) string {
	return ip + "|" + strings.ToLower(identifier)
}

// Allow reports whether another attempt is permitted and, if not, how long
// the caller must wait.
func (rl *RateLimiter) Allow(ip, identifier string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.attempts[limiterKey(ip, identifier)]
	if !ok {
		return true, 0
	}
	now := rl.now()
	if now.Before(rec.lockedUntil) {
		return false, rec.lockedUntil.Sub(now)
	}
	return true, 0
}

// RecordFailure counts a failed attempt and reports whether the key is now
// locked.
func (rl *RateLimiter) RecordFailure(ip, identifier string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	key := limiterKey(ip, identifier)
	rec, ok := rl.attempts[key]
	if !ok || now.Sub(rec.started) > rl.window {
		rec = &attemptWindow{started: now}
		rl.attempts[key] = rec
	}
	rec.count++
	if rec.count >= rl.max {
		rec.lockedUntil = now.Add(rl.lockout)
		return true
	}
	return false
}

func (rl *RateLimiter) RecordSuccess(ip, identifier string) {
	rl.mu.Lock()
	delete(rl.attempts, limiterKey(ip, identifier))
	rl.mu.Unlock()
}

// Prune drops records whose window and lockout have both passed. It is
// called from the maintenance scheduler.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, rec := range rl.attempts {
		if now.Sub(rec.started) > rl.window && !now.Before(rec.lockedUntil) {
			delete(rl.attempts, key)
			removed++
		}
	}
	return removed
}

// Middleware rejects POSTs from locked keys with 429. The identifier is read
// from the form field named field.
func (rl *RateLimiter) Middleware(field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		identifier := c.PostForm(field)
		if identifier == "" {
			c.Next()
			return
		}
		if ok, retryAfter := rl.Allow(c.ClientIP(), identifier); !ok {
			c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many attempts",
				"retry_after": retryAfter.Round(time.Second).String(),
			})
			return
		}
		c.Next()
	}
}
