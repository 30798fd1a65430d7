package tools

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces per-agent tool execution limits using a token
// bucket. Pass 0 requests per minute to NewRateLimiter to disable.
type RateLimiter struct {
	limiters sync.Map // key → *limiterEntry
	r        rate.Limit
	burst    int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter allowing rpm tool executions per
// minute per key with the given burst.
func NewRateLimiter(rpm, burst int) *RateLimiter {
	if rpm <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	rl := &RateLimiter{r: rate.Limit(float64(rpm) / 60.0), burst: burst}
	go rl.cleanupLoop()
	return rl
}

// Allow checks whether a tool execution is permitted for the given key.
// A nil limiter always allows.
func (rl *RateLimiter) Allow(key string) error {
	if rl == nil {
		return nil
	}
	entry := rl.getOrCreate(key)
	entry.lastSeen = time.Now()
	if !entry.limiter.Allow() {
		return fmt.Errorf("tool rate limit exceeded for %s", key)
	}
	return nil
}

func (rl *RateLimiter) getOrCreate(key string) *limiterEntry {
	if v, ok := rl.limiters.Load(key); ok {
		return v.(*limiterEntry)
	}
	entry := &limiterEntry{
		limiter:  rate.NewLimiter(rl.r, rl.burst),
		lastSeen: time.Now(),
	}
	actual, _ := rl.limiters.LoadOrStore(key, entry)
	return actual.(*limiterEntry)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-30 * time.Minute)
		rl.limiters.Range(func(key, v any) bool {
			if v.(*limiterEntry).lastSeen.Before(cutoff) {
				rl.limiters.Delete(key)
			}
			return true
		})
	}
}
