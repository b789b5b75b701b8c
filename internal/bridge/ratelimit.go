package bridge

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-connection command rate using a token bucket.
type RateLimiter struct {
	limiters sync.Map   // connection id → *limiterEntry
	r        rate.Limit // refill rate (commands per second)
	burst    int
}

type limiterEntry struct {
	limiter *rate.Limiter

	// lastSeen holds unix nanoseconds. Atomic because Allow stamps it
	// while cleanupLoop reads it from another goroutine.
	lastSeen atomic.Int64
}

// NewRateLimiter creates a limiter allowing rpm commands per minute with
// the given burst. rpm <= 0 disables the limiter.
func NewRateLimiter(rpm, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 5
	}
	r := rate.Limit(0)
	if rpm > 0 {
		r = rate.Limit(float64(rpm) / 60.0)
	}
	rl := &RateLimiter{r: r, burst: burst}

	go rl.cleanupLoop()

	return rl
}

// Allow reports whether a command from the given connection may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	if rl.r == 0 {
		return true
	}
	entry := rl.getOrCreate(key)
	if !entry.limiter.Allow() {
		slog.Warn("command rate limited", "connection", key)
		return false
	}
	entry.lastSeen.Store(time.Now().UnixNano())
	return true
}

func (rl *RateLimiter) getOrCreate(key string) *limiterEntry {
	if v, ok := rl.limiters.Load(key); ok {
		return v.(*limiterEntry)
	}
	entry := &limiterEntry{limiter: rate.NewLimiter(rl.r, rl.burst)}
	entry.lastSeen.Store(time.Now().UnixNano())
	actual, _ := rl.limiters.LoadOrStore(key, entry)
	return actual.(*limiterEntry)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute).UnixNano()
		rl.limiters.Range(func(key, value any) bool {
			if value.(*limiterEntry).lastSeen.Load() < cutoff {
				rl.limiters.Delete(key)
			}
			return true
		})
	}
}
