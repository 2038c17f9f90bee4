package signal

import (
	"sync"
	"time"

	"github.com/dkeye/Lobby/internal/domain"
)

// RateLimiter is a sliding-window limiter keyed by connection. It
// implements core.RateLimiter.
type RateLimiter struct {
	mu       sync.Mutex
	history  map[domain.ConnID][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		history:  make(map[domain.ConnID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *RateLimiter) Allow(conn domain.ConnID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[conn]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[conn] = fresh
		return false
	}
	rl.history[conn] = append(fresh, now)
	return true
}

// Forget drops the history of a departed connection.
func (rl *RateLimiter) Forget(conn domain.ConnID) {
	rl.mu.Lock()
	delete(rl.history, conn)
	rl.mu.Unlock()
}
