// Package ratelimit provides a keyed token-bucket limiter used to guard
// the session-create endpoint. Limits are per user id; unknown keys get
// a fresh bucket on first use.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// KeyedLimiter maps string keys to token buckets with a shared rate and
// burst.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	b        int
}

// NewKeyedLimiter creates a limiter allowing r events per second with
// burst b per key.
func NewKeyedLimiter(r float64, b int) *KeyedLimiter {
	return &KeyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        rate.Limit(r),
		b:        b,
	}
}

// Allow reports whether the key may proceed. An empty key is always
// allowed (fail open, matching the rest of the edge).
func (l *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.r, l.b)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// Reset drops the bucket for key.
func (l *KeyedLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.limiters, key)
	l.mu.Unlock()
}
