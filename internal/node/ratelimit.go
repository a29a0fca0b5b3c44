// ratelimit.go - Per-identity submission rate limiting.
package node

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// mapLimiter applies a token bucket per identity and evicts idle entries
// during Allow calls, so an adversary cycling identities cannot grow the
// map without bound.
type mapLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu        sync.Mutex
	byKey     map[string]*limiterEntry
	lastSweep time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newMapLimiter creates a keyed limiter; returns nil (limit disabled) if
// the arguments are invalid.
func newMapLimiter(rps float64, burst int, idleTTL time.Duration) *mapLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &mapLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		byKey:   make(map[string]*limiterEntry),
	}
}

// Allow reports whether one token can be consumed for the identity at now.
func (l *mapLimiter) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.idleTTL {
		for k, e := range l.byKey {
			if now.Sub(e.lastSeen) > l.idleTTL {
				delete(l.byKey, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.byKey[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}
