package mid

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiters hands out one token bucket per key.
type Limiters struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	lims  map[string]*keyedLimiter
	now   func() time.Time
}

type keyedLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewLimiters creates a keyed limiter set; every key gets limit events per
// second with the given burst.
func NewLimiters(limit rate.Limit, burst int) *Limiters {
	return &Limiters{
		limit: limit,
		burst: burst,
		lims:  make(map[string]*keyedLimiter),
		now:   time.Now,
	}
}

// Allow reports whether one event for key may happen now.
func (l *Limiters) Allow(key string) bool {
	l.mu.Lock()
	k, ok := l.lims[key]
	if !ok {
		k = &keyedLimiter{lim: rate.NewLimiter(l.limit, l.burst)}
		l.lims[key] = k
	}
	k.lastSeen = l.now()
	l.mu.Unlock()
	return k.lim.Allow()
}

// Forget drops the bucket for key.
func (l *Limiters) Forget(key string) {
	l.mu.Lock()
	delete(l.lims, key)
	l.mu.Unlock()
}

// Prune drops buckets unused for longer than idle and returns how many were
// removed.
func (l *Limiters) Prune(idle time.Duration) int {
	cutoff := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for key, k := range l.lims {
		if k.lastSeen.Before(cutoff) {
			delete(l.lims, key)
			n++
		}
	}
	return n
}

// Len returns the number of live buckets.
func (l *Limiters) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lims)
}

// RateLimit rejects requests with 429 once the bucket for key(r) is empty.
// A nil Limiters disables the check.
func RateLimit(l *Limiters, key func(*http.Request) string) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(key(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limited"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
