package identity

import (
	"sync"
	"time"
)

// Limit is a named request budget over a fixed window.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
}

// Named limits per endpoint class.
var (
	// LimitLogin gates credential checks
	LimitLogin = Limit{Name: "login", Max: 5, Window: time.Minute}
	// LimitVerificationSend gates outbound verification mail
	LimitVerificationSend = Limit{Name: "verification_send", Max: 30, Window: time.Hour}
	// LimitWrite gates generic mutating endpoints
	LimitWrite = Limit{Name: "write", Max: 60, Window: time.Minute}
)

// RateLimiter gates sensitive operations per caller key. Counters are
// shared mutable state; an approximate, eventually-correct count is
// acceptable, cross-process consistency is not required.
type RateLimiter interface {
	Allow(key string, limit Limit) bool
}

type windowCounter struct {
	start time.Time
	count int
}

// WindowRateLimiter is an in-memory fixed-window counter.
type WindowRateLimiter struct {
	mu       sync.Mutex
	counters map[string]*windowCounter
	now      func() time.Time
}

var _ RateLimiter = (*WindowRateLimiter)(nil)

// NewRateLimiter creates an in-memory fixed-window rate limiter.
func NewRateLimiter() *WindowRateLimiter {
	return &WindowRateLimiter{
		counters: make(map[string]*windowCounter),
		now:      time.Now,
	}
}

// WithClock injects a custom clock (useful for tests)
func (l *WindowRateLimiter) WithClock(clock func() time.Time) *WindowRateLimiter {
	if clock != nil {
		l.now = clock
	}
	return l
}

// Allow increments the counter for (limit, key) and reports whether the
// call fits inside the window budget. Stale windows roll over in place.
func (l *WindowRateLimiter) Allow(key string, limit Limit) bool {
	if limit.Max <= 0 || limit.Window <= 0 {
		return true
	}

	bucket := limit.Name + ":" + key
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[bucket]
	if !ok || now.Sub(c.start) >= limit.Window {
		l.counters[bucket] = &windowCounter{start: now, count: 1}
		l.pruneLocked(now)
		return true
	}

	if c.count >= limit.Max {
		return false
	}

	c.count++
	return true
}

// pruneLocked drops expired buckets once the map grows large. Windows are
// short, so unbounded growth only happens under key churn.
func (l *WindowRateLimiter) pruneLocked(now time.Time) {
	if len(l.counters) < 4096 {
		return
	}
	for bucket, c := range l.counters {
		if now.Sub(c.start) >= time.Hour {
			delete(l.counters, bucket)
		}
	}
}
