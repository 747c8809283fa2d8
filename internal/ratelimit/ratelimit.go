// Package ratelimit implements the per-key sliding-window counter from
// spec.md §4.5 (C5). It is deliberately hand-rolled rather than built on
// golang.org/x/time/rate: that package implements a token bucket and has
// no notion of "remaining in the current window" per spec.md §4.5's
// remaining() query, which this sliding-window log structure answers
// directly.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter keyed by an arbitrary string
// (a platform tag in this system), one independent window per key.
// All operations are atomic under a single mutex (spec.md §5).
type Limiter struct {
	mu     sync.Mutex
	window time.Duration
	rate   map[string]int
	hits   map[string][]time.Time
	now    func() time.Time // overridable for tests
}

// New constructs a Limiter with the given default window. Per-key rates
// are set with SetRate; a key with no configured rate allows nothing.
func New(window time.Duration) *Limiter {
	return &Limiter{
		window: window,
		rate:   make(map[string]int),
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// SetRate configures the maximum admissions per window for key.
func (l *Limiter) SetRate(key string, rate int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rate[key] = rate
}

// Allow reports whether an event for key is admitted right now, pruning
// stale timestamps and recording the admission if allowed (spec.md
// §4.5).
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(key, now)

	rate := l.rate[key]
	if len(l.hits[key]) >= rate {
		return false
	}
	l.hits[key] = append(l.hits[key], now)
	return true
}

// Remaining returns max(0, rate-count) for key after pruning (spec.md
// §4.5).
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(key, now)

	remaining := l.rate[key] - len(l.hits[key])
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (l *Limiter) pruneLocked(key string, now time.Time) {
	cutoff := now.Add(-l.window)
	hits := l.hits[key]
	i := 0
	for i < len(hits) && hits[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		l.hits[key] = append([]time.Time{}, hits[i:]...)
	}
}
