package gen

import (
	"sync"
	"time"

	"github.com/testforge/testforge/errors"
)

// Limiter caps generation calls per minute with a sliding window.
type Limiter struct {
	maxCallsPerMinute int
	window            time.Duration
	mu                sync.Mutex
	callTimes         []time.Time
	timeNow           func() time.Time // Injectable for testing
}

// NewLimiter creates a rate limiter using real time. A non-positive
// limit disables limiting.
func NewLimiter(maxCallsPerMinute int) *Limiter {
	return NewLimiterWithClock(maxCallsPerMinute, time.Now)
}

// NewLimiterWithClock creates a rate limiter with an injectable clock.
func NewLimiterWithClock(maxCallsPerMinute int, timeNow func() time.Time) *Limiter {
	return &Limiter{
		maxCallsPerMinute: maxCallsPerMinute,
		window:            time.Minute,
		timeNow:           timeNow,
	}
}

// Allow records a call if under the limit, or returns an error.
func (l *Limiter) Allow() error {
	if l.maxCallsPerMinute <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.timeNow()
	l.removeExpired(now)

	if len(l.callTimes) >= l.maxCallsPerMinute {
		return errors.Newf("rate limit exceeded: %d calls in the last minute (limit: %d)",
			len(l.callTimes), l.maxCallsPerMinute)
	}

	l.callTimes = append(l.callTimes, now)
	return nil
}

// removeExpired drops timestamps outside the window. Caller holds the lock.
func (l *Limiter) removeExpired(now time.Time) {
	cutoff := now.Add(-l.window)
	expired := 0
	for _, t := range l.callTimes {
		if !t.After(cutoff) {
			expired++
		} else {
			break
		}
	}
	if expired > 0 {
		l.callTimes = l.callTimes[expired:]
	}
}
