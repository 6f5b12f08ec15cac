package postdesk

import (
	"sync"
	"time"
)

// LoginLimiter is a sliding-window counter of failed logins per key
// (client IP). Successful logins are never recorded.
type LoginLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewLoginLimiter creates a LoginLimiter that allows max failures per window.
// Call Close to stop its sweeper.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	l := &LoginLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		stop:     make(chan struct{}),
	}
	go l.sweep()
	return l
}

func (l *LoginLimiter) sweep() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-l.window)
			l.mu.Lock()
			for key := range l.attempts {
				l.pruneLocked(key, cutoff)
			}
			l.mu.Unlock()
		}
	}
}

// pruneLocked drops hits older than cutoff and reports how many remain.
func (l *LoginLimiter) pruneLocked(key string, cutoff time.Time) int {
	hits := l.attempts[key]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.attempts, key)
		return 0
	}
	l.attempts[key] = kept
	return len(kept)
}

// Allow checks the limit and records an attempt in one step.
func (l *LoginLimiter) Allow(key string) bool {
	if !l.Check(key) {
		return false
	}
	l.Record(key)
	return true
}

// Check reports whether key is still under the limit without recording.
func (l *LoginLimiter) Check(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pruneLocked(key, time.Now().Add(-l.window)) < l.max
}

// Record registers a failed attempt for key.
func (l *LoginLimiter) Record(key string) {
	l.mu.Lock()
	l.attempts[key] = append(l.attempts[key], time.Now())
	l.mu.Unlock()
}

// Reset forgets every attempt for key.
func (l *LoginLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.attempts, key)
	l.mu.Unlock()
}

// Close stops the background sweeper.
func (l *LoginLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}
