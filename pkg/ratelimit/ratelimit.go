// Package ratelimit implements fixed-window admission control keyed by requester identity.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of an admission attempt.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait before the window resets.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || d.ResetAt.IsZero() {
		return 0
	}
	wait := d.ResetAt.Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// Limiter admits or rejects attempts for an identity key.
type Limiter interface {
	Admit(ctx context.Context, key string) (Decision, error)
}

// Policy caps admissions to Max per Window.
type Policy struct {
	Max    int
	Window time.Duration
}

func (p Policy) normalised() Policy {
	if p.Max <= 0 {
		p.Max = 5
	}
	if p.Window <= 0 {
		p.Window = time.Hour
	}
	return p
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps per-key windows in process memory. State is lost on restart
// and is not shared between instances.
type MemoryLimiter struct {
	policy Policy
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// NewMemoryLimiter builds an in-process limiter. now may be nil to use the wall clock.
func NewMemoryLimiter(policy Policy, now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{policy: policy.normalised(), now: now, windows: make(map[string]*window)}
}

// Admit counts an attempt for key. A window opens lazily on the first attempt after expiry.
func (l *MemoryLimiter) Admit(_ context.Context, key string) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(l.policy.Window)}
		l.windows[key] = w
		return Decision{Allowed: true, Remaining: l.policy.Max - 1, ResetAt: w.resetAt}, nil
	}

	if w.count >= l.policy.Max {
		return Decision{Allowed: false, Remaining: 0, ResetAt: w.resetAt}, nil
	}

	w.count++
	return Decision{Allowed: true, Remaining: l.policy.Max - w.count, ResetAt: w.resetAt}, nil
}

// Sweep drops expired windows and returns how many were removed.
func (l *MemoryLimiter) Sweep(_ context.Context) int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked keys.
func (l *MemoryLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
