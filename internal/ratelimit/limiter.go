// Package ratelimit throttles failed authentication attempts per origin
// address. Counters live in a rolling window; crossing the failure threshold
// places a temporary block that rejects attempts regardless of credential
// correctness.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter tracks authentication failures by origin. Implementations must be
// safe for concurrent use.
type Limiter interface {
	// IsBlocked reports whether the origin is currently locked out.
	IsBlocked(ctx context.Context, origin string) (bool, error)
	// RecordFailure bumps the origin's failure counter and returns the new
	// count within the window. Crossing the threshold installs the block.
	RecordFailure(ctx context.Context, origin string) (int, error)
	// Reset clears the origin's counter and block.
	Reset(ctx context.Context, origin string) error
}

type Settings struct {
	MaxFailures   int
	Window        time.Duration
	BlockDuration time.Duration
}

type memoryEntry struct {
	count        int
	windowStart  time.Time
	blockedUntil time.Time
}

// MemoryLimiter keeps counters in process memory. Suitable for tests and
// single-instance deployments; state vanishes on restart.
type MemoryLimiter struct {
	settings Settings
	mu       sync.Mutex
	entries  map[string]*memoryEntry
	now      func() time.Time
}

func NewMemoryLimiter(settings Settings) *MemoryLimiter {
	return &MemoryLimiter{
		settings: settings,
		entries:  make(map[string]*memoryEntry),
		now:      time.Now,
	}
}

// WithClock overrides the time source. Tests only.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

func (l *MemoryLimiter) IsBlocked(_ context.Context, origin string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[origin]
	if !ok {
		return false, nil
	}
	return l.now().Before(entry.blockedUntil), nil
}

func (l *MemoryLimiter) RecordFailure(_ context.Context, origin string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[origin]
	if !ok || now.Sub(entry.windowStart) > l.settings.Window {
		entry = &memoryEntry{windowStart: now}
		l.entries[origin] = entry
	}

	entry.count++
	if entry.count >= l.settings.MaxFailures {
		entry.blockedUntil = now.Add(l.settings.BlockDuration)
	}
	return entry.count, nil
}

func (l *MemoryLimiter) Reset(_ context.Context, origin string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, origin)
	return nil
}
