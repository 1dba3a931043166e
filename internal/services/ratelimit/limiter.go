package ratelimit

import (
	"sync"
	"time"

	"github.com/lobbyworks/presencehub/internal/dependencies/clock"
)

// Limiter is the per-address admission gate for new connections. It keeps a
// sliding window of attempt timestamps per address; an address that exceeds
// the limit inside the window is blocked outright for the block duration.
// Attempts made while blocked are rejected without being counted, so the
// window restarts cleanly once the block expires.
type Limiter struct {
	clock    clock.Clock
	limit    int
	window   time.Duration
	blockFor time.Duration

	mu       sync.Mutex
	attempts map[string][]time.Time
	blocked  map[string]time.Time // address -> block expiry
}

// New creates a Limiter allowing at most limit attempts per address inside
// window, blocking offenders for blockFor.
func New(limit int, window, blockFor time.Duration, clk clock.Clock) *Limiter {
	return &Limiter{
		clock:    clk,
		limit:    limit,
		window:   window,
		blockFor: blockFor,
		attempts: make(map[string][]time.Time),
		blocked:  make(map[string]time.Time),
	}
}

// Allow records a connection attempt from addr and reports whether it may
// proceed. The attempt that crosses the limit is itself rejected and starts
// the block.
func (l *Limiter) Allow(addr string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.blocked[addr]; ok {
		if now.Before(expiry) {
			return false
		}
		delete(l.blocked, addr)
	}

	windowStart := now.Add(-l.window)
	kept := l.attempts[addr][:0]
	for _, ts := range l.attempts[addr] {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)

	if len(kept) > l.limit {
		l.blocked[addr] = now.Add(l.blockFor)
		delete(l.attempts, addr)
		return false
	}

	l.attempts[addr] = kept
	return true
}

// Blocked reports whether addr is currently blocked
func (l *Limiter) Blocked(addr string) bool {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	expiry, ok := l.blocked[addr]
	return ok && now.Before(expiry)
}

// Prune drops expired blocks and attempt windows with no recent entries.
// Called from the periodic sweep to keep both maps bounded.
func (l *Limiter) Prune() {
	now := l.clock.Now()
	windowStart := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for addr, expiry := range l.blocked {
		if !now.Before(expiry) {
			delete(l.blocked, addr)
		}
	}
	for addr, stamps := range l.attempts {
		live := false
		for _, ts := range stamps {
			if ts.After(windowStart) {
				live = true
				break
			}
		}
		if !live {
			delete(l.attempts, addr)
		}
	}
}
