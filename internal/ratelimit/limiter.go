// Package ratelimit implements per-identity sliding-window admission
// control. Each identity keeps an ordered window of recent request instants;
// stale instants are dropped lazily on every check and a background sweep
// removes idle identities.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

// GlobalIdentity is the fixed identity a second limiter instance uses to
// implement a process-wide cap with the identical algorithm.
const GlobalIdentity = "global"

// Config bounds how many requests an identity may make per window.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Limiter is a sliding-window rate limiter. Check-and-record is atomic per
// identity; unrelated identities never contend on one lock.
type Limiter struct {
	cfg   Config
	clock clockwork.Clock

	mu      sync.RWMutex // guards the windows map, not the windows
	windows map[string]*window

	cleanupStopCh chan struct{}
	stopOnce      sync.Once
}

type window struct {
	mu     sync.Mutex
	stamps []time.Time

	// dropped marks a window removed from the map while another goroutine
	// held its pointer; that goroutine must re-fetch instead of recording
	// into the orphan.
	dropped bool
}

var _ domain.RateLimiter = (*Limiter)(nil)

// NewLimiter creates a limiter. The clock is injected for testability.
func NewLimiter(cfg Config, clock clockwork.Clock) *Limiter {
	return &Limiter{
		cfg:           cfg,
		clock:         clock,
		windows:       make(map[string]*window),
		cleanupStopCh: make(chan struct{}),
	}
}

// Check decides whether the identity may start a new request. An allowed
// check records the request instant in the same critical section; a denied
// check consumes no slot and reports when the oldest slot frees up.
func (l *Limiter) Check(identity string) domain.Decision {
	w := l.lockWindow(identity)
	defer w.mu.Unlock()

	now := l.clock.Now()
	w.prune(now.Add(-l.cfg.Window))

	if len(w.stamps) >= l.cfg.MaxRequests {
		retryAfter := l.cfg.Window
		if len(w.stamps) > 0 {
			retryAfter = l.cfg.Window - now.Sub(w.stamps[0])
		}
		return domain.Decision{Allowed: false, RetryAfter: retryAfter}
	}

	w.stamps = append(w.stamps, now)
	return domain.Decision{Allowed: true, Remaining: l.cfg.MaxRequests - len(w.stamps)}
}

// IdentityStats describes one identity's current window.
type IdentityStats struct {
	Identity    string        `json:"identity"`
	Used        int           `json:"used"`
	Remaining   int           `json:"remaining"`
	MaxRequests int           `json:"maxRequests"`
	ResetIn     time.Duration `json:"resetIn"`
}

// Stats reports the identity's window without consuming a slot.
func (l *Limiter) Stats(identity string) IdentityStats {
	stats := IdentityStats{Identity: identity, MaxRequests: l.cfg.MaxRequests, Remaining: l.cfg.MaxRequests}

	l.mu.RLock()
	w, ok := l.windows[identity]
	l.mu.RUnlock()
	if !ok {
		return stats
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.clock.Now()
	w.prune(now.Add(-l.cfg.Window))

	stats.Used = len(w.stamps)
	stats.Remaining = max(0, l.cfg.MaxRequests-len(w.stamps))
	if len(w.stamps) > 0 {
		stats.ResetIn = l.cfg.Window - now.Sub(w.stamps[0])
	}
	return stats
}

// TrackedIdentities returns how many identities hold a live window.
func (l *Limiter) TrackedIdentities() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.windows)
}

// Reset forgets one identity's window.
func (l *Limiter) Reset(identity string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.windows[identity]; ok {
		w.mu.Lock()
		l.drop(identity, w)
		w.mu.Unlock()
	}
}

// ResetAll forgets every window.
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for identity, w := range l.windows {
		w.mu.Lock()
		l.drop(identity, w)
		w.mu.Unlock()
	}
}

// Cleanup drops identities whose windows hold no recent instants and returns
// how many were removed.
func (l *Limiter) Cleanup() int {
	cutoff := l.clock.Now().Add(-l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for identity, w := range l.windows {
		w.mu.Lock()
		w.prune(cutoff)
		if len(w.stamps) == 0 {
			l.drop(identity, w)
			removed++
		}
		w.mu.Unlock()
	}
	return removed
}

// drop removes the window from the map and poisons the pointer so a Check
// that looked it up before the delete re-fetches instead of recording into
// the orphan. Caller must hold both l.mu and w.mu.
func (l *Limiter) drop(identity string, w *window) {
	w.dropped = true
	delete(l.windows, identity)
}

// StartCleanupTimer runs a periodic goroutine that removes idle identities.
// Returns a stop function that should be deferred.
func (l *Limiter) StartCleanupTimer(interval time.Duration) func() {
	ticker := l.clock.NewTicker(interval)

	go func() {
		for {
			select {
			case <-ticker.Chan():
				removed := l.Cleanup()
				if removed > 0 {
					slog.Debug("Removed idle rate limit windows", "count", removed, "remaining", l.TrackedIdentities())
				}
			case <-l.cleanupStopCh:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		l.stopOnce.Do(func() {
			close(l.cleanupStopCh)
		})
	}
}

// lockWindow returns the identity's window with its lock held. It loops
// because a sweep can drop the window between the map lookup and the lock;
// recording into such an orphan would let the identity's next window admit
// more than maxRequests.
func (l *Limiter) lockWindow(identity string) *window {
	for {
		w := l.window(identity)
		w.mu.Lock()
		if !w.dropped {
			return w
		}
		w.mu.Unlock()
	}
}

func (l *Limiter) window(identity string) *window {
	l.mu.RLock()
	w, ok := l.windows[identity]
	l.mu.RUnlock()
	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.windows[identity]; ok {
		return w
	}
	w = &window{}
	l.windows[identity] = w
	return w
}

// prune drops instants at or before the cutoff. Caller must hold the window
// lock.
func (w *window) prune(cutoff time.Time) {
	keep := 0
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			break
		}
		keep++
	}
	if keep > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[keep:]...)
	}
}
