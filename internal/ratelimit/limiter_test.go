package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

func newTestLimiter(maxRequests int, window time.Duration) (*Limiter, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return NewLimiter(Config{MaxRequests: maxRequests, Window: window}, clock), clock
}

func TestLimiter_AllowsUpToMaxThenDenies(t *testing.T) {
	limiter, _ := newTestLimiter(2, time.Minute)

	first := limiter.Check("caller-1")
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)

	second := limiter.Check("caller-1")
	assert.True(t, second.Allowed)
	assert.Zero(t, second.Remaining)

	third := limiter.Check("caller-1")
	assert.False(t, third.Allowed)
	assert.Positive(t, third.RetryAfter)
	assert.LessOrEqual(t, third.RetryAfter, time.Minute)
}

func TestLimiter_WindowElapseReadmits(t *testing.T) {
	limiter, clock := newTestLimiter(2, time.Minute)

	limiter.Check("caller-1")
	limiter.Check("caller-1")
	require.False(t, limiter.Check("caller-1").Allowed)

	clock.Advance(time.Minute + time.Second)

	decision := limiter.Check("caller-1")
	assert.True(t, decision.Allowed, "A fully elapsed window frees all slots")
	assert.Equal(t, 1, decision.Remaining)
}

func TestLimiter_RetryAfterTracksOldestSlot(t *testing.T) {
	limiter, clock := newTestLimiter(2, time.Minute)

	limiter.Check("caller-1")
	clock.Advance(20 * time.Second)
	limiter.Check("caller-1")
	clock.Advance(10 * time.Second)

	// The oldest slot is 30s old, so it frees up in another 30s.
	decision := limiter.Check("caller-1")
	require.False(t, decision.Allowed)
	assert.Equal(t, 30*time.Second, decision.RetryAfter)

	// A denied check consumed no slot: once the oldest slot expires,
	// exactly one slot frees up.
	clock.Advance(31 * time.Second)
	assert.True(t, limiter.Check("caller-1").Allowed)
	assert.False(t, limiter.Check("caller-1").Allowed)
}

func TestLimiter_SlidingWindowFreesSlotsIncrementally(t *testing.T) {
	limiter, clock := newTestLimiter(2, time.Minute)

	limiter.Check("caller-1")
	clock.Advance(40 * time.Second)
	limiter.Check("caller-1")

	// 61s after the first request: only the first slot has expired.
	clock.Advance(21 * time.Second)
	assert.True(t, limiter.Check("caller-1").Allowed)
	assert.False(t, limiter.Check("caller-1").Allowed)
}

func TestLimiter_IdentitiesAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)

	require.True(t, limiter.Check("caller-1").Allowed)
	require.False(t, limiter.Check("caller-1").Allowed)

	assert.True(t, limiter.Check("caller-2").Allowed, "One caller's exhaustion must not affect another")
}

func TestLimiter_ConcurrentChecksNeverExceedMax(t *testing.T) {
	const maxRequests = 5
	limiter, _ := newTestLimiter(maxRequests, time.Minute)

	const goroutines = 50
	allowed := make([]bool, goroutines)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := range goroutines {
		go func() {
			defer wg.Done()
			allowed[i] = limiter.Check("caller-1").Allowed
		}()
	}
	wg.Wait()

	count := 0
	for _, ok := range allowed {
		if ok {
			count++
		}
	}
	assert.Equal(t, maxRequests, count, "Concurrent checks must admit exactly maxRequests callers")
}

func TestLimiter_Stats(t *testing.T) {
	limiter, clock := newTestLimiter(3, time.Minute)

	// Unknown identity reports a full window.
	stats := limiter.Stats("caller-1")
	assert.Zero(t, stats.Used)
	assert.Equal(t, 3, stats.Remaining)
	assert.Zero(t, stats.ResetIn)

	limiter.Check("caller-1")
	clock.Advance(10 * time.Second)
	limiter.Check("caller-1")

	stats = limiter.Stats("caller-1")
	assert.Equal(t, "caller-1", stats.Identity)
	assert.Equal(t, 2, stats.Used)
	assert.Equal(t, 1, stats.Remaining)
	assert.Equal(t, 3, stats.MaxRequests)
	assert.Equal(t, 50*time.Second, stats.ResetIn)

	// Stats is read-only: the remaining slot is still available.
	assert.True(t, limiter.Check("caller-1").Allowed)
}

func TestLimiter_Reset(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)

	require.False(t, func() bool {
		limiter.Check("caller-1")
		return limiter.Check("caller-1").Allowed
	}())

	limiter.Reset("caller-1")
	assert.True(t, limiter.Check("caller-1").Allowed)
}

func TestLimiter_ResetAll(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)

	limiter.Check("caller-1")
	limiter.Check("caller-2")
	require.Equal(t, 2, limiter.TrackedIdentities())

	limiter.ResetAll()
	assert.Zero(t, limiter.TrackedIdentities())
	assert.True(t, limiter.Check("caller-1").Allowed)
}

func TestLimiter_CleanupDropsIdleIdentities(t *testing.T) {
	limiter, clock := newTestLimiter(2, time.Minute)

	for i := range 5 {
		limiter.Check(fmt.Sprintf("caller-%d", i))
	}
	clock.Advance(30 * time.Second)
	limiter.Check("caller-fresh")
	require.Equal(t, 6, limiter.TrackedIdentities())

	clock.Advance(45 * time.Second)

	removed := limiter.Cleanup()
	assert.Equal(t, 5, removed)
	assert.Equal(t, 1, limiter.TrackedIdentities(), "The fresh identity still holds a live slot")
}

func TestLimiter_CleanupTimer(t *testing.T) {
	limiter, clock := newTestLimiter(2, time.Minute)
	stop := limiter.StartCleanupTimer(time.Minute)
	defer stop()

	limiter.Check("caller-1")
	require.Equal(t, 1, limiter.TrackedIdentities())

	clock.Advance(2 * time.Minute)

	assert.Eventually(t, func() bool {
		return limiter.TrackedIdentities() == 0
	}, time.Second, 5*time.Millisecond, "The sweep should remove the idle identity")
}

func TestLimiter_CheckRacingCleanupKeepsRecordedSlot(t *testing.T) {
	limiter, clock := newTestLimiter(1, time.Minute)

	// Repeatedly let the identity go idle so the sweep wants to drop its
	// window exactly while a check races it. The admitted slot must land in
	// the live window: a follow-up check inside the same window is denied.
	for range 200 {
		clock.Advance(time.Minute + time.Second)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			limiter.Cleanup()
		}()
		var decision domain.Decision
		go func() {
			defer wg.Done()
			decision = limiter.Check("caller-1")
		}()
		wg.Wait()

		require.True(t, decision.Allowed)
		require.Equal(t, 1, limiter.Stats("caller-1").Used, "The admitted slot must survive a concurrent sweep")
		require.False(t, limiter.Check("caller-1").Allowed, "A second check in the same window must see the recorded slot")
	}
}

func TestLimiter_CheckRacingResetNeverRecordsIntoOrphan(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)

	for range 200 {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			limiter.Reset("caller-1")
		}()
		go func() {
			defer wg.Done()
			limiter.Check("caller-1")
		}()
		wg.Wait()

		// Whatever the interleaving, the recorded slot is visible in the
		// live window or the window was forgotten entirely.
		used := limiter.Stats("caller-1").Used
		require.Contains(t, []int{0, 1}, used)
		if used == 1 {
			require.False(t, limiter.Check("caller-1").Allowed)
		}
		limiter.Reset("caller-1")
	}
}
