package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"golang.org/x/sync/singleflight"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/adapter/metrics"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

// DefaultCooldown is how long the durable store rests after a failure before
// a trial operation is permitted again.
const DefaultCooldown = 30 * time.Second

// Hybrid prefers the durable store and falls back to the local store when it
// is unreachable. A circuit breaker keeps cooldown state: after a failure,
// operations route to the local store without touching the durable store
// until the cooldown elapses, then one trial operation re-closes on success.
//
// Concurrent GetOrCompute misses for the same key are collapsed into one
// computation via singleflight.
type Hybrid struct {
	durable Store
	local   Store
	breaker circuitbreaker.CircuitBreaker[any]
	flights singleflight.Group
	metrics *metrics.CacheMetrics
}

var _ domain.ResultCache = (*Hybrid)(nil)

// Options tunes the hybrid wrapper. Zero values pick defaults.
type Options struct {
	Cooldown time.Duration
	Metrics  *metrics.CacheMetrics
}

// NewHybrid wires the two backends together. durable may be nil for
// memory-only deployments; local must not be.
func NewHybrid(durable, local Store, opts Options) *Hybrid {
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}

	cacheMetrics := opts.Metrics

	breaker := circuitbreaker.NewBuilder[any]().
		WithFailureThreshold(1).
		WithDelay(opts.Cooldown).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Durable cache breaker state changed",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			if cacheMetrics != nil {
				cacheMetrics.BreakerTransitions.WithLabelValues(e.NewState.String()).Inc()
				cacheMetrics.BreakerState.Set(breakerStateValue(e.NewState))
			}
		}).
		Build()

	return &Hybrid{
		durable: durable,
		local:   local,
		breaker: breaker,
		metrics: cacheMetrics,
	}
}

func breakerStateValue(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

// Get reads durable-first, local on breaker cooldown, durable error, or
// durable miss. Backend errors never surface; they only degrade the route.
func (h *Hybrid) Get(ctx context.Context, key string) (domain.AnalysisResult, bool) {
	if h.durablePermitted() {
		result, ok, err := h.durable.Get(ctx, key)
		if err != nil {
			h.breaker.RecordError(err)
			slog.WarnContext(ctx, "Durable cache read failed, serving from local store", "key", key, "error", err)
		} else {
			h.breaker.RecordSuccess()
			if ok {
				h.countLookup("durable", true)
				return result, true
			}
			h.countLookup("durable", false)
		}
	}

	result, ok, _ := h.local.Get(ctx, key)
	h.countLookup("local", ok)
	return result, ok
}

// Set writes to both stores so the local store can serve during durable
// outages. Accepted tradeoff: no cross-process consistency on fallback.
func (h *Hybrid) Set(ctx context.Context, key string, result domain.AnalysisResult, ttl time.Duration) {
	if h.durablePermitted() {
		if err := h.durable.Set(ctx, key, result, ttl); err != nil {
			h.breaker.RecordError(err)
			slog.WarnContext(ctx, "Durable cache write failed", "key", key, "error", err)
		} else {
			h.breaker.RecordSuccess()
		}
	}

	_ = h.local.Set(ctx, key, result, ttl)
}

// Delete invalidates the key in both stores. A durable failure is logged and
// recovered, never surfaced.
func (h *Hybrid) Delete(ctx context.Context, key string) error {
	if h.durablePermitted() {
		if err := h.durable.Delete(ctx, key); err != nil {
			h.breaker.RecordError(err)
			slog.WarnContext(ctx, "Durable cache delete failed", "key", key, "error", err)
		} else {
			h.breaker.RecordSuccess()
		}
	}

	_ = h.local.Delete(ctx, key)

	if h.metrics != nil {
		h.metrics.Invalidations.Inc()
	}
	return nil
}

// GetOrCompute returns the cached result or runs compute once per key across
// concurrent callers. The owner populates both stores on success; its
// failure is delivered to every current waiter without retry. A waiter whose
// context expires returns the context error, but the owner's computation
// keeps running on a detached context so its result still lands in the cache.
func (h *Hybrid) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute domain.ComputeFunc) (domain.AnalysisResult, error) {
	if result, ok := h.Get(ctx, key); ok {
		return result, nil
	}

	ch := h.flights.DoChan(key, func() (any, error) {
		ownerCtx := context.WithoutCancel(ctx)

		if result, ok := h.Get(ownerCtx, key); ok {
			return result, nil
		}

		result, err := compute(ownerCtx)
		if err != nil {
			return nil, err
		}

		h.Set(ownerCtx, key, result, ttl)
		return result, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.AnalysisResult{}, res.Err
		}
		if res.Shared && h.metrics != nil {
			h.metrics.FlightsShared.Inc()
		}
		return res.Val.(domain.AnalysisResult), nil
	case <-ctx.Done():
		return domain.AnalysisResult{}, fmt.Errorf("waiting for in-flight analysis: %w", ctx.Err())
	}
}

func (h *Hybrid) durablePermitted() bool {
	return h.durable != nil && h.breaker.TryAcquirePermit()
}

func (h *Hybrid) countLookup(backend string, hit bool) {
	if h.metrics == nil {
		return
	}
	if hit {
		h.metrics.Hits.WithLabelValues(backend).Inc()
	} else {
		h.metrics.Misses.WithLabelValues(backend).Inc()
	}
}
