// Package app orchestrates a token analysis: admission control, cache
// lookup, pillar fan-out, aggregation, and result publication.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/adapter/metrics"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/address"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/ratelimit"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/sentiment"
)

// Dependencies wires a Service. GlobalLimiter, Publisher, and the metrics
// are optional; everything else is required.
type Dependencies struct {
	Engine        *sentiment.Engine
	Sources       []domain.PillarSource
	Cache         domain.ResultCache
	Limiter       domain.RateLimiter
	GlobalLimiter domain.RateLimiter
	Publisher     domain.EventPublisher
	Clock         clockwork.Clock

	AnalysisMetrics  *metrics.AnalysisMetrics
	RateLimitMetrics *metrics.RateLimitMetrics

	SourceTimeout  time.Duration
	RequestTimeout time.Duration
	CacheTTL       time.Duration
}

// Service is the use-case layer behind the HTTP and WebSocket surfaces.
type Service struct {
	deps Dependencies
}

func NewService(deps Dependencies) *Service {
	return &Service{deps: deps}
}

// Analyze runs the full pipeline for one token: validate the address, pass
// both rate limiters, then return the cached result or compute a fresh one.
// Concurrent requests for the same token share a single computation. A fresh
// result is published to live subscribers; a cached one is not.
func (s *Service) Analyze(ctx context.Context, network domain.Network, rawAddress, identity string) (domain.AnalysisResult, error) {
	normalized, err := address.Validate(network, rawAddress)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	if decision := s.deps.Limiter.Check(identity); !decision.Allowed {
		s.recordCheck("caller", false)
		return domain.AnalysisResult{}, &domain.RateLimitError{RetryAfter: decision.RetryAfter}
	}
	s.recordCheck("caller", true)

	if s.deps.GlobalLimiter != nil {
		if decision := s.deps.GlobalLimiter.Check(ratelimit.GlobalIdentity); !decision.Allowed {
			s.recordCheck("global", false)
			return domain.AnalysisResult{}, &domain.RateLimitError{RetryAfter: decision.RetryAfter}
		}
		s.recordCheck("global", true)
	}

	ctx, cancel := context.WithTimeout(ctx, s.deps.RequestTimeout)
	defer cancel()

	key := domain.ResultKey(network, normalized)
	start := s.deps.Clock.Now()

	// Publishing inside the flight owner's closure means every fresh
	// computation reaches subscribers exactly once, even when the caller
	// that started it gives up waiting before it completes.
	result, err := s.deps.Cache.GetOrCompute(ctx, key, s.deps.CacheTTL, func(ctx context.Context) (domain.AnalysisResult, error) {
		pillars := s.fetchPillars(ctx, normalized, network)
		computed, err := s.deps.Engine.Compute(ctx, normalized, network, pillars)
		if err != nil {
			return domain.AnalysisResult{}, err
		}
		s.recordAnalysis(computed, s.deps.Clock.Now().Sub(start))
		s.publish(ctx, computed)
		return computed, nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.AnalysisResult{}, domain.ErrRequestTimeout
		}
		return domain.AnalysisResult{}, err
	}

	return result, nil
}

// Invalidate removes a token's cached result from both cache tiers.
func (s *Service) Invalidate(ctx context.Context, network domain.Network, rawAddress string) error {
	normalized, err := address.Validate(network, rawAddress)
	if err != nil {
		return err
	}
	return s.deps.Cache.Delete(ctx, domain.ResultKey(network, normalized))
}

// fetchPillars queries all sources concurrently, each under its own timeout.
// A failed or timed-out source degrades to a missing pillar; it never fails
// the analysis.
func (s *Service) fetchPillars(ctx context.Context, addr string, network domain.Network) map[domain.Pillar]domain.PillarResult {
	type outcome struct {
		pillar domain.Pillar
		result domain.PillarResult
		err    error
	}

	ch := make(chan outcome, len(s.deps.Sources))
	for _, source := range s.deps.Sources {
		go func() {
			srcCtx, cancel := context.WithTimeout(ctx, s.deps.SourceTimeout)
			defer cancel()

			result, err := source.Fetch(srcCtx, addr, network)
			ch <- outcome{pillar: source.Pillar(), result: result, err: err}
		}()
	}

	results := make(map[domain.Pillar]domain.PillarResult, len(s.deps.Sources))
	for range s.deps.Sources {
		o := <-ch
		if o.err != nil {
			kind := fetchKind(o.err)
			slog.WarnContext(ctx, "Pillar fetch failed, degrading to missing",
				"pillar", o.pillar,
				"kind", kind,
				"address", addr,
				"network", network,
				"error", o.err,
			)
			if s.deps.AnalysisMetrics != nil {
				s.deps.AnalysisMetrics.PillarFailures.WithLabelValues(string(o.pillar), string(kind)).Inc()
			}
			results[o.pillar] = domain.PillarResult{Quality: domain.QualityMissing}
			continue
		}
		results[o.pillar] = o.result
	}

	return results
}

func fetchKind(err error) domain.FetchErrorKind {
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	return domain.FetchNetworkError
}

func (s *Service) recordAnalysis(result domain.AnalysisResult, elapsed time.Duration) {
	if s.deps.AnalysisMetrics == nil {
		return
	}
	s.deps.AnalysisMetrics.AnalysesTotal.WithLabelValues(string(result.Signal)).Inc()
	s.deps.AnalysisMetrics.Duration.Observe(elapsed.Seconds())
}

func (s *Service) recordCheck(scope string, allowed bool) {
	if s.deps.RateLimitMetrics == nil {
		return
	}
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	s.deps.RateLimitMetrics.Checks.WithLabelValues(scope, decision).Inc()
}

func (s *Service) publish(ctx context.Context, result domain.AnalysisResult) {
	if s.deps.Publisher == nil {
		return
	}
	// The result is already computed; a slow subscriber fan-out must not be
	// cut short by the request context.
	if err := s.deps.Publisher.PublishResult(context.WithoutCancel(ctx), result); err != nil {
		slog.WarnContext(ctx, "Failed to publish analysis result",
			"token", result.Token,
			"network", result.Network,
			"error", err,
		)
	}
}
