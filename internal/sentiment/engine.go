package sentiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

// Engine aggregates pillar results into a classified analysis.
type Engine struct {
	weights    Weights
	thresholds Thresholds
	clock      clockwork.Clock
}

// NewEngine validates the configuration and builds an engine. Invalid
// weights or thresholds are a fatal startup error.
func NewEngine(weights Weights, thresholds Thresholds, clock clockwork.Clock) (*Engine, error) {
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weight config: %w", err)
	}
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid threshold config: %w", err)
	}
	return &Engine{weights: weights, thresholds: thresholds, clock: clock}, nil
}

// Weights returns the engine's pillar weighting.
func (e *Engine) Weights() Weights {
	return e.weights
}

// Compute combines the available pillar results into an overall score,
// classification, confidence, and rationale. Pillars absent from the map or
// reporting QualityMissing do not contribute; their original weight is
// redistributed over the present pillars and penalized in confidence. Fails
// with domain.ErrNoData when no pillar carries data.
func (e *Engine) Compute(ctx context.Context, address string, network domain.Network, pillars map[domain.Pillar]domain.PillarResult) (domain.AnalysisResult, error) {
	present := make([]domain.Pillar, 0, len(domain.Pillars))
	presenceFactor := 0.0
	for _, p := range domain.Pillars {
		if r, ok := pillars[p]; ok && r.Present() {
			present = append(present, p)
			presenceFactor += e.weights.Of(p)
		}
	}

	if len(present) == 0 {
		return domain.AnalysisResult{}, domain.ErrNoData
	}

	if len(present) < len(domain.Pillars) {
		slog.InfoContext(ctx, "Partial pillar data, confidence degraded",
			"address", address,
			"network", network,
			"present", len(present),
			"presence_factor", presenceFactor,
		)
	}

	// Effective weights renormalize over the present set so the score
	// formula always operates on weights summing to 1.
	score := 0.0
	qualitySum := 0.0
	for _, p := range present {
		effective := e.weights.Of(p) / presenceFactor
		score += effective * pillars[p].Value
		qualitySum += effective * pillars[p].Quality.Score()
	}

	if score < -1 || score > 1 {
		slog.WarnContext(ctx, "Overall score out of range, clamping",
			"address", address,
			"network", network,
			"score", score,
		)
		score = clamp(score, -1, 1)
	}

	confidence := qualitySum * presenceFactor

	return domain.AnalysisResult{
		Token:        address,
		Network:      network,
		OverallScore: score,
		Signal:       e.classify(score),
		Confidence:   confidence,
		DataQuality:  qualityBand(confidence),
		Rationale:    rationale(present, pillars),
		Pillars:      pillars,
		ComputedAt:   e.clock.Now().UTC(),
	}, nil
}

// classify maps a score to a signal. Scores exactly at a threshold stay
// Neutral.
func (e *Engine) classify(score float64) domain.Signal {
	switch {
	case score > e.thresholds.Bullish:
		return domain.SignalBullish
	case score < e.thresholds.Bearish:
		return domain.SignalBearish
	default:
		return domain.SignalNeutral
	}
}

// qualityBand maps a confidence value to its categorical label.
func qualityBand(confidence float64) domain.DataQuality {
	switch {
	case confidence >= 0.85:
		return domain.DataQualityExcellent
	case confidence >= 0.6:
		return domain.DataQualityGood
	case confidence >= 0.35:
		return domain.DataQualityFair
	default:
		return domain.DataQualityPoor
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
