package sentiment

import (
	"fmt"
	"math"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

// weightTolerance is the allowed deviation of the weight sum from 1.0.
const weightTolerance = 1e-6

// Weights holds the per-pillar weighting. Validated once at construction and
// immutable for the process lifetime.
type Weights struct {
	Onchain      float64
	Social       float64
	Fundamentals float64
}

// DefaultWeights is the 60/25/15 split across onchain, social, fundamentals.
var DefaultWeights = Weights{Onchain: 0.60, Social: 0.25, Fundamentals: 0.15}

// Validate checks that each weight is in (0, 1] and the sum is 1.0 within
// tolerance. A failure here is a fatal startup error.
func (w Weights) Validate() error {
	for _, p := range domain.Pillars {
		v := w.Of(p)
		if v <= 0 || v > 1 {
			return fmt.Errorf("weight for %s pillar must be in (0, 1], got %g", p, v)
		}
	}

	sum := w.Onchain + w.Social + w.Fundamentals
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("pillar weights must sum to 1.0, got %g", sum)
	}
	return nil
}

// Of returns the weight for a single pillar.
func (w Weights) Of(p domain.Pillar) float64 {
	switch p {
	case domain.PillarOnchain:
		return w.Onchain
	case domain.PillarSocial:
		return w.Social
	case domain.PillarFundamentals:
		return w.Fundamentals
	default:
		return 0
	}
}

// Thresholds holds the signal classification cutoffs. Bullish must be
// positive and Bearish negative; a score exactly at a threshold stays
// Neutral.
type Thresholds struct {
	Bullish float64
	Bearish float64
}

// DefaultThresholds classifies scores above +0.2 Bullish and below -0.2 Bearish.
var DefaultThresholds = Thresholds{Bullish: 0.2, Bearish: -0.2}

// Validate checks the threshold signs.
func (t Thresholds) Validate() error {
	if t.Bullish <= 0 {
		return fmt.Errorf("bullish threshold must be positive, got %g", t.Bullish)
	}
	if t.Bearish >= 0 {
		return fmt.Errorf("bearish threshold must be negative, got %g", t.Bearish)
	}
	return nil
}
