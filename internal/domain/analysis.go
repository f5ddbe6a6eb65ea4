package domain

import (
	"time"
)

// Pillar identifies one of the three independent sentiment inputs.
type Pillar string

const (
	PillarOnchain      Pillar = "onchain"
	PillarSocial       Pillar = "social"
	PillarFundamentals Pillar = "fundamentals"
)

// Pillars lists all pillars in presentation order (onchain first, then
// social, then fundamentals). Rationale bullets follow this order.
var Pillars = []Pillar{PillarOnchain, PillarSocial, PillarFundamentals}

// Quality labels the reliability of a single pillar's data.
type Quality string

const (
	QualityMissing   Quality = "missing"
	QualityPoor      Quality = "poor"
	QualityFair      Quality = "fair"
	QualityGood      Quality = "good"
	QualityExcellent Quality = "excellent"
)

// Score maps a quality label to its numeric value. The mapping is used only
// for confidence math and is never exposed as a pillar value.
func (q Quality) Score() float64 {
	switch q {
	case QualityPoor:
		return 0.25
	case QualityFair:
		return 0.5
	case QualityGood:
		return 0.75
	case QualityExcellent:
		return 1.0
	default:
		return 0.0
	}
}

// PillarResult is one pillar's contribution to an analysis: a score in
// [-1, 1] plus a quality label. A result with QualityMissing counts as
// absent regardless of its value.
type PillarResult struct {
	Value   float64 `json:"value"`
	Quality Quality `json:"quality"`
}

// Present reports whether the pillar actually carries data.
func (r PillarResult) Present() bool {
	return r.Quality != QualityMissing
}

// Signal is the discrete sentiment classification.
type Signal string

const (
	SignalBullish Signal = "bullish"
	SignalNeutral Signal = "neutral"
	SignalBearish Signal = "bearish"
)

// DataQuality is the categorical reliability label derived from confidence.
type DataQuality string

const (
	DataQualityExcellent DataQuality = "excellent"
	DataQualityGood      DataQuality = "good"
	DataQualityFair      DataQuality = "fair"
	DataQualityPoor      DataQuality = "poor"
)

// AnalysisResult is the unit cached and returned to callers. Immutable once
// constructed.
type AnalysisResult struct {
	Token        string                  `json:"token"`
	Network      Network                 `json:"network"`
	OverallScore float64                 `json:"overallScore"`
	Signal       Signal                  `json:"signal"`
	Confidence   float64                 `json:"confidence"`
	DataQuality  DataQuality             `json:"dataQuality"`
	Rationale    []string                `json:"rationale"`
	Pillars      map[Pillar]PillarResult `json:"pillars"`
	ComputedAt   time.Time               `json:"computedAt"`
}

// ResultKey builds the cache key for a token's analysis result.
func ResultKey(network Network, address string) string {
	return "sentiment:" + string(network) + ":" + address
}
