package sentiment

import (
	"fmt"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

// rationale builds one bullet per present pillar, ordered onchain, social,
// fundamentals. Absent pillars are omitted, never padded.
func rationale(present []domain.Pillar, pillars map[domain.Pillar]domain.PillarResult) []string {
	bullets := make([]string, 0, len(present))
	for _, p := range domain.Pillars {
		r, ok := pillars[p]
		if !ok || !r.Present() {
			continue
		}
		bullets = append(bullets, fmt.Sprintf("%s: %s (score %+.2f, %s data)",
			pillarLabel(p), describe(p, r.Value), r.Value, r.Quality))
	}
	return bullets
}

func pillarLabel(p domain.Pillar) string {
	switch p {
	case domain.PillarOnchain:
		return "Onchain"
	case domain.PillarSocial:
		return "Social"
	case domain.PillarFundamentals:
		return "Fundamentals"
	default:
		return string(p)
	}
}

// describe maps a pillar value to a qualitative phrase. Bands at ±0.5 and
// ±0.2 separate strong, moderate, and balanced readings.
func describe(p domain.Pillar, value float64) string {
	band := 2 // balanced
	switch {
	case value > 0.5:
		band = 4
	case value > 0.2:
		band = 3
	case value < -0.5:
		band = 0
	case value < -0.2:
		band = 1
	}

	phrases := map[domain.Pillar][5]string{
		domain.PillarOnchain: {
			"heavy smart money outflows",
			"moderate smart money outflows",
			"balanced smart money flows",
			"moderate smart money inflows",
			"strong smart money inflows",
		},
		domain.PillarSocial: {
			"very negative community sentiment",
			"negative community sentiment",
			"neutral community sentiment",
			"positive community sentiment",
			"very positive community sentiment",
		},
		domain.PillarFundamentals: {
			"very low trading activity",
			"low trading activity",
			"moderate trading activity",
			"high trading activity",
			"very high trading activity",
		},
	}

	return phrases[p][band]
}
