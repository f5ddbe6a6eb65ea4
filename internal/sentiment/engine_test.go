package sentiment

import (
	"context"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

const testAddress = "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984"

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultWeights, DefaultThresholds, clockwork.NewFakeClock())
	require.NoError(t, err)
	return engine
}

func allPillars(onchain, social, fundamentals float64) map[domain.Pillar]domain.PillarResult {
	return map[domain.Pillar]domain.PillarResult{
		domain.PillarOnchain:      {Value: onchain, Quality: domain.QualityExcellent},
		domain.PillarSocial:       {Value: social, Quality: domain.QualityExcellent},
		domain.PillarFundamentals: {Value: fundamentals, Quality: domain.QualityExcellent},
	}
}

func TestEngine_AllPillarsPresent(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Compute(context.Background(), testAddress, domain.NetworkEthereum,
		allPillars(0.5, 0.3, 0.1))
	require.NoError(t, err)

	// 0.60*0.5 + 0.25*0.3 + 0.15*0.1 = 0.39
	assert.InDelta(t, 0.39, result.OverallScore, 1e-9)
	assert.Equal(t, domain.SignalBullish, result.Signal)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)
	assert.Equal(t, domain.DataQualityExcellent, result.DataQuality)
	assert.Len(t, result.Rationale, 3)
	assert.Equal(t, testAddress, result.Token)
	assert.Equal(t, domain.NetworkEthereum, result.Network)
	assert.False(t, result.ComputedAt.IsZero())
}

func TestEngine_MissingPillarRenormalizesWeights(t *testing.T) {
	engine := newTestEngine(t)

	pillars := allPillars(0.5, 0, 0.1)
	pillars[domain.PillarSocial] = domain.PillarResult{Quality: domain.QualityMissing}

	result, err := engine.Compute(context.Background(), testAddress, domain.NetworkEthereum, pillars)
	require.NoError(t, err)

	// Effective weights renormalize to 0.8 / 0.2 over onchain and
	// fundamentals: 0.8*0.5 + 0.2*0.1 = 0.42.
	assert.InDelta(t, 0.42, result.OverallScore, 1e-9)
	assert.Equal(t, domain.SignalBullish, result.Signal)

	// Confidence is penalized by the presence factor 0.75 even though the
	// present pillars carry excellent quality.
	assert.InDelta(t, 0.75, result.Confidence, 1e-9)
	assert.Len(t, result.Rationale, 2)
}

func TestEngine_PresenceFactorScalesWithDroppedWeight(t *testing.T) {
	engine := newTestEngine(t)

	// Dropping the heavily weighted onchain pillar must cost more
	// confidence than dropping the light fundamentals pillar.
	noOnchain := allPillars(0, 0.3, 0.1)
	noOnchain[domain.PillarOnchain] = domain.PillarResult{Quality: domain.QualityMissing}

	noFundamentals := allPillars(0.5, 0.3, 0)
	noFundamentals[domain.PillarFundamentals] = domain.PillarResult{Quality: domain.QualityMissing}

	withoutOnchain, err := engine.Compute(context.Background(), testAddress, domain.NetworkEthereum, noOnchain)
	require.NoError(t, err)
	withoutFundamentals, err := engine.Compute(context.Background(), testAddress, domain.NetworkEthereum, noFundamentals)
	require.NoError(t, err)

	assert.InDelta(t, 0.40, withoutOnchain.Confidence, 1e-9)
	assert.InDelta(t, 0.85, withoutFundamentals.Confidence, 1e-9)
	assert.Less(t, withoutOnchain.Confidence, withoutFundamentals.Confidence)
}

func TestEngine_AllPillarsMissing(t *testing.T) {
	engine := newTestEngine(t)

	pillars := map[domain.Pillar]domain.PillarResult{
		domain.PillarOnchain:      {Quality: domain.QualityMissing},
		domain.PillarSocial:       {Quality: domain.QualityMissing},
		domain.PillarFundamentals: {Quality: domain.QualityMissing},
	}

	_, err := engine.Compute(context.Background(), testAddress, domain.NetworkEthereum, pillars)
	assert.ErrorIs(t, err, domain.ErrNoData)

	_, err = engine.Compute(context.Background(), testAddress, domain.NetworkEthereum, nil)
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestEngine_ZeroValueIsPresent(t *testing.T) {
	engine := newTestEngine(t)

	pillars := map[domain.Pillar]domain.PillarResult{
		domain.PillarOnchain: {Value: 0, Quality: domain.QualityGood},
	}

	result, err := engine.Compute(context.Background(), testAddress, domain.NetworkEthereum, pillars)
	require.NoError(t, err)

	assert.Zero(t, result.OverallScore)
	assert.Equal(t, domain.SignalNeutral, result.Signal)
	assert.Len(t, result.Rationale, 1)
	// quality 0.75 * presence factor 0.60
	assert.InDelta(t, 0.45, result.Confidence, 1e-9)
}

func TestEngine_ThresholdBoundaryIsNeutral(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name  string
		value float64
		want  domain.Signal
	}{
		{"exactly bullish threshold", 0.2, domain.SignalNeutral},
		{"just above bullish threshold", 0.2000001, domain.SignalBullish},
		{"exactly bearish threshold", -0.2, domain.SignalNeutral},
		{"just below bearish threshold", -0.2000001, domain.SignalBearish},
		{"zero", 0, domain.SignalNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pillars := map[domain.Pillar]domain.PillarResult{
				domain.PillarOnchain: {Value: tt.value, Quality: domain.QualityExcellent},
			}
			result, err := engine.Compute(context.Background(), testAddress, domain.NetworkEthereum, pillars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Signal)
		})
	}
}

func TestEngine_ScoreAlwaysInRange(t *testing.T) {
	engine := newTestEngine(t)

	// Misbehaving sources can report out-of-range values; the engine clamps
	// instead of failing.
	pillars := map[domain.Pillar]domain.PillarResult{
		domain.PillarOnchain: {Value: 3.5, Quality: domain.QualityExcellent},
	}

	result, err := engine.Compute(context.Background(), testAddress, domain.NetworkEthereum, pillars)
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.OverallScore)
	assert.Equal(t, domain.SignalBullish, result.Signal)

	pillars[domain.PillarOnchain] = domain.PillarResult{Value: -2.0, Quality: domain.QualityExcellent}
	result, err = engine.Compute(context.Background(), testAddress, domain.NetworkEthereum, pillars)
	require.NoError(t, err)
	assert.Equal(t, -1.0, result.OverallScore)
	assert.Equal(t, domain.SignalBearish, result.Signal)
}

func TestEngine_QualityBands(t *testing.T) {
	tests := []struct {
		confidence float64
		want       domain.DataQuality
	}{
		{0.95, domain.DataQualityExcellent},
		{0.85, domain.DataQualityExcellent},
		{0.84, domain.DataQualityGood},
		{0.6, domain.DataQualityGood},
		{0.59, domain.DataQualityFair},
		{0.35, domain.DataQualityFair},
		{0.34, domain.DataQualityPoor},
		{0, domain.DataQualityPoor},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, qualityBand(tt.confidence), "confidence %g", tt.confidence)
	}
}

func TestEngine_RationaleOrderAndWording(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Compute(context.Background(), testAddress, domain.NetworkEthereum,
		allPillars(0.8, -0.3, 0.1))
	require.NoError(t, err)

	require.Len(t, result.Rationale, 3)
	assert.True(t, strings.HasPrefix(result.Rationale[0], "Onchain:"))
	assert.True(t, strings.HasPrefix(result.Rationale[1], "Social:"))
	assert.True(t, strings.HasPrefix(result.Rationale[2], "Fundamentals:"))

	assert.Contains(t, result.Rationale[0], "strong smart money inflows")
	assert.Contains(t, result.Rationale[1], "negative community sentiment")
	assert.Contains(t, result.Rationale[2], "moderate trading activity")
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	clock := clockwork.NewFakeClock()

	_, err := NewEngine(Weights{Onchain: 0.5, Social: 0.25, Fundamentals: 0.15}, DefaultThresholds, clock)
	assert.Error(t, err)

	_, err = NewEngine(DefaultWeights, Thresholds{Bullish: -0.2, Bearish: -0.4}, clock)
	assert.Error(t, err)

	_, err = NewEngine(DefaultWeights, Thresholds{Bullish: 0.2, Bearish: 0.1}, clock)
	assert.Error(t, err)
}
