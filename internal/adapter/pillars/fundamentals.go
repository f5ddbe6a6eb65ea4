package pillars

import (
	"context"
	"math"
	"net/url"
	"time"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

// FundamentalsSource derives sentiment from market activity: the 24h volume
// relative to market cap, scaled so a 10% daily turnover maxes the score.
type FundamentalsSource struct {
	client *Client
	ladder QualityLadder
}

var _ domain.PillarSource = (*FundamentalsSource)(nil)

func NewFundamentalsSource(baseURL, apiKey string, timeout time.Duration, ladder QualityLadder) *FundamentalsSource {
	return &FundamentalsSource{
		client: NewClient(domain.PillarFundamentals, baseURL, apiKey, timeout),
		ladder: ladder,
	}
}

func (s *FundamentalsSource) Pillar() domain.Pillar {
	return domain.PillarFundamentals
}

type marketResponse struct {
	Volume24hUSD float64 `json:"volume24hUsd"`
	MarketCapUSD float64 `json:"marketCapUsd"`
}

func (s *FundamentalsSource) Fetch(ctx context.Context, address string, network domain.Network) (domain.PillarResult, error) {
	query := url.Values{
		"network": {string(network)},
		"address": {address},
	}

	var market marketResponse
	if err := s.client.getJSON(ctx, "/v1/market", query, &market); err != nil {
		return domain.PillarResult{}, err
	}

	quality := s.ladder.Grade(market.MarketCapUSD)
	if quality == domain.QualityMissing || market.MarketCapUSD <= 0 {
		return domain.PillarResult{Quality: domain.QualityMissing}, nil
	}

	score := market.Volume24hUSD / market.MarketCapUSD * 10
	score = math.Max(0, math.Min(1, score))

	return domain.PillarResult{Value: score, Quality: quality}, nil
}
