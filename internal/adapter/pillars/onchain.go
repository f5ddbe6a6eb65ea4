package pillars

import (
	"context"
	"math"
	"net/url"
	"time"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

// OnchainSource derives sentiment from smart money flows: the normalized net
// flow (inflow - outflow) / (inflow + outflow) over the lookback window.
type OnchainSource struct {
	client *Client
	ladder QualityLadder
}

var _ domain.PillarSource = (*OnchainSource)(nil)

func NewOnchainSource(baseURL, apiKey string, timeout time.Duration, ladder QualityLadder) *OnchainSource {
	return &OnchainSource{
		client: NewClient(domain.PillarOnchain, baseURL, apiKey, timeout),
		ladder: ladder,
	}
}

func (s *OnchainSource) Pillar() domain.Pillar {
	return domain.PillarOnchain
}

type flowsResponse struct {
	InflowUSD  float64 `json:"inflowUsd"`
	OutflowUSD float64 `json:"outflowUsd"`
}

func (s *OnchainSource) Fetch(ctx context.Context, address string, network domain.Network) (domain.PillarResult, error) {
	query := url.Values{
		"network": {string(network)},
		"address": {address},
	}

	var flows flowsResponse
	if err := s.client.getJSON(ctx, "/v1/flows", query, &flows); err != nil {
		return domain.PillarResult{}, err
	}

	total := flows.InflowUSD + flows.OutflowUSD
	quality := s.ladder.Grade(total)
	if quality == domain.QualityMissing {
		return domain.PillarResult{Quality: domain.QualityMissing}, nil
	}

	// Guard the division; total is nonzero here but stays explicit.
	denom := total
	if denom == 0 {
		denom = 1.0
	}
	score := (flows.InflowUSD - flows.OutflowUSD) / denom
	score = math.Round(score*1000) / 1000

	return domain.PillarResult{Value: clamp(score), Quality: quality}, nil
}

// clamp bounds a pillar score to [-1, 1].
func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
