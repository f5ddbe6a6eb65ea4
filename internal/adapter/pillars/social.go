package pillars

import (
	"context"
	"net/url"
	"time"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

// SocialSource derives sentiment from recent community posts. Each post
// carries a sentiment score; the pillar value is the engagement-weighted
// mean, so a viral post moves the needle more than a silent one.
type SocialSource struct {
	client *Client
	ladder QualityLadder
}

var _ domain.PillarSource = (*SocialSource)(nil)

func NewSocialSource(baseURL, apiKey string, timeout time.Duration, ladder QualityLadder) *SocialSource {
	return &SocialSource{
		client: NewClient(domain.PillarSocial, baseURL, apiKey, timeout),
		ladder: ladder,
	}
}

func (s *SocialSource) Pillar() domain.Pillar {
	return domain.PillarSocial
}

type postsResponse struct {
	Posts []post `json:"posts"`
}

type post struct {
	Sentiment float64 `json:"sentiment"`
	Likes     int     `json:"likes"`
	Reposts   int     `json:"reposts"`
	Replies   int     `json:"replies"`
}

// engagementWeight gives every post a base weight of 1 so zero-engagement
// posts still count.
func (p post) engagementWeight() float64 {
	return float64(p.Likes+p.Reposts+p.Replies) + 1
}

func (s *SocialSource) Fetch(ctx context.Context, address string, network domain.Network) (domain.PillarResult, error) {
	query := url.Values{
		"network": {string(network)},
		"address": {address},
	}

	var resp postsResponse
	if err := s.client.getJSON(ctx, "/v1/posts", query, &resp); err != nil {
		return domain.PillarResult{}, err
	}

	if len(resp.Posts) == 0 {
		return domain.PillarResult{Quality: domain.QualityMissing}, nil
	}

	var weightedSum, weightTotal float64
	for _, p := range resp.Posts {
		w := p.engagementWeight()
		weightedSum += clamp(p.Sentiment) * w
		weightTotal += w
	}

	return domain.PillarResult{
		Value:   clamp(weightedSum / weightTotal),
		Quality: s.ladder.Grade(float64(len(resp.Posts))),
	}, nil
}
