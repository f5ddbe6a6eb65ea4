package pillars

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

var (
	flowLadder  = QualityLadder{Fair: 1_000, Good: 10_000, Excellent: 100_000}
	postsLadder = QualityLadder{Fair: 10, Good: 30, Excellent: 50}
	mcapLadder  = QualityLadder{Fair: 1_000_000, Good: 100_000_000, Excellent: 1_000_000_000}
	testAddress = "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984"
)

func jsonServer(t *testing.T, wantPath string, payload any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantPath, r.URL.Path)
		assert.Equal(t, testAddress, r.URL.Query().Get("address"))
		assert.Equal(t, "ethereum", r.URL.Query().Get("network"))
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOnchainSource_NetFlowScore(t *testing.T) {
	tests := []struct {
		name        string
		inflow      float64
		outflow     float64
		wantValue   float64
		wantQuality domain.Quality
	}{
		{
			name:   "balanced flows with good volume",
			inflow: 6_000, outflow: 4_000,
			wantValue: 0.2, wantQuality: domain.QualityGood,
		},
		{
			name:   "pure inflow with excellent volume",
			inflow: 150_000, outflow: 0,
			wantValue: 1.0, wantQuality: domain.QualityExcellent,
		},
		{
			name:   "net outflow rounded to three decimals",
			inflow: 1_000, outflow: 2_000,
			wantValue: -0.333, wantQuality: domain.QualityFair,
		},
		{
			name:   "tiny flows grade poor",
			inflow: 300, outflow: 100,
			wantValue: 0.5, wantQuality: domain.QualityPoor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := jsonServer(t, "/v1/flows", flowsResponse{InflowUSD: tt.inflow, OutflowUSD: tt.outflow})
			source := NewOnchainSource(server.URL, "", time.Second, flowLadder)

			result, err := source.Fetch(context.Background(), testAddress, domain.NetworkEthereum)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantValue, result.Value, 1e-9)
			assert.Equal(t, tt.wantQuality, result.Quality)
		})
	}
}

func TestOnchainSource_NoFlowsIsMissing(t *testing.T) {
	server := jsonServer(t, "/v1/flows", flowsResponse{})
	source := NewOnchainSource(server.URL, "", time.Second, flowLadder)

	result, err := source.Fetch(context.Background(), testAddress, domain.NetworkEthereum)
	require.NoError(t, err)
	assert.Equal(t, domain.QualityMissing, result.Quality)
	assert.False(t, result.Present())
}

func TestSocialSource_EngagementWeightedMean(t *testing.T) {
	// The viral post (weight 10) dominates the silent one (weight 1).
	server := jsonServer(t, "/v1/posts", postsResponse{Posts: []post{
		{Sentiment: 1.0, Likes: 5, Reposts: 3, Replies: 1},
		{Sentiment: -1.0},
	}})
	source := NewSocialSource(server.URL, "", time.Second, postsLadder)

	result, err := source.Fetch(context.Background(), testAddress, domain.NetworkEthereum)
	require.NoError(t, err)
	assert.InDelta(t, 9.0/11.0, result.Value, 1e-9)
	assert.Equal(t, domain.QualityPoor, result.Quality, "Two posts are below the fair cutoff")
}

func TestSocialSource_PostCountDrivesQuality(t *testing.T) {
	tests := []struct {
		posts       int
		wantQuality domain.Quality
	}{
		{5, domain.QualityPoor},
		{10, domain.QualityFair},
		{30, domain.QualityGood},
		{75, domain.QualityExcellent},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d posts", tt.posts), func(t *testing.T) {
			posts := make([]post, tt.posts)
			for i := range posts {
				posts[i] = post{Sentiment: 0.4, Likes: 2}
			}
			server := jsonServer(t, "/v1/posts", postsResponse{Posts: posts})
			source := NewSocialSource(server.URL, "", time.Second, postsLadder)

			result, err := source.Fetch(context.Background(), testAddress, domain.NetworkEthereum)
			require.NoError(t, err)
			assert.Equal(t, tt.wantQuality, result.Quality)
			assert.InDelta(t, 0.4, result.Value, 1e-9)
		})
	}
}

func TestSocialSource_NoPostsIsMissing(t *testing.T) {
	server := jsonServer(t, "/v1/posts", postsResponse{})
	source := NewSocialSource(server.URL, "", time.Second, postsLadder)

	result, err := source.Fetch(context.Background(), testAddress, domain.NetworkEthereum)
	require.NoError(t, err)
	assert.Equal(t, domain.QualityMissing, result.Quality)
}

func TestSocialSource_OutOfRangeSentimentIsClamped(t *testing.T) {
	server := jsonServer(t, "/v1/posts", postsResponse{Posts: []post{
		{Sentiment: 3.5, Likes: 1},
	}})
	source := NewSocialSource(server.URL, "", time.Second, postsLadder)

	result, err := source.Fetch(context.Background(), testAddress, domain.NetworkEthereum)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.Value, 1e-9)
}

func TestFundamentalsSource_TurnoverScore(t *testing.T) {
	tests := []struct {
		name        string
		volume      float64
		mcap        float64
		wantValue   float64
		wantQuality domain.Quality
	}{
		{
			name:   "one percent daily turnover",
			volume: 5_000_000, mcap: 500_000_000,
			wantValue: 0.1, wantQuality: domain.QualityGood,
		},
		{
			name:   "turnover above ten percent caps at one",
			volume: 400_000_000, mcap: 2_000_000_000,
			wantValue: 1.0, wantQuality: domain.QualityExcellent,
		},
		{
			name:   "micro cap grades poor",
			volume: 50_000, mcap: 500_000,
			wantValue: 1.0, wantQuality: domain.QualityPoor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := jsonServer(t, "/v1/market", marketResponse{Volume24hUSD: tt.volume, MarketCapUSD: tt.mcap})
			source := NewFundamentalsSource(server.URL, "", time.Second, mcapLadder)

			result, err := source.Fetch(context.Background(), testAddress, domain.NetworkEthereum)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantValue, result.Value, 1e-9)
			assert.Equal(t, tt.wantQuality, result.Quality)
		})
	}
}

func TestFundamentalsSource_ZeroMarketCapIsMissing(t *testing.T) {
	server := jsonServer(t, "/v1/market", marketResponse{Volume24hUSD: 1_000})
	source := NewFundamentalsSource(server.URL, "", time.Second, mcapLadder)

	result, err := source.Fetch(context.Background(), testAddress, domain.NetworkEthereum)
	require.NoError(t, err)
	assert.Equal(t, domain.QualityMissing, result.Quality)
}

func TestSources_ErrorsCarryTheirPillar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	sources := []domain.PillarSource{
		NewOnchainSource(server.URL, "", time.Second, flowLadder),
		NewSocialSource(server.URL, "", time.Second, postsLadder),
		NewFundamentalsSource(server.URL, "", time.Second, mcapLadder),
	}

	for _, source := range sources {
		t.Run(string(source.Pillar()), func(t *testing.T) {
			_, err := source.Fetch(context.Background(), testAddress, domain.NetworkEthereum)
			var fetchErr *domain.FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, source.Pillar(), fetchErr.Pillar)
			assert.Equal(t, domain.FetchNotFound, fetchErr.Kind)
			assert.Contains(t, strings.ToLower(fetchErr.Error()), string(source.Pillar()))
		})
	}
}

func TestQualityLadder_Grade(t *testing.T) {
	tests := []struct {
		metric float64
		want   domain.Quality
	}{
		{0, domain.QualityMissing},
		{500, domain.QualityPoor},
		{1_000, domain.QualityFair},
		{9_999, domain.QualityFair},
		{10_000, domain.QualityGood},
		{100_000, domain.QualityExcellent},
		{-5, domain.QualityMissing},
	}

	ladder := flowLadder
	for _, tt := range tests {
		assert.Equal(t, tt.want, ladder.Grade(tt.metric), "metric %g", tt.metric)
	}
}
