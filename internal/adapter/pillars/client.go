// Package pillars implements the three upstream data sources feeding the
// sentiment engine. Each source shares one HTTP client shape: retry with
// backoff for transient failures, a circuit breaker per upstream, and
// categorized errors so the caller can degrade the pillar instead of failing
// the whole analysis.
package pillars

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/platform/retry"
)

// retryableStatuses are upstream responses worth another attempt.
var retryableStatuses = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// statusError carries a non-2xx upstream status through the retry loop.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// Client is the shared HTTP layer under every pillar source.
type Client struct {
	pillar     domain.Pillar
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	policy     retry.Policy
}

// NewClient builds a pillar API client. The timeout bounds a single HTTP
// attempt; the caller's context bounds the whole fetch including retries.
func NewClient(pillar domain.Pillar, baseURL, apiKey string, timeout time.Duration) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    string(pillar),
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Pillar source circuit breaker state changed",
				"pillar", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Client{
		pillar:     pillar,
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		policy: retry.Policy{
			MaxAttempts:      3,
			InitialBackoff:   200 * time.Millisecond,
			RateLimitBackoff: time.Second,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Debug("Retrying pillar fetch",
					"pillar", pillar,
					"attempt", attempt,
					"backoff", backoff,
					"error", err,
				)
			},
		},
	}
}

// getJSON fetches path with the query, retrying transient failures, and
// decodes the response into out. Errors come back as *domain.FetchError.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := retry.Do(ctx, c.policy, classify, func() ([]byte, error) {
		raw, err := c.breaker.Execute(func() (any, error) {
			return c.doRequest(ctx, path, query)
		})
		if err != nil {
			return nil, err
		}
		return raw.([]byte), nil
	})
	if err != nil {
		return c.fetchError(err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return domain.NewFetchError(c.pillar, domain.FetchInvalidResponse, err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// classify maps an attempt error to a retry action: 429 waits on the longer
// schedule, 5xx and network errors retry normally, everything else (404, an
// open breaker, context cancellation) aborts.
func classify(err error) retry.Action {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return retry.Stop
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Stop
	}

	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.Status == http.StatusTooManyRequests:
			return retry.After
		case retryableStatuses[se.Status]:
			return retry.Retry
		default:
			return retry.Stop
		}
	}

	// Anything else is a transport-level failure.
	return retry.Retry
}

// fetchError categorizes the final error after retries are exhausted.
func (c *Client) fetchError(err error) *domain.FetchError {
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.Status == http.StatusTooManyRequests:
			return domain.NewFetchError(c.pillar, domain.FetchRateLimited, err)
		case se.Status == http.StatusNotFound:
			return domain.NewFetchError(c.pillar, domain.FetchNotFound, err)
		case retryableStatuses[se.Status]:
			return domain.NewFetchError(c.pillar, domain.FetchNetworkError, err)
		default:
			return domain.NewFetchError(c.pillar, domain.FetchInvalidResponse, err)
		}
	}
	return domain.NewFetchError(c.pillar, domain.FetchNetworkError, err)
}
