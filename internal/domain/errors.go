package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoData is returned when all three pillars are missing and no
	// analysis can be produced. Results are never cached in this case.
	ErrNoData = errors.New("insufficient data: all pillars missing")

	// ErrResultNotFound is returned when no cached analysis exists for a key.
	ErrResultNotFound = errors.New("analysis result not found")

	// ErrRequestTimeout is returned when the overall analysis deadline is
	// exceeded. Distinct from per-pillar timeouts, which degrade to Missing.
	ErrRequestTimeout = errors.New("analysis deadline exceeded")
)

// RateLimitError signals that a caller exhausted its sliding window.
// RetryAfter tells the caller when the oldest slot frees up.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// FetchErrorKind categorizes pillar source failures. Every kind degrades the
// pillar to QualityMissing; none is fatal to the overall request.
type FetchErrorKind string

const (
	FetchRateLimited     FetchErrorKind = "rate_limited"
	FetchNotFound        FetchErrorKind = "not_found"
	FetchNetworkError    FetchErrorKind = "network_error"
	FetchInvalidResponse FetchErrorKind = "invalid_response"
)

// FetchError wraps a pillar source failure with its category.
type FetchError struct {
	Pillar Pillar
	Kind   FetchErrorKind
	Cause  error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s pillar fetch failed (%s): %v", e.Pillar, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s pillar fetch failed (%s)", e.Pillar, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewFetchError builds a categorized pillar fetch error.
func NewFetchError(pillar Pillar, kind FetchErrorKind, cause error) *FetchError {
	return &FetchError{Pillar: pillar, Kind: kind, Cause: cause}
}
