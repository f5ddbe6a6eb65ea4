package domain

import (
	"context"
	"time"
)

// ComputeFunc produces a fresh analysis result on a cache miss.
type ComputeFunc func(ctx context.Context) (AnalysisResult, error)

// ResultCache stores computed analysis results with a bounded TTL.
//
// GetOrCompute deduplicates concurrent misses for the same key: one caller
// runs compute, all others wait for its outcome. The owner's failure is
// delivered to every current waiter; retrying is the caller's decision on a
// later call. A waiter whose context expires gives up waiting, but the
// in-flight computation continues and still populates the cache.
type ResultCache interface {
	Get(ctx context.Context, key string) (AnalysisResult, bool)
	Set(ctx context.Context, key string, result AnalysisResult, ttl time.Duration)
	Delete(ctx context.Context, key string) error
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) (AnalysisResult, error)
}
