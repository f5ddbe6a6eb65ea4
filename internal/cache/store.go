// Package cache implements the hybrid result cache: a durable shared store
// with an in-process fallback, guarded by a circuit breaker, with
// single-flight deduplication of concurrent misses.
package cache

import (
	"context"
	"time"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

// Store is the capability interface both cache backends implement. Callers
// never branch on backend type; the hybrid wrapper selects the route.
type Store interface {
	// Get returns the stored result and whether it was found. Expired
	// entries count as misses.
	Get(ctx context.Context, key string) (domain.AnalysisResult, bool, error)
	Set(ctx context.Context, key string, result domain.AnalysisResult, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
