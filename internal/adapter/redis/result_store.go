// Package redis implements the durable cache backend over a shared Redis
// instance. A healthy Redis gives de facto cross-process deduplication via
// shared storage; single-flight itself only dedups within one process.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/cache"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

// ResultStore persists analysis results as JSON values with a TTL set by
// Redis itself, so expired reads are plain misses.
type ResultStore struct {
	rdb goredis.Cmdable
}

var _ cache.Store = (*ResultStore)(nil)

func NewResultStore(rdb goredis.Cmdable) *ResultStore {
	return &ResultStore{rdb: rdb}
}

func (s *ResultStore) Get(ctx context.Context, key string) (domain.AnalysisResult, bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.AnalysisResult{}, false, nil
		}
		return domain.AnalysisResult{}, false, fmt.Errorf("redis result GET failed: %w", err)
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		// A corrupt entry is unreadable forever; drop it and report a miss.
		_ = s.rdb.Del(ctx, key).Err()
		return domain.AnalysisResult{}, false, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}

	return result, true, nil
}

func (s *ResultStore) Set(ctx context.Context, key string, result domain.AnalysisResult, ttl time.Duration) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result for cache: %w", err)
	}

	if err := s.rdb.Set(ctx, key, encoded, ttl).Err(); err != nil {
		return fmt.Errorf("redis result SET failed: %w", err)
	}
	return nil
}

func (s *ResultStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis result DEL failed: %w", err)
	}
	return nil
}
