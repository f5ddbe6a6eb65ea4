package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
)

// DefaultMaxEntries bounds the in-memory store so a durable-backend outage
// cannot grow it without limit.
const DefaultMaxEntries = 1000

// MemoryStore is the process-local cache backend with TTL-based expiry.
// It serves as the fallback while the durable store is unreachable and
// provides no cross-process consistency.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]*memoryEntry
	maxEntries int
}

type memoryEntry struct {
	result    domain.AnalysisResult
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a memory store holding at most maxEntries entries.
// A non-positive maxEntries falls back to DefaultMaxEntries.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (domain.AnalysisResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return domain.AnalysisResult{}, false, nil
	}

	if time.Now().After(entry.expiresAt) {
		return domain.AnalysisResult{}, false, nil
	}

	return entry.result, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, result domain.AnalysisResult, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		s.evictLocked()
	}

	s.entries[key] = &memoryEntry{
		result:    result,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Size returns the number of entries, including not yet evicted expired ones.
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// evictLocked frees room for one new entry: expired entries first, then the
// entry closest to expiry. Caller must hold the write lock.
func (s *MemoryStore) evictLocked() {
	now := time.Now()
	evicted := false
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
			evicted = true
		}
	}
	if evicted {
		return
	}

	var oldestKey string
	var oldest time.Time
	for key, entry := range s.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldest) {
			oldestKey = key
			oldest = entry.expiresAt
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}

// EvictExpired removes all expired entries and returns how many were dropped.
func (s *MemoryStore) EvictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	evicted := 0

	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
			evicted++
		}
	}

	return evicted
}

// StartEvictionTimer runs a periodic goroutine that evicts expired entries.
// Returns a stop function that should be deferred.
func (s *MemoryStore) StartEvictionTimer(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan bool)

	go func() {
		for {
			select {
			case <-ticker.C:
				evicted := s.EvictExpired()
				if evicted > 0 {
					slog.Debug("Evicted expired result cache entries", "count", evicted, "remaining", s.Size())
				}

			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}
