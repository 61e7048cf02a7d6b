package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryStore keeps windows in a bounded LRU cache. Suitable for a single
// instance; use RedisStore when several instances share the budget.
type MemoryStore struct {
	rate    Rate
	mu      sync.Mutex
	windows *lru.Cache[string, *window]
	now     func() time.Time
}

// NewMemoryStore creates a store holding at most size keys. The least
// recently used key is evicted first.
func NewMemoryStore(rate Rate, size int) (*MemoryStore, error) {
	cache, err := lru.New[string, *window](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit cache: %w", err)
	}
	return &MemoryStore{
		rate:    rate,
		windows: cache,
		now:     time.Now,
	}, nil
}

// Allow implements Store.
func (s *MemoryStore) Allow(_ context.Context, key string) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows.Get(key)
	if !ok || w.expired(now) {
		return decide(s.rate, 0, 0), nil
	}
	return decide(s.rate, w.count, w.resetAt.Sub(now)), nil
}

// Fail implements Store.
func (s *MemoryStore) Fail(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows.Get(key)
	if !ok || w.expired(now) {
		w = &window{resetAt: now.Add(s.rate.Window)}
		s.windows.Add(key, w)
	}
	w.count++
	return nil
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	return s.windows.Len()
}
