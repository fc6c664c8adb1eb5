package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMemorySize = 10000

type memoryEntry struct {
	value    []byte
	expireAt time.Time
}

// MemoryStore is a bounded in-process store used when no redis is configured
// (single replica deployments, local development and tests).
type MemoryStore struct {
	entries *lru.Cache[string, memoryEntry]
	now     func() time.Time
}

func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = defaultMemorySize
	}
	c, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{entries: c, now: time.Now}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := s.entries.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	if !e.expireAt.IsZero() && !s.now().Before(e.expireAt) {
		s.entries.Remove(key)
		return nil, ErrMiss
	}
	return e.value, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expireAt = s.now().Add(ttl)
	}
	s.entries.Add(key, e)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.entries.Remove(k)
	}
	return nil
}

// Len reports the number of live and not yet evicted entries.
func (s *MemoryStore) Len() int {
	return s.entries.Len()
}
