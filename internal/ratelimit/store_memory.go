package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounterStore is a TTL map for single-process deployments and tests.
type MemoryCounterStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

type MemoryOption func(*MemoryCounterStore)

func WithMemoryClock(clock func() time.Time) MemoryOption {
	return func(s *MemoryCounterStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewMemoryCounterStore(opts ...MemoryOption) *MemoryCounterStore {
	s := &MemoryCounterStore{entries: make(map[string]memoryEntry), clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryCounterStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if s.clock().After(entry.expiresAt) {
		delete(s.entries, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryCounterStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expiresAt: s.clock().Add(ttl)}
	return nil
}
