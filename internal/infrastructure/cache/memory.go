package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hszk-dev/movierec/internal/infrastructure/metrics"
)

// MemoryStore is a process-local Store. Entries live until deleted or cleared.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (s *MemoryStore) Set(_ context.Context, entry *Entry, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *entry
	stored.Value = append([]byte(nil), entry.Value...)
	s.entries[entry.Key] = stored
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]Entry)
	return nil
}

// Len returns the number of stored entries, stale ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Type() string {
	return metrics.CacheTypeMemory
}

var _ Store = (*MemoryStore)(nil)
