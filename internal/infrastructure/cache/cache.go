package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is a cached value and the time it was stored.
type Entry struct {
	Key      string
	Value    json.RawMessage
	StoredAt time.Time
}

// Store persists cache entries. Stores do not decide staleness; TTLCache does.
// Implementations should handle serialization/deserialization transparently.
type Store interface {
	// Get retrieves an entry by key.
	// Returns nil, nil if the key is not present (cache miss).
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores an entry. ttl is a retention hint; stores may keep entries longer.
	Set(ctx context.Context, entry *Entry, ttl time.Duration) error

	// Delete removes an entry by key.
	// Returns nil if the key was not present.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by the store.
	Clear(ctx context.Context) error

	// Type names the backend for metrics (e.g., "memory", "redis").
	Type() string
}
