package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/movierec/internal/infrastructure/metrics"
)

const (
	// metadataCacheKeyPrefix is the prefix for metadata cache keys in Redis.
	metadataCacheKeyPrefix = "metadata:"

	// clearScanCount is the SCAN batch size used by Clear.
	clearScanCount = 500
)

// entryJSON is the JSON representation of an Entry in Redis.
type entryJSON struct {
	Key      string          `json:"key"`
	Value    json.RawMessage `json:"value"`
	StoredAt string          `json:"stored_at"`
}

// RedisStore implements Store using Redis as the backing store.
// It lets the API and worker processes share one metadata cache.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed cache store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
	}
}

// Get retrieves an entry from Redis.
// Returns nil, nil on cache miss.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.client.Get(ctx, s.buildKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	entry, err := s.deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("deserialize entry: %w", err)
	}

	return entry, nil
}

// Set stores an entry in Redis. ttl is applied as the Redis expiry so
// abandoned keys do not accumulate.
func (s *RedisStore) Set(ctx context.Context, entry *Entry, ttl time.Duration) error {
	data, err := s.serialize(entry)
	if err != nil {
		return fmt.Errorf("serialize entry: %w", err)
	}

	if err := s.client.Set(ctx, s.buildKey(entry.Key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes an entry from Redis.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.buildKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// Clear removes every metadata key. Keys outside the metadata prefix are untouched.
func (s *RedisStore) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, metadataCacheKeyPrefix+"*", clearScanCount).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (s *RedisStore) Type() string {
	return metrics.CacheTypeRedis
}

// buildKey constructs the Redis key for a cache key.
func (s *RedisStore) buildKey(key string) string {
	return metadataCacheKeyPrefix + key
}

// serialize converts an Entry to JSON bytes.
func (s *RedisStore) serialize(entry *Entry) ([]byte, error) {
	v := entryJSON{
		Key:      entry.Key,
		Value:    entry.Value,
		StoredAt: entry.StoredAt.Format(time.RFC3339Nano),
	}
	return json.Marshal(v)
}

// deserialize converts JSON bytes to an Entry.
func (s *RedisStore) deserialize(data []byte) (*Entry, error) {
	var v entryJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	storedAt, err := time.Parse(time.RFC3339Nano, v.StoredAt)
	if err != nil {
		return nil, fmt.Errorf("parse stored_at: %w", err)
	}

	return &Entry{
		Key:      v.Key,
		Value:    v.Value,
		StoredAt: storedAt,
	}, nil
}

var _ Store = (*RedisStore)(nil)
