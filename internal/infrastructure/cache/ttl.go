package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hszk-dev/movierec/internal/clock"
	"github.com/hszk-dev/movierec/internal/infrastructure/metrics"
)

// DefaultTTL is how long a cached lookup stays live.
const DefaultTTL = 30 * time.Minute

// TTLCache layers time-based expiry over a Store.
//
// An entry is stale once now-StoredAt >= ttl. Stale entries read as misses and
// are deleted by the read that observed them; nothing is evicted eagerly.
type TTLCache struct {
	store Store
	clock clock.Clock
	ttl   time.Duration
}

// NewTTLCache creates a TTLCache. A non-positive ttl uses DefaultTTL.
func NewTTLCache(store Store, clk clock.Clock, ttl time.Duration) *TTLCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.New()
	}
	return &TTLCache{
		store: store,
		clock: clk,
		ttl:   ttl,
	}
}

// TTL returns the configured time-to-live.
func (c *TTLCache) TTL() time.Duration {
	return c.ttl
}

// Get decodes the live value for key into dst.
// Returns false on miss or stale entry. Errors are reported alongside false.
func (c *TTLCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	cacheType := c.store.Type()

	entry, err := c.store.Get(ctx, key)
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError, cacheType).Inc()
		return false, err
	}
	if entry == nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss, cacheType).Inc()
		return false, nil
	}

	if c.isStale(entry) {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusStale, cacheType).Inc()
		if err := c.store.Delete(ctx, key); err != nil {
			metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusError, cacheType).Inc()
			return false, fmt.Errorf("evict stale entry: %w", err)
		}
		return false, nil
	}

	if err := json.Unmarshal(entry.Value, dst); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError, cacheType).Inc()
		return false, fmt.Errorf("decode cached value: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit, cacheType).Inc()
	return true, nil
}

// Set stores value under key, stamped with the current clock time.
func (c *TTLCache) Set(ctx context.Context, key string, value any) error {
	cacheType := c.store.Type()

	data, err := json.Marshal(value)
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError, cacheType).Inc()
		return fmt.Errorf("encode value: %w", err)
	}

	entry := &Entry{
		Key:      key,
		Value:    data,
		StoredAt: c.clock.Now(),
	}
	if err := c.store.Set(ctx, entry, c.ttl); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError, cacheType).Inc()
		return err
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess, cacheType).Inc()
	return nil
}

// Clear drops every entry.
func (c *TTLCache) Clear(ctx context.Context) error {
	cacheType := c.store.Type()
	if err := c.store.Clear(ctx); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpClear, metrics.CacheStatusError, cacheType).Inc()
		return err
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpClear, metrics.CacheStatusSuccess, cacheType).Inc()
	return nil
}

func (c *TTLCache) isStale(entry *Entry) bool {
	return c.clock.Now().Sub(entry.StoredAt) >= c.ttl
}
