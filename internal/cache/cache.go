// Package cache implements the shared key-value cache in front of the
// durable store. Entries are advisory: a missing or stale entry never
// means a code doesn't exist, it only means the durable store has to be
// asked.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avbelov/url-shortener/internal/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "shorturl:"

func entryKey(code string) string {
	return keyPrefix + code
}

// Store reads and writes CacheEntry values keyed by short code.
type Store struct {
	rdb     *redis.Client
	metrics *Metrics
}

func NewStore(rdb *redis.Client, metrics *Metrics) *Store {
	return &Store{
		rdb:     rdb,
		metrics: metrics,
	}
}

// Get returns the cached entry for code, or (nil, nil) when the code is
// absent from the cache. Every lookup is recorded on the metrics sink.
func (s *Store) Get(ctx context.Context, code string) (*models.CacheEntry, error) {
	const op = "cache.Store.Get"

	data, err := s.rdb.Get(ctx, entryKey(code)).Result()
	if err != nil {
		if err == redis.Nil {
			s.metrics.Miss()
			return nil, nil
		}

		return nil, fmt.Errorf("%s: failed to get cache entry: %w", op, err)
	}

	var entry models.CacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		s.metrics.Miss()
		return nil, fmt.Errorf("%s: failed to unmarshal cache entry: %w", op, err)
	}

	s.metrics.Hit()
	return &entry, nil
}

// Set stores entry under code. A zero ttl means no expiry.
func (s *Store) Set(ctx context.Context, code string, entry *models.CacheEntry, ttl time.Duration) error {
	const op = "cache.Store.Set"

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal cache entry: %w", op, err)
	}

	if err := s.rdb.Set(ctx, entryKey(code), data, ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to set cache entry: %w", op, err)
	}

	return nil
}

// IncrementClickCount bumps the cached click counter for code and returns
// the new value. It is a read-modify-write, not an atomic operation:
// concurrent increments may lose updates, which is acceptable because the
// durable store is the source of truth and the next cache miss
// resynchronizes the entry. A missing entry is a no-op and returns 0.
func (s *Store) IncrementClickCount(ctx context.Context, code string) (int64, error) {
	const op = "cache.Store.IncrementClickCount"

	entry, err := s.Get(ctx, code)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if entry == nil {
		return 0, nil
	}

	entry.ClickCount++

	data, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to marshal cache entry: %w", op, err)
	}

	// KeepTTL preserves whatever expiry the entry was stored with.
	if err := s.rdb.Set(ctx, entryKey(code), data, redis.KeepTTL).Err(); err != nil {
		return 0, fmt.Errorf("%s: failed to set cache entry: %w", op, err)
	}

	return entry.ClickCount, nil
}
