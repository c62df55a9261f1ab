// Package ratelimit implements a fixed-window request limiter on top of
// the shared redis instance, so the limit holds across every process
// serving traffic.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rl:"

const (
	DefaultLimit  = 20
	DefaultWindow = time.Minute
)

// Limiter counts requests per client key in fixed time windows. The window
// resets wholesale when the key expires, so bursts at a window boundary can
// admit up to twice the limit within a short span. That is a known property
// of fixed-window counting, not something this type tries to correct.
type Limiter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
}

func New(rdb *redis.Client, limit int64, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}

	return &Limiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
	}
}

// Allow reports whether the request identified by clientKey fits into the
// current window. The first request of a window starts its expiry clock.
func (l *Limiter) Allow(ctx context.Context, clientKey string) (bool, error) {
	const op = "ratelimit.Limiter.Allow"

	key := keyPrefix + clientKey

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%s: failed to increment counter: %w", op, err)
	}

	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("%s: failed to set window expiry: %w", op, err)
		}
	}

	return count <= l.limit, nil
}
