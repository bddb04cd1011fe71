package redis

import (
	"context"
	"fmt"
	"time"
)

// Limiter implements fixed-window rate limiting on top of Redis using
// INCR with a window-length expiry. Counting is shared across processes,
// so multiple scanner instances behind one load balancer enforce a single
// combined limit.
type Limiter struct {
	client *Client
}

// NewLimiter creates a Limiter backed by the given client.
func NewLimiter(c *Client) *Limiter {
	return &Limiter{client: c}
}

// Allow reports whether the caller identified by key may proceed. The first
// request in a window creates the counter and sets its expiry; subsequent
// requests increment it until the limit is reached.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rdb := l.client.Underlying()

	pipe := rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit incr %s: %w", key, err)
	}

	return incr.Val() <= int64(limit), nil
}
