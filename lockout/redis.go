package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounters implements CounterStore on Redis fixed-window counters.
type RedisCounters struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisCounters creates a RedisCounters. prefix namespaces the keys;
// empty means "auth".
func NewRedisCounters(rdb redis.UniversalClient, prefix string) *RedisCounters {
	if prefix == "" {
		prefix = "auth"
	}
	return &RedisCounters{rdb: rdb, prefix: prefix}
}

func (c *RedisCounters) key(k string) string { return c.prefix + ":" + k }

// Incr bumps the counter and arms the window TTL only on the first hit,
// so the window is fixed from the first failure rather than sliding.
func (c *RedisCounters) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	full := c.key(key)
	count, err := c.rdb.Incr(ctx, full).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, full, window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return count, nil
}

func (c *RedisCounters) Get(ctx context.Context, key string) (int64, error) {
	count, err := c.rdb.Get(ctx, c.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}

func (c *RedisCounters) Del(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
