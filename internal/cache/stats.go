package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	KeyTotalStudents = "stats:total_students"
	KeyActiveEvents  = "stats:active_events"
	KeyTotalRevenue  = "stats:total_revenue_cents"
	KeyPaidRevenue   = "stats:paid_revenue_cents"
	KeyInvoiceCount  = "stats:invoice_count"
	defaultStatsTTL  = 30 * time.Second
	defaultKeyPrefix = "invoicing:"
)

// RevenueKeys are invalidated whenever a registration is written or paid.
var RevenueKeys = []string{KeyTotalRevenue, KeyPaidRevenue, KeyInvoiceCount}

// StatsCache keeps dashboard counters in Redis. A nil *StatsCache is a
// valid cache that always misses.
type StatsCache struct {
	Client *redis.Client
	TTL    time.Duration
	Prefix string
}

func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = defaultStatsTTL
	}
	return &StatsCache{
		Client: client,
		TTL:    ttl,
		Prefix: defaultKeyPrefix,
	}
}

// Get returns the cached value and whether it was present.
func (c *StatsCache) Get(ctx context.Context, key string) (int64, bool, error) {
	if c == nil {
		return 0, false, nil
	}
	val, err := c.Client.Get(ctx, c.Prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// a corrupt value is treated as a miss and overwritten on the next Set
		return 0, false, nil
	}
	return n, true, nil
}

func (c *StatsCache) Set(ctx context.Context, key string, value int64) error {
	if c == nil {
		return nil
	}
	if err := c.Client.Set(ctx, c.Prefix+key, value, c.TTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *StatsCache) Invalidate(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.Prefix + k
	}
	if err := c.Client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// GetOrLoad returns the cached value, or calls load and caches its result.
// Cache errors never fail the call; load errors do.
func (c *StatsCache) GetOrLoad(ctx context.Context, key string, load func(context.Context) (int64, error)) (int64, error) {
	if v, ok, err := c.Get(ctx, key); err == nil && ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return 0, err
	}
	_ = c.Set(ctx, key, v)
	return v, nil
}

func (c *StatsCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.Client.Ping(ctx).Err()
}
