package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RateCache stores end-of-day rates for the rest of their UTC day.
type RateCache interface {
	Get(ctx context.Context, day, from, to string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, day, from, to string, rate decimal.Decimal, ttl time.Duration) error
}

// RedisRateCache implements RateCache on Redis string keys.
type RedisRateCache struct {
	rdb redis.UniversalClient
}

func NewRedisRateCache(rdb redis.UniversalClient) *RedisRateCache {
	return &RedisRateCache{rdb: rdb}
}

func rateKey(day, from, to string) string {
	return fmt.Sprintf("fx:eod:%s:%s:%s", day, from, to)
}

// Get returns ok=false on a cache miss.
func (c *RedisRateCache) Get(ctx context.Context, day, from, to string) (decimal.Decimal, bool, error) {
	val, err := c.rdb.Get(ctx, rateKey(day, from, to)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("redis get rate: %w", err)
	}
	rate, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("cached rate %q is not a number: %w", val, err)
	}
	return rate, true, nil
}

func (c *RedisRateCache) Set(ctx context.Context, day, from, to string, rate decimal.Decimal, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, rateKey(day, from, to), rate.String(), ttl).Err(); err != nil {
		return fmt.Errorf("redis set rate: %w", err)
	}
	return nil
}

// untilEndOfDay is the time left in t's UTC day.
func untilEndOfDay(t time.Time) time.Duration {
	t = t.UTC()
	end := time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
	return end.Sub(t)
}
