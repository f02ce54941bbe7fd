package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chidi150c/backtestkit/internal/obs"
	"github.com/chidi150c/backtestkit/internal/types"
)

// Cache is a Redis-backed cache of daily aggregate fetches, keyed by
// symbol and date range — backtests replay the same historical window
// repeatedly, so this turns most requests into a single round trip.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache dials addr and verifies connectivity.
func NewCache(addr string, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("marketdata: connecting to redis: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

func cacheKey(symbol, from, to string) string {
	return fmt.Sprintf("aggs:%s:%s:%s", symbol, from, to)
}

// Get returns a cached candle feed, or an error (including redis.Nil) on a
// miss.
func (c *Cache) Get(ctx context.Context, symbol, from, to string) ([]types.Candle, error) {
	data, err := c.client.Get(ctx, cacheKey(symbol, from, to)).Bytes()
	if err != nil {
		obs.MarketDataCacheHits.WithLabelValues("miss").Inc()
		return nil, err
	}

	var candles []types.Candle
	if err := json.Unmarshal(data, &candles); err != nil {
		return nil, fmt.Errorf("marketdata: unmarshalling cached candles: %w", err)
	}
	obs.MarketDataCacheHits.WithLabelValues("hit").Inc()
	return candles, nil
}

// Set caches a candle feed for ttl.
func (c *Cache) Set(ctx context.Context, symbol, from, to string, candles []types.Candle) error {
	data, err := json.Marshal(candles)
	if err != nil {
		return fmt.Errorf("marketdata: marshalling candles: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(symbol, from, to), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("marketdata: writing cache: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
