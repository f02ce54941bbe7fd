// Package marketdata adapts a Polygon.io aggregates fetch into the
// candle feed the engine consumes, protected by a circuit breaker and an
// optional Redis cache so a flaky upstream never turns into a run-killing
// stall.
package marketdata

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/sony/gobreaker/v2"

	"github.com/chidi150c/backtestkit/internal/obs"
	"github.com/chidi150c/backtestkit/internal/types"
)

// Provider fetches a historical OHLCV feed for one symbol and date range.
type Provider struct {
	client  *polygon.Client
	breaker *gobreaker.CircuitBreaker[[]types.Candle]
	cache   *Cache // nil disables caching
}

// BreakerConfig tunes the circuit breaker guarding upstream calls.
type BreakerConfig struct {
	MaxFailures uint32
	OpenDelay   time.Duration
}

// NewProvider builds a Provider backed by apiKey. cache may be nil.
func NewProvider(apiKey string, bc BreakerConfig, cache *Cache) *Provider {
	if bc.MaxFailures == 0 {
		bc.MaxFailures = 5
	}
	if bc.OpenDelay == 0 {
		bc.OpenDelay = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "polygon-aggregates",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     bc.OpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 3 && counts.ConsecutiveFailures >= bc.MaxFailures
		},
	}

	return &Provider{
		client:  polygon.New(apiKey),
		breaker: gobreaker.NewCircuitBreaker[[]types.Candle](settings),
		cache:   cache,
	}
}

// DailyAggregates fetches one-day bars for symbol between from and to
// (inclusive, "YYYY-MM-DD"), checking the cache first and populating it on a
// successful fetch.
func (p *Provider) DailyAggregates(ctx context.Context, symbol, from, to string) ([]types.Candle, error) {
	if p.cache != nil {
		if candles, err := p.cache.Get(ctx, symbol, from, to); err == nil {
			return candles, nil
		}
	}

	candles, err := p.breaker.Execute(func() ([]types.Candle, error) {
		return p.fetch(ctx, symbol, from, to)
	})
	obs.SetMarketDataBreakerOpen(p.breaker.State() == gobreaker.StateOpen)
	if err != nil {
		return nil, fmt.Errorf("marketdata: fetching %s [%s, %s]: %w", symbol, from, to, err)
	}

	if p.cache != nil {
		_ = p.cache.Set(ctx, symbol, from, to, candles)
	}
	return candles, nil
}

func (p *Provider) fetch(ctx context.Context, symbol, from, to string) ([]types.Candle, error) {
	fromTime, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, fmt.Errorf("marketdata: invalid from date %q: %w", from, err)
	}
	toTime, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, fmt.Errorf("marketdata: invalid to date %q: %w", to, err)
	}

	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(fromTime),
		To:         models.Millis(toTime),
	}.WithAdjusted(true).WithSort(models.Asc)

	iter := p.client.ListAggs(ctx, params)

	var out []types.Candle
	for iter.Next() {
		agg := iter.Item()
		out = append(out, types.Candle{
			Time:   time.Time(agg.Timestamp).UTC(),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("marketdata: polygon aggregates: %w", err)
	}
	return out, nil
}
