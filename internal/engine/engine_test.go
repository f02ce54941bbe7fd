package engine

import (
	"context"
	"testing"
	"time"

	"github.com/chidi150c/backtestkit/internal/broker"
	"github.com/chidi150c/backtestkit/internal/tracker"
	"github.com/chidi150c/backtestkit/internal/types"
)

// buyOnceStrategy places a single market buy on the first tick it sees and
// never trades again, letting tests assert on a deterministic fill.
type buyOnceStrategy struct {
	symbol string
	size   float64
	placed bool
}

func (s *buyOnceStrategy) Init(_ context.Context) {}

func (s *buyOnceStrategy) Tick(_ context.Context, _ time.Time, _ types.Candle, brkr *broker.Broker) {
	if s.placed {
		return
	}
	brkr.PlaceOrder(types.NewMarketOrder(s.symbol, types.Buy, s.size))
	s.placed = true
}

func buildFeed(start time.Time, closes []float64) []types.Candle {
	feed := make([]types.Candle, len(closes))
	for i, c := range closes {
		feed[i] = types.Candle{
			Time: start.Add(time.Duration(i) * time.Minute),
			Open: c, High: c, Low: c, Close: c, Volume: 1,
		}
	}
	return feed
}

func TestRunEmptyDataFeedReturnsError(t *testing.T) {
	eng := New(Config{Start: time.Now(), End: time.Now()}, &buyOnceStrategy{symbol: "AAPL", size: 1})
	_, err := eng.Run(context.Background())
	if err != ErrEmptyDataFeed {
		t.Fatalf("err = %v, want ErrEmptyDataFeed", err)
	}
}

func TestRunExecutesOneBuyAndReportsEquity(t *testing.T) {
	start := time.Now().Truncate(time.Minute)
	feed := buildFeed(start, []float64{10, 10, 12})

	strat := &buyOnceStrategy{symbol: "AAPL", size: 10}
	eng := New(Config{
		Start:        feed[0].Time,
		End:          feed[len(feed)-1].Time,
		TickInterval: time.Minute,
		InitialCash:  1000,
		Fees:         broker.Flat(0),
	}, strat)
	eng.SetData(feed)

	result, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(result.EquityCurve) != len(feed) {
		t.Fatalf("equity curve length = %d, want %d", len(result.EquityCurve), len(feed))
	}
	// The position is still open at the end, so no trade has closed and
	// metrics.Compute returns zeroed metrics.
	if result.Metrics.OrdersPlaced != 0 {
		t.Fatalf("orders placed in zeroed metrics = %d, want 0", result.Metrics.OrdersPlaced)
	}
	if result.Metrics.OrdersExecuted != 0 {
		t.Fatalf("orders executed in zeroed metrics = %d, want 0", result.Metrics.OrdersExecuted)
	}
	if result.Metrics.PortfolioValue != 0 {
		t.Fatalf("portfolio value in zeroed metrics = %v, want 0", result.Metrics.PortfolioValue)
	}
	// Placed on tick 0, bought at tick 1's open (10) for 100 cash, still held
	// at the end: the last equity sample is 900 cash plus 10 units marked to
	// the last close (12) = 1020.
	if got := result.EquityCurve[len(result.EquityCurve)-1].Value; got != 1020 {
		t.Fatalf("final equity = %v, want 1020", got)
	}
}

func TestOnEquityCallbackFiresOncePerTick(t *testing.T) {
	start := time.Now().Truncate(time.Minute)
	feed := buildFeed(start, []float64{10, 11, 12})

	strat := &buyOnceStrategy{symbol: "AAPL", size: 1}
	eng := New(Config{
		Start:        feed[0].Time,
		End:          feed[len(feed)-1].Time,
		TickInterval: time.Minute,
		InitialCash:  1000,
		Fees:         broker.Flat(0),
	}, strat)
	eng.SetData(feed)

	var seen int
	eng.OnEquity(func(tracker.EquityPoint) { seen++ })

	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if seen != len(feed) {
		t.Fatalf("OnEquity fired %d times, want %d", seen, len(feed))
	}
}
