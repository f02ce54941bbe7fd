package reference

import (
	"context"
	"log"
	"time"

	"github.com/chidi150c/backtestkit/internal/broker"
	"github.com/chidi150c/backtestkit/internal/types"
)

// SMACrossover goes long when the short SMA crosses above the long SMA and
// flattens when it crosses back below, trading the fixed order size Size.
// It satisfies engine.Strategy.
type SMACrossover struct {
	Symbol       string
	ShortPeriod  int
	LongPeriod   int
	Size         float64
	history      []types.Candle
	positionOpen bool
}

// NewSMACrossover builds a strategy trading symbol at a fixed order size.
func NewSMACrossover(symbol string, shortPeriod, longPeriod int, size float64) *SMACrossover {
	return &SMACrossover{
		Symbol:      symbol,
		ShortPeriod: shortPeriod,
		LongPeriod:  longPeriod,
		Size:        size,
	}
}

// Init resets the strategy's position-tracking state.
func (s *SMACrossover) Init(_ context.Context) {
	s.positionOpen = false
	s.history = nil
	log.Printf("reference: sma crossover strategy initialized (short=%d long=%d)", s.ShortPeriod, s.LongPeriod)
}

// Tick appends the current candle to history and evaluates the crossover.
func (s *SMACrossover) Tick(_ context.Context, _ time.Time, current types.Candle, brkr *broker.Broker) {
	s.history = append(s.history, current)

	shortSMA := sma(s.history, s.ShortPeriod)
	longSMA := sma(s.history, s.LongPeriod)
	if shortSMA == 0 || longSMA == 0 {
		return
	}

	if !s.positionOpen && shortSMA > longSMA {
		brkr.PlaceOrder(types.NewMarketOrder(s.Symbol, types.Buy, s.Size))
		s.positionOpen = true
		return
	}
	if s.positionOpen && shortSMA < longSMA {
		brkr.PlaceOrder(types.NewMarketOrder(s.Symbol, types.Sell, s.Size))
		s.positionOpen = false
	}
}
