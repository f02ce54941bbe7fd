package reference

import (
	"context"
	"log"
	"time"

	"github.com/chidi150c/backtestkit/internal/broker"
	"github.com/chidi150c/backtestkit/internal/types"
)

// MeanReversion buys when price is oversold (RSI below Oversold and the
// z-score deeply negative) and sells once RSI recovers past Overbought,
// trading the fixed order size Size. It satisfies engine.Strategy.
type MeanReversion struct {
	Symbol       string
	RSIPeriod    int
	ZScorePeriod int
	Oversold     float64
	Overbought   float64
	Size         float64
	history      []types.Candle
	positionOpen bool
}

// NewMeanReversion builds a strategy with the given RSI/z-score windows and
// thresholds.
func NewMeanReversion(symbol string, rsiPeriod, zscorePeriod int, oversold, overbought, size float64) *MeanReversion {
	return &MeanReversion{
		Symbol:       symbol,
		RSIPeriod:    rsiPeriod,
		ZScorePeriod: zscorePeriod,
		Oversold:     oversold,
		Overbought:   overbought,
		Size:         size,
	}
}

// Init resets the strategy's position-tracking state.
func (s *MeanReversion) Init(_ context.Context) {
	s.positionOpen = false
	s.history = nil
	log.Printf("reference: mean reversion strategy initialized (rsi=%d zscore=%d)", s.RSIPeriod, s.ZScorePeriod)
}

// Tick appends the current candle to history and evaluates entry/exit.
func (s *MeanReversion) Tick(_ context.Context, _ time.Time, current types.Candle, brkr *broker.Broker) {
	s.history = append(s.history, current)

	r := rsi(s.history, s.RSIPeriod)
	z := zscore(s.history, s.ZScorePeriod)
	if r == 0 {
		return
	}

	if !s.positionOpen && r < s.Oversold && z < -1 {
		brkr.PlaceOrder(types.NewMarketOrder(s.Symbol, types.Buy, s.Size))
		s.positionOpen = true
		return
	}
	if s.positionOpen && r > s.Overbought {
		brkr.PlaceOrder(types.NewMarketOrder(s.Symbol, types.Sell, s.Size))
		s.positionOpen = false
	}
}
