// Package tracker reconstructs closed round-trip trades from the broker's
// buy/sell fill stream using FIFO lot matching, and accumulates the equity
// curve the metrics aggregator consumes.
package tracker

import (
	"time"

	"github.com/chidi150c/backtestkit/internal/obs"
)

// openLot is an unsold (or partially sold) buy, queued per symbol in
// insertion order.
type openLot struct {
	id            uint64
	quantity      float64
	entryPrice    float64
	entryFees     float64
	entrySlippage float64
	entryTime     time.Time
}

// EquityPoint is one (timestamp, total_equity) sample of the equity curve.
type EquityPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Tracker implements broker.ExecutionSink: it is a pure consumer of fill
// events, with no knowledge of the broker's internals.
type Tracker struct {
	open        map[string][]*openLot
	closed      []Trade
	nextTradeID uint64
	equity      []EquityPoint
}

// New returns an empty tracker ready to be wired to a broker.
func New() *Tracker {
	return &Tracker{
		open:        make(map[string][]*openLot),
		nextTradeID: 1,
	}
}

// RecordBuy opens a new FIFO lot for symbol.
func (tr *Tracker) RecordBuy(symbol string, t time.Time, price, size, fees, slippage float64) {
	lot := &openLot{
		id:            tr.nextTradeID,
		quantity:      size,
		entryPrice:    price,
		entryFees:     fees,
		entrySlippage: slippage,
		entryTime:     t,
	}
	tr.nextTradeID++
	tr.open[symbol] = append(tr.open[symbol], lot)
}

// RecordSell consumes open lots FIFO until the sold quantity is matched,
// prorating the sell's fees/slippage across however many lots are touched.
// An over-sell (remaining quantity after lots exhaust) is dropped silently —
// the broker's quantity check makes that path unreachable under normal flow.
func (tr *Tracker) RecordSell(symbol string, t time.Time, price, size, fees, slippage float64) {
	lots := tr.open[symbol]
	remaining := size

	i := 0
	for i < len(lots) && remaining > 0 {
		lot := lots[i]
		m := remaining
		if lot.quantity < m {
			m = lot.quantity
		}

		share := m / size
		shareBuy := m / lot.quantity

		trade := Trade{
			ID:            lot.id,
			Symbol:        symbol,
			Direction:     Long,
			EntryTime:     lot.entryTime,
			EntryPrice:    lot.entryPrice,
			Quantity:      m,
			EntryFees:     lot.entryFees * shareBuy,
			EntrySlippage: lot.entrySlippage * shareBuy,
		}
		trade.close(t, price, fees*share, slippage*share)
		tr.closed = append(tr.closed, trade)
		recordTradeOutcome(trade)

		consumedEntryFees := lot.entryFees * shareBuy
		lot.quantity -= m
		lot.entryFees -= consumedEntryFees

		remaining -= m
		if lot.quantity <= 0 {
			i++
		}
	}

	tr.open[symbol] = lots[i:]
	if len(tr.open[symbol]) == 0 {
		delete(tr.open, symbol)
	}
}

// recordTradeOutcome reports a closed trade's win/loss/flat result.
func recordTradeOutcome(t Trade) {
	switch {
	case t.ProfitLoss > 0:
		obs.IncTrade("win")
	case t.ProfitLoss < 0:
		obs.IncTrade("loss")
	default:
		obs.IncTrade("flat")
	}
}

// RecordEquity appends an unconditional equity-curve sample.
func (tr *Tracker) RecordEquity(t time.Time, value float64) {
	tr.equity = append(tr.equity, EquityPoint{Time: t, Value: value})
}

// ClosedTrades returns the trade ledger in closing order.
func (tr *Tracker) ClosedTrades() []Trade {
	out := make([]Trade, len(tr.closed))
	copy(out, tr.closed)
	return out
}

// EquityCurve returns the recorded equity samples in chronological order.
func (tr *Tracker) EquityCurve() []EquityPoint {
	out := make([]EquityPoint, len(tr.equity))
	copy(out, tr.equity)
	return out
}
