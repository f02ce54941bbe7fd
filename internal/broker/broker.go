// Package broker implements the simulated broker: a cash account, a
// per-symbol position map and a pending-order book, executed against each
// tick's OHLCV sample under fee, slippage and expiry rules.
package broker

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/chidi150c/backtestkit/internal/obs"
	"github.com/chidi150c/backtestkit/internal/types"
)

// Errors returned by order execution.
var (
	ErrInsufficientCash     = errors.New("broker: insufficient cash")
	ErrNoPosition           = errors.New("broker: no open position for symbol")
	ErrInsufficientQuantity = errors.New("broker: insufficient position quantity")
)

// ExecutionSink receives fill events as they happen. The TradeTracker is
// the production implementation; the broker itself stays ignorant of trade
// reconstruction.
type ExecutionSink interface {
	RecordBuy(symbol string, t time.Time, price, size, fees, slippage float64)
	RecordSell(symbol string, t time.Time, price, size, fees, slippage float64)
}

// Counters tallies the cumulative broker-level statistics a run reports.
type Counters struct {
	Placed       int
	Executed     int
	TotalFees    float64
	TotalSlippage float64
	AddedFunds   float64
}

// Broker holds cash, open positions and the pending-order book for a single
// simulated run. It is owned exclusively by one Engine for the run's
// duration.
type Broker struct {
	Cash      float64
	Fees      FeeSchedule
	portfolio map[string]*types.Position
	orders    []types.Order
	pool      *slippagePool
	sink      ExecutionSink
	Counters  Counters
}

// New returns a broker with zero cash and no fee schedule configured; call
// SetCash/SetFees/SetSlippage before placing orders.
func New() *Broker {
	return &Broker{
		portfolio: make(map[string]*types.Position),
		pool:      newSlippagePool(0, 0, 1),
	}
}

// SetSink wires the tracker (or any ExecutionSink) that fills are reported
// to. Must be called before the first execution to observe all fills.
func (b *Broker) SetSink(sink ExecutionSink) { b.sink = sink }

// SetCash assigns the starting cash and records it against added_funds.
func (b *Broker) SetCash(amount float64) {
	b.Counters.AddedFunds += amount
	b.Cash = amount
}

// SetFees installs the fee schedule applied to every subsequent execution.
func (b *Broker) SetFees(schedule FeeSchedule) { b.Fees = schedule }

// SetSlippage configures the deterministic slippage draw pool. seed fixes
// the pre-generated sequence so replays with the same seed are
// byte-identical.
func (b *Broker) SetSlippage(min, max float64, seed int64) {
	b.pool = newSlippagePool(min, max, seed)
}

// Portfolio exposes the read-only quantity held of a symbol, 0 if absent.
// Used by the sandbox's get_position host function.
func (b *Broker) Portfolio(symbol string) float64 {
	if p, ok := b.portfolio[symbol]; ok {
		return p.Quantity
	}
	return 0
}

// PlaceOrder appends an order to the book. No validation beyond size>0 is
// performed here — rejection happens at execution time. An order with a
// non-positive size is dropped without being counted as placed.
func (b *Broker) PlaceOrder(o types.Order) {
	if o.Size <= 0 {
		log.Printf("broker: order with non-positive size %v dropped", o.Size)
		return
	}
	b.Counters.Placed++
	b.orders = append(b.orders, o)
}

// HandlePending walks the order book in insertion order and attempts to
// execute or expire each order against the tick's open price. Orders that
// fail to execute are left in the book untouched (their rejection never
// mutates state) and re-evaluated on the next tick.
func (b *Broker) HandlePending(currentTime time.Time, current types.Candle) {
	kept := b.orders[:0]
	for _, o := range b.orders {
		if o.Expired(currentTime) {
			obs.IncOrder(o.Side.String(), "expired")
			continue // dropped without executing
		}
		if !o.Triggered(current.Open) {
			kept = append(kept, o)
			continue
		}
		if err := b.execute(o, currentTime, current.Open); err != nil {
			log.Printf("broker: order execution failed, left in book: %v", err)
			obs.IncOrder(o.Side.String(), "rejected")
			kept = append(kept, o)
			continue
		}
		b.Counters.Executed++
		obs.IncOrder(o.Side.String(), "executed")
	}
	b.orders = kept
}

// execute fills order o at market price, applying the configured slippage
// and fee schedule, mutating cash/positions only on success.
func (b *Broker) execute(o types.Order, t time.Time, marketPrice float64) error {
	s := b.pool.draw()
	execPrice := marketPrice * (1 + s)
	slippageDiff := execPrice - marketPrice

	switch o.Side {
	case types.Buy:
		totalCost := o.Size * execPrice
		fees := b.Fees.Fee(totalCost)
		totalSpent := totalCost + fees
		if b.Cash < totalSpent {
			return fmt.Errorf("%w: need %.2f have %.2f", ErrInsufficientCash, totalSpent, b.Cash)
		}
		b.Cash -= totalSpent
		b.Counters.TotalFees += fees
		b.Counters.TotalSlippage += slippageDiff * o.Size

		pos, ok := b.portfolio[o.Symbol]
		if !ok {
			pos = &types.Position{}
			b.portfolio[o.Symbol] = pos
		}
		pos.Update(o.Size, execPrice)

		if b.sink != nil {
			b.sink.RecordBuy(o.Symbol, t, execPrice, o.Size, fees, slippageDiff)
		}
		return nil

	case types.Sell:
		pos, ok := b.portfolio[o.Symbol]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoPosition, o.Symbol)
		}
		if pos.Quantity < o.Size {
			return fmt.Errorf("%w: have %.8f want %.8f", ErrInsufficientQuantity, pos.Quantity, o.Size)
		}
		proceeds := o.Size * execPrice
		fees := b.Fees.Fee(proceeds)

		if err := pos.Remove(o.Size); err != nil {
			return err
		}
		b.Cash += proceeds - fees
		b.Counters.TotalFees += fees
		b.Counters.TotalSlippage += slippageDiff * o.Size
		if pos.Quantity == 0 {
			delete(b.portfolio, o.Symbol)
		}

		if b.sink != nil {
			b.sink.RecordSell(o.Symbol, t, execPrice, o.Size, fees, slippageDiff)
		}
		return nil

	default:
		return fmt.Errorf("broker: unknown order side %v", o.Side)
	}
}

// PortfolioValue marks every open position to the tick's close price —
// valuation happens after all fills for the tick were processed at open.
func (b *Broker) PortfolioValue(current types.Candle) float64 {
	total := 0.0
	for _, pos := range b.portfolio {
		total += pos.Quantity * current.Close
	}
	return total
}

// PendingOrders returns a snapshot of the order book, for diagnostics/tests.
func (b *Broker) PendingOrders() []types.Order {
	out := make([]types.Order, len(b.orders))
	copy(out, b.orders)
	return out
}
