// Package engine drives the tick-by-tick simulation loop: it advances a
// data feed, lets the broker settle its pending-order book, records equity,
// and calls the strategy, in that order, once per tick.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/chidi150c/backtestkit/internal/broker"
	"github.com/chidi150c/backtestkit/internal/metrics"
	"github.com/chidi150c/backtestkit/internal/tracker"
	"github.com/chidi150c/backtestkit/internal/types"
)

// ErrEmptyDataFeed is returned by Run when no candles were loaded.
var ErrEmptyDataFeed = errors.New("engine: data feed is empty")

// Strategy is anything that can be driven tick by tick. sandbox.Strategy and
// the built-in reference strategies both satisfy it.
type Strategy interface {
	Init(ctx context.Context)
	Tick(ctx context.Context, t time.Time, current types.Candle, brkr *broker.Broker)
}

// Config parameterizes a single run.
type Config struct {
	Start        time.Time
	End          time.Time
	TickInterval time.Duration // defaults to 1 minute when zero
	InitialCash  float64
	Fees         broker.FeeSchedule
	SlippageMin  float64
	SlippageMax  float64
	SlippageSeed int64
	RiskFreeRate float64
	Symbol       string
}

// Result is everything a caller needs to report on a finished run.
type Result struct {
	Symbol      string                `json:"symbol"`
	Metrics     metrics.GlobalMetrics `json:"metrics"`
	Trades      []tracker.Trade       `json:"trades"`
	EquityCurve []tracker.EquityPoint `json:"equity_curve"`
}

// Engine owns one broker, one tracker and one strategy for the lifetime of
// a single run. It is not reusable across runs — build a fresh Engine each
// time.
type Engine struct {
	cfg      Config
	dataFeed []types.Candle
	strategy Strategy
	brkr     *broker.Broker
	trk      *tracker.Tracker
	onEquity func(tracker.EquityPoint)
}

// OnEquity registers a callback invoked once per tick, right after the
// equity sample is recorded, letting a caller stream progress (e.g. over a
// websocket) without waiting for Run to return.
func (e *Engine) OnEquity(fn func(tracker.EquityPoint)) {
	e.onEquity = fn
}

// New builds an Engine ready to run once data is attached with SetData.
func New(cfg Config, strategy Strategy) *Engine {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Minute
	}

	b := broker.New()
	b.SetCash(cfg.InitialCash)
	b.SetFees(cfg.Fees)
	b.SetSlippage(cfg.SlippageMin, cfg.SlippageMax, cfg.SlippageSeed)

	trk := tracker.New()
	b.SetSink(trk)

	return &Engine{
		cfg:      cfg,
		strategy: strategy,
		brkr:     b,
		trk:      trk,
	}
}

// SetData installs the candle feed the run will walk. The feed must already
// be sorted ascending by timestamp — Run does not sort it.
func (e *Engine) SetData(feed []types.Candle) {
	e.dataFeed = feed
}

// Run executes the simulation loop from cfg.Start to cfg.End, advancing the
// data index to the newest candle at or before the current tick, settling
// pending orders, recording equity, and finally driving the strategy —
// mirroring the ordering a live system would observe: you can only react to
// a bar once it has closed.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	e.strategy.Init(ctx)

	if len(e.dataFeed) == 0 {
		return Result{}, ErrEmptyDataFeed
	}

	currentTime := e.cfg.Start
	dataIndex := 0
	lastTimestamp := e.dataFeed[len(e.dataFeed)-1].Time

	for !currentTime.After(e.cfg.End) {
		for dataIndex+1 < len(e.dataFeed) && !e.dataFeed[dataIndex+1].Time.After(currentTime) {
			dataIndex++
		}

		current := e.dataFeed[dataIndex]
		e.brkr.HandlePending(currentTime, current)
		equity := e.brkr.Cash + e.brkr.PortfolioValue(current)
		e.trk.RecordEquity(currentTime, equity)
		if e.onEquity != nil {
			e.onEquity(tracker.EquityPoint{Time: currentTime, Value: equity})
		}
		e.strategy.Tick(ctx, currentTime, current, e.brkr)

		currentTime = currentTime.Add(e.cfg.TickInterval)
		if currentTime.After(lastTimestamp) {
			break
		}
	}

	last := e.dataFeed[len(e.dataFeed)-1]
	first := e.dataFeed[0]

	m := metrics.Compute(metrics.Inputs{
		Trades:         e.trk.ClosedTrades(),
		EquityCurve:    e.trk.EquityCurve(),
		InitialCapital: e.cfg.InitialCash,
		RiskFreeRate:   e.cfg.RiskFreeRate,
		FinalCash:      e.brkr.Cash,
		FinalPortfolio: e.brkr.PortfolioValue(last),
		OrdersPlaced:   e.brkr.Counters.Placed,
		OrdersExecuted: e.brkr.Counters.Executed,
		TotalFees:      e.brkr.Counters.TotalFees,
		TotalSlippage:  e.brkr.Counters.TotalSlippage,
		FirstPrice:     first.Close,
		LastPrice:      last.Close,
		Fees:           e.cfg.Fees,
	})

	return Result{
		Symbol:      e.cfg.Symbol,
		Metrics:     m,
		Trades:      e.trk.ClosedTrades(),
		EquityCurve: e.trk.EquityCurve(),
	}, nil
}
