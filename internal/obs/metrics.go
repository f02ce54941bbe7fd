// Package obs exposes the API server's Prometheus metrics: request volume,
// run outcomes, order/trade throughput, and sandbox health, served at
// /metrics in Prometheus text exposition format.
package obs

import "github.com/prometheus/client_golang/prometheus"

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtestkit_runs_total",
			Help: "Completed /run requests by outcome (ok|invalid_input|strategy_load_failure|data_fetch_failure|engine_error).",
		},
		[]string{"outcome"},
	)

	RunDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backtestkit_run_duration_seconds",
			Help:    "Wall-clock duration of a single simulation run.",
			Buckets: prometheus.DefBuckets,
		},
	)

	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtestkit_orders_total",
			Help: "Orders placed by a strategy, by side and outcome (executed|rejected|expired).",
		},
		[]string{"side", "outcome"},
	)

	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtestkit_trades_total",
			Help: "Closed trades by result (win|loss|flat).",
		},
		[]string{"result"},
	)

	FinalEquityUSD = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "backtestkit_last_run_final_equity_usd",
			Help: "Total equity (cash + portfolio value) at the end of the most recently completed run.",
		},
	)

	MarketDataCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtestkit_market_data_cache_total",
			Help: "Historical aggregate cache lookups by outcome (hit|miss).",
		},
		[]string{"outcome"},
	)

	MarketDataBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "backtestkit_market_data_breaker_open",
			Help: "1 if the Polygon aggregates circuit breaker is open, 0 otherwise.",
		},
	)

	SandboxTrapsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtestkit_sandbox_traps_total",
			Help: "Guest init/tick calls that trapped and were treated as no-ops.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RunsTotal,
		RunDurationSeconds,
		OrdersTotal,
		TradesTotal,
		FinalEquityUSD,
		MarketDataCacheHits,
		MarketDataBreakerState,
		SandboxTrapsTotal,
	)
}

// IncRun records a finished run's outcome.
func IncRun(outcome string) { RunsTotal.WithLabelValues(outcome).Inc() }

// IncOrder records a placed order's side/outcome.
func IncOrder(side, outcome string) { OrdersTotal.WithLabelValues(side, outcome).Inc() }

// IncTrade records a closed trade's result.
func IncTrade(result string) { TradesTotal.WithLabelValues(result).Inc() }

// SetMarketDataBreakerOpen reports whether the Polygon aggregates circuit
// breaker is currently open, called after every breaker.Execute.
func SetMarketDataBreakerOpen(open bool) {
	if open {
		MarketDataBreakerState.Set(1)
		return
	}
	MarketDataBreakerState.Set(0)
}
