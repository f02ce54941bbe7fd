package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chidi150c/backtestkit/internal/broker"
	"github.com/chidi150c/backtestkit/internal/engine"
	"github.com/chidi150c/backtestkit/internal/sandbox"
	"github.com/chidi150c/backtestkit/internal/strategy/reference"
)

var (
	runCSVPath      string
	runWasmPath     string
	runSymbol       string
	runCash         float64
	runFeeKind      string
	runFeeAmount    float64
	runSlippageMin  float64
	runSlippageMax  float64
	runSlippageSeed int64
	runTick         time.Duration
	runRiskFree     float64
	runShortPeriod  int
	runLongPeriod   int
	runOrderSize    float64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single backtest against a CSV candle file",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runCSVPath, "csv", "", "path to OHLCV CSV (time,open,high,low,close,volume)")
	runCmd.Flags().StringVar(&runWasmPath, "wasm", "", "path to a compiled wasm strategy module; omit to use the built-in SMA crossover")
	runCmd.Flags().StringVar(&runSymbol, "symbol", "ASSET", "symbol traded by the strategy")
	runCmd.Flags().Float64Var(&runCash, "cash", 10000, "starting cash")
	runCmd.Flags().StringVar(&runFeeKind, "fee-kind", "flat", "fee schedule kind: flat or percentage")
	runCmd.Flags().Float64Var(&runFeeAmount, "fee-amount", 0, "flat fee amount, or percentage fraction in [0,1]")
	runCmd.Flags().Float64Var(&runSlippageMin, "slippage-min", 0, "minimum slippage fraction")
	runCmd.Flags().Float64Var(&runSlippageMax, "slippage-max", 0, "maximum slippage fraction")
	runCmd.Flags().Int64Var(&runSlippageSeed, "slippage-seed", 1, "seed for the deterministic slippage draw pool")
	runCmd.Flags().DurationVar(&runTick, "tick", time.Minute, "simulation tick interval")
	runCmd.Flags().Float64Var(&runRiskFree, "risk-free-rate", 0, "annualized risk-free rate used by the Sharpe ratio")
	runCmd.Flags().IntVar(&runShortPeriod, "short-period", 10, "reference SMA crossover short period")
	runCmd.Flags().IntVar(&runLongPeriod, "long-period", 30, "reference SMA crossover long period")
	runCmd.Flags().Float64Var(&runOrderSize, "order-size", 1, "reference strategy order size")
	_ = runCmd.MarkFlagRequired("csv")
}

func runRun(cmd *cobra.Command, args []string) error {
	candles, err := engine.LoadCSV(runCSVPath)
	if err != nil {
		return fmt.Errorf("loading csv: %w", err)
	}
	if len(candles) == 0 {
		return fmt.Errorf("csv contains no usable rows")
	}

	var fees broker.FeeSchedule
	switch runFeeKind {
	case "flat":
		fees = broker.Flat(runFeeAmount)
	case "percentage":
		fees = broker.Percentage(runFeeAmount)
	default:
		return fmt.Errorf("unknown fee kind %q", runFeeKind)
	}

	ctx := context.Background()

	var strat engine.Strategy
	if runWasmPath != "" {
		wasmBytes, err := os.ReadFile(runWasmPath)
		if err != nil {
			return fmt.Errorf("reading wasm module: %w", err)
		}
		s, err := sandbox.Load(ctx, wasmBytes)
		if err != nil {
			return fmt.Errorf("loading wasm strategy: %w", err)
		}
		defer s.Close(ctx)
		strat = s
	} else {
		strat = reference.NewSMACrossover(runSymbol, runShortPeriod, runLongPeriod, runOrderSize)
	}

	eng := engine.New(engine.Config{
		Start:        candles[0].Time,
		End:          candles[len(candles)-1].Time,
		TickInterval: runTick,
		InitialCash:  runCash,
		Fees:         fees,
		SlippageMin:  runSlippageMin,
		SlippageMax:  runSlippageMax,
		SlippageSeed: runSlippageSeed,
		RiskFreeRate: runRiskFree,
		Symbol:       runSymbol,
	}, strat)
	eng.SetData(candles)

	result, err := eng.Run(ctx)
	if err != nil {
		return fmt.Errorf("running backtest: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
