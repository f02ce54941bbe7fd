package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chidi150c/backtestkit/internal/broker"
	"github.com/chidi150c/backtestkit/internal/engine"
	"github.com/chidi150c/backtestkit/internal/strategy/reference"
)

var (
	batchCSVPath     string
	batchSymbol      string
	batchCash        float64
	batchShortGrid   []int
	batchLongGrid    []int
	batchConcurrency int
)

// sweepResult pairs one short/long SMA period combination with the metrics
// its run produced, so a caller can pick the best performer from the grid.
type sweepResult struct {
	ShortPeriod int           `json:"short_period"`
	LongPeriod  int           `json:"long_period"`
	Result      engine.Result `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Sweep SMA crossover periods concurrently over one CSV candle file",
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchCSVPath, "csv", "", "path to OHLCV CSV")
	batchCmd.Flags().StringVar(&batchSymbol, "symbol", "ASSET", "symbol traded by the strategy")
	batchCmd.Flags().Float64Var(&batchCash, "cash", 10000, "starting cash per run")
	batchCmd.Flags().IntSliceVar(&batchShortGrid, "short-periods", []int{5, 10, 20}, "short SMA periods to sweep")
	batchCmd.Flags().IntSliceVar(&batchLongGrid, "long-periods", []int{30, 60, 90}, "long SMA periods to sweep")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "maximum concurrent runs")
	_ = batchCmd.MarkFlagRequired("csv")
}

func runBatch(cmd *cobra.Command, args []string) error {
	candles, err := engine.LoadCSV(batchCSVPath)
	if err != nil {
		return fmt.Errorf("loading csv: %w", err)
	}
	if len(candles) == 0 {
		return fmt.Errorf("csv contains no usable rows")
	}

	type combo struct{ short, long int }
	var combos []combo
	for _, sp := range batchShortGrid {
		for _, lp := range batchLongGrid {
			if sp < lp {
				combos = append(combos, combo{sp, lp})
			}
		}
	}

	results := make([]sweepResult, len(combos))

	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(batchConcurrency)

	var mu sync.Mutex
	for i, c := range combos {
		i, c := i, c
		g.Go(func() error {
			strat := reference.NewSMACrossover(batchSymbol, c.short, c.long, 1)
			eng := engine.New(engine.Config{
				Start:        candles[0].Time,
				End:          candles[len(candles)-1].Time,
				TickInterval: time.Minute,
				InitialCash:  batchCash,
				Fees:         broker.Flat(0),
			}, strat)
			eng.SetData(candles)

			res, err := eng.Run(gctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[i] = sweepResult{ShortPeriod: c.short, LongPeriod: c.long, Error: err.Error()}
				return nil // one failed combo never aborts the rest of the sweep
			}
			results[i] = sweepResult{ShortPeriod: c.short, LongPeriod: c.long, Result: res}
			return nil
		})
	}
	_ = g.Wait()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
