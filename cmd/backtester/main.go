// Command backtester runs the event-driven backtesting engine: locally
// against a CSV candle file, as an HTTP API server, or as a batch of
// concurrent parameter sweeps.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "backtester",
	Short: "Event-driven backtesting engine for wasm-sandboxed trading strategies",
}

func main() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(batchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
