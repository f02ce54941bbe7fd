// Package reference provides small pure-Go Strategy implementations
// (engine.Strategy) used by tests and local demos — unlike the wasm
// sandbox, these are trusted code linked directly into the binary, with
// full access to a *broker.Broker for the duration of a run.
package reference

import (
	"math"

	"github.com/chidi150c/backtestkit/internal/types"
)

// sma returns the n-period simple moving average of Close over the last n
// candles in history, or 0 if history is shorter than n.
func sma(history []types.Candle, n int) float64 {
	if n <= 0 || len(history) < n {
		return 0
	}
	var sum float64
	for _, c := range history[len(history)-n:] {
		sum += c.Close
	}
	return sum / float64(n)
}

// rsi computes the n-period Relative Strength Index over Close using
// Wilder's smoothing, evaluated over the full history. Returns 0 until at
// least n+1 candles are available.
func rsi(history []types.Candle, n int) float64 {
	if n <= 0 || len(history) <= n {
		return 0
	}

	var gain, loss float64
	for i := 1; i <= n; i++ {
		d := history[i].Close - history[i-1].Close
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(n)
	avgLoss := loss / float64(n)

	for i := n + 1; i < len(history); i++ {
		d := history[i].Close - history[i-1].Close
		up, down := 0.0, 0.0
		if d > 0 {
			up = d
		} else {
			down = -d
		}
		avgGain = (avgGain*float64(n-1) + up) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + down) / float64(n)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// zscore returns the rolling z-score of the latest Close against the mean
// and standard deviation of the trailing n candles.
func zscore(history []types.Candle, n int) float64 {
	if n <= 1 || len(history) < n {
		return 0
	}
	window := history[len(history)-n:]
	var sum, sumSq float64
	for _, c := range window {
		sum += c.Close
		sumSq += c.Close * c.Close
	}
	mean := sum / float64(n)
	variance := math.Max(sumSq/float64(n)-mean*mean, 1e-12)
	std := math.Sqrt(variance)
	return (window[len(window)-1].Close - mean) / std
}
