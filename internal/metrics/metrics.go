// Package metrics derives the post-hoc performance statistics (Sharpe
// ratio, drawdown, profit factor, buy-and-hold benchmark, ...) from a
// closed trade ledger and an equity curve.
package metrics

import (
	"math"
	"time"

	"github.com/chidi150c/backtestkit/internal/broker"
	"github.com/chidi150c/backtestkit/internal/tracker"
)

// GlobalMetrics is the full set of aggregate statistics returned alongside
// the trade ledger in a BacktestResult.
type GlobalMetrics struct {
	Cash                  float64 `json:"cash"`
	PortfolioValue        float64 `json:"portfolio_value"`
	TotalEquity           float64 `json:"total_equity"`
	GrossProfit           float64 `json:"gross_profit"`
	TotalFees             float64 `json:"total_fees"`
	TotalSlippage         float64 `json:"total_slippage"`
	NetProfit             float64 `json:"net_profit"`
	NetProfitPct          float64 `json:"net_profit_pct"`
	OrdersPlaced          int     `json:"orders_placed"`
	OrdersExecuted        int     `json:"orders_executed"`
	ROI                   float64 `json:"roi"`
	SharpeRatio           float64 `json:"sharpe_ratio"`
	MaxDrawdown           float64 `json:"max_drawdown"`
	DrawdownDurationDays  int64   `json:"drawdown_duration_days"`
	WinRate               float64 `json:"win_rate"`
	ProfitFactor          float64 `json:"profit_factor"`
	AvgWin                float64 `json:"avg_win"`
	AvgLoss               float64 `json:"avg_loss"`
	LargestWin            float64 `json:"largest_win"`
	LargestLoss           float64 `json:"largest_loss"`
	TotalTrades           int     `json:"total_trades"`
	WinningTrades         int     `json:"winning_trades"`
	LosingTrades          int     `json:"losing_trades"`
	AvgTradeDurationHours float64 `json:"avg_trade_duration_hours"`
	BuyHoldROI            float64 `json:"buy_hold_roi"`
	BuyHoldFinalValue     float64 `json:"buy_hold_final_value"`
	BuyHoldNetProfit      float64 `json:"buy_hold_net_profit"`
}

// Inputs bundles everything GlobalMetrics.Compute needs from the rest of
// the engine.
type Inputs struct {
	Trades           []tracker.Trade
	EquityCurve      []tracker.EquityPoint
	InitialCapital   float64
	RiskFreeRate     float64
	FinalCash        float64
	FinalPortfolio   float64
	OrdersPlaced     int
	OrdersExecuted   int
	TotalFees        float64
	TotalSlippage    float64
	FirstPrice       float64 // 0 means "unknown"
	LastPrice        float64
	Fees             broker.FeeSchedule
}

// truncate2 truncates (never rounds) to 2 decimal places, the display
// precision used for the cash, equity, profit, fee, slippage and
// buy-and-hold outputs. AvgWin, AvgLoss, LargestWin and LargestLoss are
// emitted untruncated.
func truncate2(v float64) float64 {
	return math.Trunc(v*100) / 100
}

// Compute derives GlobalMetrics. A run with no closed trades returns zeroed
// metrics rather than dividing by zero.
func Compute(in Inputs) GlobalMetrics {
	if len(in.Trades) == 0 {
		return GlobalMetrics{}
	}

	var winning, losing []tracker.Trade
	var totalProfit, totalLoss float64
	for _, t := range in.Trades {
		if t.ProfitLoss > 0 {
			winning = append(winning, t)
			totalProfit += t.ProfitLoss
		} else if t.ProfitLoss < 0 {
			losing = append(losing, t)
			totalLoss += -t.ProfitLoss
		}
	}

	totalTrades := len(in.Trades)
	winRate := float64(len(winning)) / float64(totalTrades) * 100

	var profitFactor float64
	switch {
	case totalLoss > 0:
		profitFactor = totalProfit / totalLoss
	case totalProfit > 0:
		profitFactor = math.Inf(1)
	default:
		profitFactor = 0
	}

	var avgWin float64
	if len(winning) > 0 {
		avgWin = totalProfit / float64(len(winning))
	}
	var avgLoss float64
	if len(losing) > 0 {
		avgLoss = -totalLoss / float64(len(losing))
	}

	largestWin := 0.0
	for _, t := range winning {
		if t.ProfitLoss > largestWin {
			largestWin = t.ProfitLoss
		}
	}
	largestLoss := 0.0
	for _, t := range losing {
		if t.ProfitLoss < largestLoss {
			largestLoss = t.ProfitLoss
		}
	}

	finalValue := in.InitialCapital
	if len(in.EquityCurve) > 0 {
		finalValue = in.EquityCurve[len(in.EquityCurve)-1].Value
	}
	roi := 0.0
	if in.InitialCapital != 0 {
		roi = (finalValue - in.InitialCapital) / in.InitialCapital * 100
	}

	sharpe := sharpeRatio(in.EquityCurve, in.RiskFreeRate)
	maxDD, maxDDDays := maxDrawdown(in.EquityCurve)

	var totalDurationHours float64
	for _, t := range in.Trades {
		totalDurationHours += t.ExitTime.Sub(t.EntryTime).Hours()
	}
	avgTradeDuration := totalDurationHours / float64(totalTrades)

	totalEquity := in.FinalCash + in.FinalPortfolio
	grossProfit := totalEquity - in.InitialCapital
	netProfit := grossProfit - in.TotalFees - in.TotalSlippage
	netProfitPct := 0.0
	if in.InitialCapital > 0 {
		netProfitPct = netProfit / in.InitialCapital * 100
	}

	bhROI, bhFinal, bhNet := buyAndHold(in.InitialCapital, in.FirstPrice, in.LastPrice, in.Fees)

	return GlobalMetrics{
		Cash:                  truncate2(in.FinalCash),
		PortfolioValue:        truncate2(in.FinalPortfolio),
		TotalEquity:           truncate2(totalEquity),
		GrossProfit:           truncate2(grossProfit),
		TotalFees:             truncate2(in.TotalFees),
		TotalSlippage:         truncate2(in.TotalSlippage),
		NetProfit:             truncate2(netProfit),
		NetProfitPct:          truncate2(netProfitPct),
		OrdersPlaced:          in.OrdersPlaced,
		OrdersExecuted:        in.OrdersExecuted,
		ROI:                   roi,
		SharpeRatio:           sharpe,
		MaxDrawdown:           maxDD,
		DrawdownDurationDays:  maxDDDays,
		WinRate:               winRate,
		ProfitFactor:          profitFactor,
		AvgWin:                avgWin,
		AvgLoss:               avgLoss,
		LargestWin:            largestWin,
		LargestLoss:           largestLoss,
		TotalTrades:           totalTrades,
		WinningTrades:         len(winning),
		LosingTrades:          len(losing),
		AvgTradeDurationHours: avgTradeDuration,
		BuyHoldROI:            truncate2(bhROI),
		BuyHoldFinalValue:     truncate2(bhFinal),
		BuyHoldNetProfit:      truncate2(bhNet),
	}
}

// sharpeRatio annualises mean(r - rf/252)/stddev(r) * sqrt(252), where r is
// the per-step return of the equity curve.
func sharpeRatio(curve []tracker.EquityPoint, riskFreeRate float64) float64 {
	if len(curve) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev, cur := curve[i-1].Value, curve[i].Value
		if prev == 0 {
			continue
		}
		returns = append(returns, (cur-prev)/prev)
	}
	if len(returns) == 0 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}

	dailyRiskFree := riskFreeRate / 252
	return (mean - dailyRiskFree) / stddev * math.Sqrt(252)
}

// maxDrawdown returns the worst peak-to-trough percentage decline (<=0) and
// the longest span, in days, from a peak to the drawdown sample it preceded.
func maxDrawdown(curve []tracker.EquityPoint) (float64, int64) {
	if len(curve) == 0 {
		return 0, 0
	}

	maxValue := curve[0].Value
	peakTime := curve[0].Time
	maxDD := 0.0
	var longest time.Duration

	for _, p := range curve {
		if p.Value > maxValue {
			maxValue = p.Value
			peakTime = p.Time
			continue
		}
		if maxValue == 0 {
			continue
		}
		dd := (p.Value - maxValue) / maxValue * 100
		if dd < maxDD {
			maxDD = dd
		}
		if dd < 0 {
			if d := p.Time.Sub(peakTime); d > longest {
				longest = d
			}
		}
	}

	return maxDD, int64(longest.Hours() / 24)
}

// buyAndHold simulates buying at firstPrice and selling at lastPrice,
// subject to the same fee schedule. Any non-positive input yields all-zero
// outputs.
func buyAndHold(initialCapital, firstPrice, lastPrice float64, fees broker.FeeSchedule) (roi, finalValue, netProfit float64) {
	if firstPrice <= 0 || lastPrice <= 0 || initialCapital <= 0 {
		return 0, 0, 0
	}

	buyFee := fees.Fee(initialCapital)
	capitalAfterBuyFee := initialCapital - buyFee
	if capitalAfterBuyFee <= 0 {
		return 0, 0, 0
	}

	shares := capitalAfterBuyFee / firstPrice
	valueBeforeSell := shares * lastPrice
	sellFee := fees.Fee(valueBeforeSell)

	finalValue = valueBeforeSell - sellFee
	netProfit = finalValue - initialCapital
	roi = netProfit / initialCapital * 100
	return roi, finalValue, netProfit
}
