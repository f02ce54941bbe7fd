package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/chidi150c/backtestkit/internal/broker"
	"github.com/chidi150c/backtestkit/internal/config"
	"github.com/chidi150c/backtestkit/internal/engine"
	"github.com/chidi150c/backtestkit/internal/obs"
	"github.com/chidi150c/backtestkit/internal/sandbox"
)

// runRequest is the wire shape of a POST /run body.
type runRequest struct {
	Parameters simulationParameters `json:"parameters"`
	Data       string               `json:"data"` // ticker symbol
	Broker     brokerSettings       `json:"broker"`
	Strategy   strategyConfig       `json:"strategy"`
}

type simulationParameters struct {
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Tick      *string `json:"tick,omitempty"`
}

type brokerSettings struct {
	Cash     float64                 `json:"cash"`
	Fees     *config.FeeRequest      `json:"fees,omitempty"`
	Slippage *config.SlippageRequest `json:"slippage,omitempty"`
}

type strategyConfig struct {
	WasmBase64 string `json:"wasm_base64"`
}

// runResponse mirrors BacktestResult: the trade ledger and equity curve are
// additive beyond the original contract, not a breaking change to it.
type runResponse struct {
	RunID             string  `json:"run_id"`
	Cash              float64 `json:"cash"`
	PortfolioValue    float64 `json:"portfolio_value"`
	Profit            float64 `json:"profit"`
	ProfitPercentage  float64 `json:"profit_percentage"`
	NumOrdersPlaced   int     `json:"num_orders_placed"`
	NumOrdersExecuted int     `json:"num_orders_executed"`
	TotalFees         float64 `json:"total_fees"`
	TotalSlippage     float64 `json:"total_slippage"`

	Metrics     any `json:"metrics"`
	Trades      any `json:"trades"`
	EquityCurve any `json:"equity_curve"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		obs.IncRun("invalid_input")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	startDate, err := config.ParseDate(req.Parameters.StartDate)
	if err != nil {
		obs.IncRun("invalid_input")
		writeError(w, http.StatusBadRequest, "invalid date format")
		return
	}
	endDate, err := config.ParseDate(req.Parameters.EndDate)
	if err != nil {
		obs.IncRun("invalid_input")
		writeError(w, http.StatusBadRequest, "invalid date format")
		return
	}

	tickInterval := time.Minute
	if req.Parameters.Tick != nil {
		tickInterval, err = config.ParseTick(*req.Parameters.Tick)
		if err != nil {
			obs.IncRun("invalid_input")
			writeError(w, http.StatusBadRequest, "cannot parse tick duration")
			return
		}
	}

	wasmBytes, err := base64.StdEncoding.DecodeString(req.Strategy.WasmBase64)
	if err != nil {
		obs.IncRun("invalid_input")
		writeError(w, http.StatusBadRequest, "invalid base64 encoded wasm")
		return
	}

	ctx := r.Context()
	strategy, err := sandbox.Load(ctx, wasmBytes)
	if err != nil {
		obs.IncRun("strategy_load_failure")
		writeError(w, http.StatusBadRequest, "failed to load wasm strategy")
		return
	}
	defer strategy.Close(ctx)

	fees := broker.FeeSchedule{}
	if req.Broker.Fees != nil {
		fees, err = req.Broker.Fees.ToSchedule()
		if err != nil {
			obs.IncRun("invalid_input")
			writeError(w, http.StatusBadRequest, "invalid fee schedule")
			return
		}
	}

	var slipMin, slipMax float64
	if req.Broker.Slippage != nil {
		slipMin, slipMax = req.Broker.Slippage.Min, req.Broker.Slippage.Max
	}

	if s.provider == nil {
		obs.IncRun("data_fetch_failure")
		writeError(w, http.StatusInternalServerError, "failed to fetch OHLCV data")
		return
	}

	from, to := req.Parameters.StartDate[:10], req.Parameters.EndDate[:10]
	candles, err := s.provider.DailyAggregates(ctx, req.Data, from, to)
	if err != nil {
		obs.IncRun("data_fetch_failure")
		writeError(w, http.StatusInternalServerError, "failed to fetch OHLCV data")
		return
	}

	eng := engine.New(engine.Config{
		Start:        startDate,
		End:          endDate,
		TickInterval: tickInterval,
		InitialCash:  req.Broker.Cash,
		Fees:         fees,
		SlippageMin:  slipMin,
		SlippageMax:  slipMax,
		SlippageSeed: time.Now().UnixNano(),
		Symbol:       req.Data,
	}, strategy)
	eng.SetData(candles)

	result, err := eng.Run(ctx)
	if err != nil {
		obs.IncRun("engine_error")
		writeError(w, http.StatusInternalServerError, "backtest run failed")
		return
	}

	obs.IncRun("ok")
	obs.RunDurationSeconds.Observe(time.Since(start).Seconds())
	obs.FinalEquityUSD.Set(result.Metrics.TotalEquity)

	writeJSON(w, http.StatusOK, runResponse{
		RunID:             uuid.NewString(),
		Cash:              result.Metrics.Cash,
		PortfolioValue:    result.Metrics.PortfolioValue,
		Profit:            result.Metrics.NetProfit,
		ProfitPercentage:  result.Metrics.NetProfitPct,
		NumOrdersPlaced:   result.Metrics.OrdersPlaced,
		NumOrdersExecuted: result.Metrics.OrdersExecuted,
		TotalFees:         result.Metrics.TotalFees,
		TotalSlippage:     result.Metrics.TotalSlippage,
		Metrics:           result.Metrics,
		Trades:            result.Trades,
		EquityCurve:       result.EquityCurve,
	})
}
