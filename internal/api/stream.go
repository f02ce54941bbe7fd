package api

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/chidi150c/backtestkit/internal/broker"
	"github.com/chidi150c/backtestkit/internal/config"
	"github.com/chidi150c/backtestkit/internal/engine"
	"github.com/chidi150c/backtestkit/internal/obs"
	"github.com/chidi150c/backtestkit/internal/sandbox"
	"github.com/chidi150c/backtestkit/internal/tracker"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = (streamPongWait * 9) / 10
)

// streamMessage is one frame of a /run/stream session: either a running
// "tick" progress update or the terminal "result"/"error" frame.
type streamMessage struct {
	Type   string               `json:"type"`
	Tick   *tracker.EquityPoint `json:"tick,omitempty"`
	Result *runResponse         `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// handleRunStream runs the same simulation as POST /run but streams one
// "tick" frame per equity sample as the run progresses, then a final
// "result" frame, over a websocket. The request is carried as a
// base64url(JSON)-encoded "request" query parameter since a GET upgrade
// handshake has no body.
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("api: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		return nil
	})
	go discardIncoming(conn)

	raw := r.URL.Query().Get("request")
	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		sendStreamError(conn, "invalid request parameter")
		return
	}

	var req runRequest
	if err := json.Unmarshal(decoded, &req); err != nil {
		sendStreamError(conn, "invalid request body")
		return
	}

	startDate, err := config.ParseDate(req.Parameters.StartDate)
	if err != nil {
		sendStreamError(conn, "invalid date format")
		return
	}
	endDate, err := config.ParseDate(req.Parameters.EndDate)
	if err != nil {
		sendStreamError(conn, "invalid date format")
		return
	}

	tickInterval := time.Minute
	if req.Parameters.Tick != nil {
		tickInterval, err = config.ParseTick(*req.Parameters.Tick)
		if err != nil {
			sendStreamError(conn, "cannot parse tick duration")
			return
		}
	}

	wasmBytes, err := base64.StdEncoding.DecodeString(req.Strategy.WasmBase64)
	if err != nil {
		sendStreamError(conn, "invalid base64 encoded wasm")
		return
	}

	ctx := r.Context()
	strategy, err := sandbox.Load(ctx, wasmBytes)
	if err != nil {
		sendStreamError(conn, "failed to load wasm strategy")
		return
	}
	defer strategy.Close(ctx)

	fees := broker.FeeSchedule{}
	if req.Broker.Fees != nil {
		fees, err = req.Broker.Fees.ToSchedule()
		if err != nil {
			sendStreamError(conn, "invalid fee schedule")
			return
		}
	}
	var slipMin, slipMax float64
	if req.Broker.Slippage != nil {
		slipMin, slipMax = req.Broker.Slippage.Min, req.Broker.Slippage.Max
	}

	if s.provider == nil {
		sendStreamError(conn, "failed to fetch OHLCV data")
		return
	}
	from, to := req.Parameters.StartDate[:10], req.Parameters.EndDate[:10]
	candles, err := s.provider.DailyAggregates(ctx, req.Data, from, to)
	if err != nil {
		sendStreamError(conn, "failed to fetch OHLCV data")
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

	ping := time.NewTicker(streamPingEvery)
	defer ping.Stop()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	eng.OnEquity(func(p tracker.EquityPoint) {
		point := p
		_ = writeStreamFrame(conn, streamMessage{Type: "tick", Tick: &point})
	})

	result, err := eng.Run(ctx)
	close(done)
	if err != nil {
		obs.IncRun("engine_error")
		sendStreamError(conn, "backtest run failed")
		return
	}

	obs.IncRun("ok")
	obs.FinalEquityUSD.Set(result.Metrics.TotalEquity)

	resp := runResponse{
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
	}
	_ = writeStreamFrame(conn, streamMessage{Type: "result", Result: &resp})
}

func writeStreamFrame(conn *websocket.Conn, msg streamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(msg)
}

func sendStreamError(conn *websocket.Conn, message string) {
	_ = writeStreamFrame(conn, streamMessage{Type: "error", Error: message})
}

// discardIncoming drains client frames (pongs, stray messages) so the
// connection's read deadline keeps resetting until the client disconnects.
func discardIncoming(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
