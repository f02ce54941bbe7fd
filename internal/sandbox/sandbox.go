// Package sandbox hosts a user-supplied wasm strategy module inside a
// wazero runtime, exposing the broker through a narrow host ABI. Strategies
// are untrusted: every host call is bounds-checked and failures are
// swallowed rather than propagated, so a misbehaving guest can never crash
// a run.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/chidi150c/backtestkit/internal/broker"
	"github.com/chidi150c/backtestkit/internal/obs"
	"github.com/chidi150c/backtestkit/internal/types"
)

// ErrMissingExport is returned when the compiled module does not export one
// of the two required entry points, or has no linear memory.
var ErrMissingExport = errors.New("sandbox: module missing required export")

const (
	directionBuy  = int32(0)
	directionSell = int32(1)
)

// Strategy loads and drives a single compiled wasm module against a broker,
// one tick at a time. It is not safe for concurrent use.
type Strategy struct {
	runtime  wazero.Runtime
	module   api.Module
	memory   api.Memory
	initFn   api.Function
	tickFn   api.Function
	brkr     *broker.Broker // valid only for the duration of one Tick call
	tickSeen int
}

// Load compiles and instantiates wasmBytes, wiring the env.* host ABI the
// guest expects. The returned Strategy must be closed with Close once the
// run is finished.
func Load(ctx context.Context, wasmBytes []byte) (*Strategy, error) {
	runtime := wazero.NewRuntime(ctx)

	s := &Strategy{runtime: runtime}

	builder := runtime.NewHostModuleBuilder("env")
	builder.NewFunctionBuilder().WithFunc(s.hostPlaceMarketOrder).Export("place_market_order")
	builder.NewFunctionBuilder().WithFunc(s.hostPlaceLimitOrder).Export("place_limit_order")
	builder.NewFunctionBuilder().WithFunc(s.hostPlaceStopOrder).Export("place_stop_order")
	builder.NewFunctionBuilder().WithFunc(s.hostGetCash).Export("get_cash")
	builder.NewFunctionBuilder().WithFunc(s.hostGetPosition).Export("get_position")
	builder.NewFunctionBuilder().WithFunc(s.hostLog).Export("log")
	builder.NewFunctionBuilder().WithFunc(s.hostAbort).Export("abort")

	if _, err := builder.Instantiate(ctx); err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("sandbox: registering host module: %w", err)
	}

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("sandbox: compiling guest module: %w", err)
	}

	module, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("sandbox: instantiating guest module: %w", err)
	}
	s.module = module

	s.memory = module.Memory()
	if s.memory == nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("%w: memory", ErrMissingExport)
	}

	s.initFn = module.ExportedFunction("init")
	if s.initFn == nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("%w: init", ErrMissingExport)
	}
	s.tickFn = module.ExportedFunction("tick")
	if s.tickFn == nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("%w: tick", ErrMissingExport)
	}

	return s, nil
}

// Close releases the underlying wasm runtime.
func (s *Strategy) Close(ctx context.Context) error {
	return s.runtime.Close(ctx)
}

// Init calls the guest's init() export once, before the first tick. A
// trapping guest is logged and otherwise ignored.
func (s *Strategy) Init(ctx context.Context) {
	if _, err := s.initFn.Call(ctx); err != nil {
		log.Printf("sandbox: guest init trapped: %v", err)
		obs.SandboxTrapsTotal.Inc()
	}
}

// Tick grants the guest access to brkr for the duration of the call only —
// the reference is cleared again before Tick returns, so no host function
// can observe it outside this call's stack.
func (s *Strategy) Tick(ctx context.Context, t time.Time, current types.Candle, brkr *broker.Broker) {
	s.brkr = brkr
	defer func() { s.brkr = nil }()

	s.tickSeen++
	args := []uint64{
		api.EncodeI64(t.Unix()),
		api.EncodeF64(current.Open),
		api.EncodeF64(current.High),
		api.EncodeF64(current.Low),
		api.EncodeF64(current.Close),
		api.EncodeF64(current.Volume),
	}
	if _, err := s.tickFn.Call(ctx, args...); err != nil {
		log.Printf("sandbox: guest tick trapped: %v", err)
		obs.SandboxTrapsTotal.Inc()
	}
}

// readString reads a UTF-8 string from guest memory at [ptr, ptr+length).
// An out-of-range span returns ok=false instead of panicking.
func (s *Strategy) readString(ptr, length uint32) (string, bool) {
	b, ok := s.memory.Read(ptr, length)
	if !ok {
		return "", false
	}
	return string(b), true
}

func decodeDirection(raw int32) (types.OrderSide, bool) {
	switch raw {
	case directionBuy:
		return types.Buy, true
	case directionSell:
		return types.Sell, true
	default:
		return 0, false
	}
}
