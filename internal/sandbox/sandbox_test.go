package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/chidi150c/backtestkit/internal/broker"
	"github.com/chidi150c/backtestkit/internal/types"
)

func TestDecodeDirection(t *testing.T) {
	cases := []struct {
		raw    int32
		want   types.OrderSide
		wantOK bool
	}{
		{directionBuy, types.Buy, true},
		{directionSell, types.Sell, true},
		{99, 0, false},
	}
	for _, c := range cases {
		got, ok := decodeDirection(c.raw)
		if ok != c.wantOK {
			t.Fatalf("decodeDirection(%d) ok = %v, want %v", c.raw, ok, c.wantOK)
		}
		if ok && got != c.want {
			t.Fatalf("decodeDirection(%d) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestPlaceOrderNoopsWithoutAnActiveBroker(t *testing.T) {
	s := &Strategy{}
	// brkr is nil outside of Tick's lifetime window; placeOrder must not panic.
	s.placeOrder(0, 0, directionBuy, func(symbol string, side types.OrderSide) types.Order {
		t.Fatalf("build should never be called when there is no active broker")
		return types.Order{}
	})
}

// TestLoadRunsRealWasmModuleAndClearsBrokerAfterTick compiles and
// instantiates a hand-encoded wasm module (no external wasm toolchain
// involved) that exports init/tick and imports place_market_order, then
// drives it through the real Load/Init/Tick path. tick's bytecode calls
// place_market_order with an asset pointer past the end of the guest's
// memory, exercising the bounds-checked readString path end to end: the
// call must be silently dropped rather than panic, and no order may reach
// the broker.
func TestLoadRunsRealWasmModuleAndClearsBrokerAfterTick(t *testing.T) {
	ctx := context.Background()
	strat, err := Load(ctx, buildTickCallsPlaceMarketOrderModule())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	defer strat.Close(ctx)

	strat.Init(ctx)

	brkr := broker.New()
	brkr.SetCash(1000)

	candle := types.Candle{Time: time.Unix(0, 0), Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}
	strat.Tick(ctx, time.Now(), candle, brkr)

	if strat.brkr != nil {
		t.Fatalf("brkr must be cleared once Tick returns, per the sandbox's lifetime rule")
	}
	if len(brkr.PendingOrders()) != 0 {
		t.Fatalf("out-of-range asset pointer should never reach PlaceOrder, got %d pending orders", len(brkr.PendingOrders()))
	}
}
