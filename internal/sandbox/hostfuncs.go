package sandbox

import (
	"context"
	"log"

	"github.com/chidi150c/backtestkit/internal/types"
)

// placeOrder is shared plumbing for the three place_*_order host calls: read
// the asset string out of guest memory, decode the direction, and forward to
// the broker loaned for this tick. An unknown direction or an out-of-range
// string pointer drops the call silently — the guest sees no error, as wasm
// has no exception mechanism to report one through.
func (s *Strategy) placeOrder(assetPtr, assetLen uint32, direction int32, build func(symbol string, side types.OrderSide) types.Order) {
	if s.brkr == nil {
		return
	}
	asset, ok := s.readString(assetPtr, assetLen)
	if !ok {
		return
	}
	side, ok := decodeDirection(direction)
	if !ok {
		return
	}
	s.brkr.PlaceOrder(build(asset, side))
}

func (s *Strategy) hostPlaceMarketOrder(_ context.Context, assetPtr, assetLen uint32, direction int32, size float64) {
	s.placeOrder(assetPtr, assetLen, direction, func(symbol string, side types.OrderSide) types.Order {
		return types.NewMarketOrder(symbol, side, size)
	})
}

func (s *Strategy) hostPlaceLimitOrder(_ context.Context, assetPtr, assetLen uint32, direction int32, size, price float64) {
	s.placeOrder(assetPtr, assetLen, direction, func(symbol string, side types.OrderSide) types.Order {
		return types.NewLimitOrder(symbol, side, size, price)
	})
}

func (s *Strategy) hostPlaceStopOrder(_ context.Context, assetPtr, assetLen uint32, direction int32, size, stopPrice float64) {
	s.placeOrder(assetPtr, assetLen, direction, func(symbol string, side types.OrderSide) types.Order {
		return types.NewStopOrder(symbol, side, size, stopPrice)
	})
}

func (s *Strategy) hostGetCash(_ context.Context) float64 {
	if s.brkr == nil {
		return 0
	}
	return s.brkr.Cash
}

func (s *Strategy) hostGetPosition(_ context.Context, assetPtr, assetLen uint32) float64 {
	if s.brkr == nil {
		return 0
	}
	asset, ok := s.readString(assetPtr, assetLen)
	if !ok {
		return 0
	}
	return s.brkr.Portfolio(asset)
}

func (s *Strategy) hostLog(_ context.Context, ptr, length uint32) {
	msg, ok := s.readString(ptr, length)
	if !ok {
		return
	}
	log.Printf("[guest]: %s", msg)
}

func (s *Strategy) hostAbort(_ context.Context, _, _, _, _ int32) {
	log.Printf("[guest]: abort called")
}
