package sandbox

import (
	"encoding/binary"
	"math"
)

// The helpers below hand-assemble a minimal wasm binary module in-process,
// so the end-to-end Load/Init/Tick test doesn't depend on an external wasm
// toolchain being present. They implement just enough of the binary format
// (LEB128 integers, the type/import/function/memory/export/code sections)
// to produce a module wazero will compile and instantiate.

const (
	valTypeI32 = 0x7F
	valTypeI64 = 0x7E
	valTypeF64 = 0x7C
)

func uleb128(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

func sleb128(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			out = append(out, b)
			break
		}
		out = append(out, b|0x80)
	}
	return out
}

func wasmString(s string) []byte {
	out := uleb128(uint32(len(s)))
	return append(out, s...)
}

func wasmSection(id byte, content []byte) []byte {
	out := []byte{id}
	out = append(out, uleb128(uint32(len(content)))...)
	return append(out, content...)
}

func funcType(params, results []byte) []byte {
	out := []byte{0x60}
	out = append(out, uleb128(uint32(len(params)))...)
	out = append(out, params...)
	out = append(out, uleb128(uint32(len(results)))...)
	out = append(out, results...)
	return out
}

func wasmExport(name string, kind byte, index uint32) []byte {
	out := wasmString(name)
	out = append(out, kind)
	return append(out, uleb128(index)...)
}

// buildTickCallsPlaceMarketOrderModule returns a wasm module exporting
// init()/tick(i64,f64,f64,f64,f64,f64) and importing env.place_market_order.
// tick's body calls place_market_order with an asset pointer/length that is
// deliberately out of bounds for the guest's one-page memory, exercising the
// host's bounds-checked readString path without a panic.
func buildTickCallsPlaceMarketOrderModule() []byte {
	// () -> (), used by init
	typeVoid := funcType(nil, nil)
	// (i32 asset_ptr, i32 asset_len, i32 direction, f64 size) -> (), used by
	// the imported place_market_order host function
	typePlaceOrder := funcType([]byte{valTypeI32, valTypeI32, valTypeI32, valTypeF64}, nil)
	// (i64 unix_time, f64 open, f64 high, f64 low, f64 close, f64 volume) -> (),
	// used by tick
	typeTick := funcType([]byte{valTypeI64, valTypeF64, valTypeF64, valTypeF64, valTypeF64, valTypeF64}, nil)

	typeSec := wasmSection(1, concat(
		uleb128(3), typeVoid, typePlaceOrder, typeTick,
	))

	// Function index space: 0 = imported place_market_order, 1 = init, 2 = tick.
	importEntry := concat(
		wasmString("env"),
		wasmString("place_market_order"),
		[]byte{0x00}, // import kind: func
		uleb128(1),   // type index: typePlaceOrder
	)
	importSec := wasmSection(2, concat(uleb128(1), importEntry))

	funcSec := wasmSection(3, concat(
		uleb128(2),
		uleb128(0), // init -> typeVoid
		uleb128(2), // tick -> typeTick
	))

	memSec := wasmSection(5, concat(
		uleb128(1),
		[]byte{0x00}, // limits: min only
		uleb128(1),   // 1 page (64KiB)
	))

	exportSec := wasmSection(7, concat(
		uleb128(3),
		wasmExport("init", 0x00, 1),
		wasmExport("tick", 0x00, 2),
		wasmExport("memory", 0x02, 0),
	))

	initBody := []byte{0x00, 0x0B} // no locals, end

	var tickExpr []byte
	tickExpr = append(tickExpr, 0x41)              // i32.const
	tickExpr = append(tickExpr, sleb128(1<<20)...) // asset_ptr, 1MiB: far past the end of the 64KiB memory
	tickExpr = append(tickExpr, 0x41)              // i32.const
	tickExpr = append(tickExpr, sleb128(10)...)    // asset_len
	tickExpr = append(tickExpr, 0x41)              // i32.const
	tickExpr = append(tickExpr, sleb128(0)...)     // direction: buy
	tickExpr = append(tickExpr, 0x44)              // f64.const
	var sizeBits [8]byte
	binary.LittleEndian.PutUint64(sizeBits[:], math.Float64bits(1.0))
	tickExpr = append(tickExpr, sizeBits[:]...)
	tickExpr = append(tickExpr, 0x10)          // call
	tickExpr = append(tickExpr, uleb128(0)...) // function index 0: place_market_order
	tickExpr = append(tickExpr, 0x0B)          // end
	tickBody := concat([]byte{0x00}, tickExpr) // no locals, then the expression

	codeSec := wasmSection(10, concat(
		uleb128(2),
		concat(uleb128(uint32(len(initBody))), initBody),
		concat(uleb128(uint32(len(tickBody))), tickBody),
	))

	header := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	return concat(header, typeSec, importSec, funcSec, memSec, exportSec, codeSec)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
