package broker

import "math/rand"

// slippagePoolSize is the number of pre-generated draws cached at
// set_slippage time. Large enough that round-robin reuse is not visible in
// realistic backtests while staying cheap to generate and replay.
const slippagePoolSize = 4096

// slippagePool is a deterministic, pre-generated sequence of fractional
// slippage draws, consumed round-robin. Pre-generating at configuration
// time (rather than drawing per execution) removes a per-tick allocation
// and makes two runs with the same seed produce byte-identical replays even
// across math/rand implementation changes.
type slippagePool struct {
	draws []float64
	next  int
}

// newSlippagePool samples slippagePoolSize values uniformly from [min, max]
// using seed.
func newSlippagePool(min, max float64, seed int64) *slippagePool {
	r := rand.New(rand.NewSource(seed))
	draws := make([]float64, slippagePoolSize)
	span := max - min
	for i := range draws {
		draws[i] = min + r.Float64()*span
	}
	return &slippagePool{draws: draws}
}

// draw returns the next value in round-robin order.
func (p *slippagePool) draw() float64 {
	v := p.draws[p.next]
	p.next = (p.next + 1) % len(p.draws)
	return v
}
