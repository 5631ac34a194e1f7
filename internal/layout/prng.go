package layout

import "github.com/cespare/xxhash/v2"

// mulberry32 is a small 32-bit PRNG. It is not for anything secret; it only
// has to be fast and reproducible across runs.
type mulberry32 struct{ state uint32 }

func newRand(seedKey string) *mulberry32 {
	h := xxhash.Sum64String(seedKey)
	return &mulberry32{state: uint32(h ^ h>>32)}
}

// Float returns a value in [0, 1).
func (m *mulberry32) Float() float64 {
	m.state += 0x6D2B79F5
	t := m.state
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return float64(t^t>>14) / 4294967296
}

func (m *mulberry32) Between(lo, hi float64) float64 {
	return lo + m.Float()*(hi-lo)
}
