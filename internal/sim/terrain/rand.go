package terrain

import "fmt"

// Rand is a deterministic scalar stream derived from a string seed.
// Two instances built from the same seed yield identical sequences;
// instances never share state.
type Rand struct {
	state uint32
}

// NewRand folds the seed string into a 32-bit state with an
// order-sensitive multiplicative hash ("ab" and "ba" diverge).
func NewRand(seed string) *Rand {
	var h uint32
	for _, c := range seed {
		h = h*31 + uint32(c)
	}
	if h == 0 {
		// xorshift has a fixed point at zero; nudge off it.
		h = 0x9e3779b9
	}
	return &Rand{state: h}
}

// ChunkSeed derives the sub-seed string for one chunk of a world.
func ChunkSeed(worldSeed string, cx, cy int) string {
	return fmt.Sprintf("%s:%d,%d", worldSeed, cx, cy)
}

// Next advances the state with a fixed xorshift-multiply mix and
// returns the draw as a float in [0,1).
func (r *Rand) Next() float64 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return float64(x*0x9e3779b1) / (1 << 32)
}

// IntN returns a draw in [0,n). n must be positive.
func (r *Rand) IntN(n int) int {
	return int(r.Next() * float64(n))
}

// Between returns a draw in [lo,hi].
func (r *Rand) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

// Chance reports whether a single draw lands under p (0..1).
func (r *Rand) Chance(p float64) bool {
	return r.Next() < p
}
