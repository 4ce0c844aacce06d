package engine

import (
	"math/rand/v2"

	"github.com/sinfonia-audio/sinfonia/internal/theme"
)

// Rand is the subset of math/rand/v2's *rand.Rand used for parameter
// draws, injectable so tests can seed deterministically (spec §9
// "Seed for tests must be injectable").
type Rand interface {
	Float64() float64
	Uint64() uint64
}

// NewRand returns a new seeded source, independent of the global one.
func NewRand(seed1, seed2 uint64) Rand {
	return rand.New(rand.NewPCG(seed1, seed2))
}

// DrawFloat draws a value uniformly from [Min, Max): Max itself is not
// drawn, apart from float32 rounding. If Min == Max the draw is exactly
// Min (spec §3 range invariant).
func DrawFloat(r Rand, rng theme.FloatRange) float32 {
	if rng.Min == rng.Max {
		return rng.Min
	}
	lo, hi := rng.Min, rng.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo + float32(r.Float64())*(hi-lo)
}

// DrawCount draws a value uniformly from an inclusive uint32 range.
func DrawCount(r Rand, rng theme.CountRange) uint32 {
	if rng.Min == rng.Max {
		return rng.Min
	}
	lo, hi := rng.Min, rng.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	span := uint64(hi-lo) + 1
	return lo + uint32(r.Uint64()%span)
}

// DrawDelay draws a value uniformly from an inclusive uint64
// millisecond range.
func DrawDelay(r Rand, rng theme.DelayRange) uint64 {
	if rng.Min == rng.Max {
		return rng.Min
	}
	lo, hi := rng.Min, rng.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	span := hi - lo + 1
	return lo + r.Uint64()%span
}
