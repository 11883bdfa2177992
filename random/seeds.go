package random

import "gonum.org/v1/gonum/mathext/prng"

// Seeds derives n well separated seeds from base with a SplitMix64 stream,
// giving each parallel worker its own stream.
func Seeds(base uint64, n int) []uint64 {
	src := prng.NewSplitMix64(base)
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = src.Uint64()
	}
	return seeds
}
