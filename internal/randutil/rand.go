// Package randutil seeds math/rand/v2 generators from a single int64,
// so bot policies can take one seed and replay the same decision stream.
package randutil

import rand "math/rand/v2"

// splitmix64 increment, used to decorrelate the two PCG seed words.
const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a generator seeded from one int64. PCG wants two 64-bit
// words; both are derived from the seed through a splitmix64 finalizer
// so nearby seeds still produce unrelated streams.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
