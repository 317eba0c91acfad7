// Package randutil centralises how random sources are created so that every
// shuffle, exploration draw and softmax sample can be made reproducible.
package randutil

import (
	rand "math/rand/v2"

	"github.com/coder/quartz"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// ResolveSeed returns seed unchanged unless it is zero, in which case a seed
// is derived from the clock. The resolved seed should be logged so a run can
// be replayed.
func ResolveSeed(seed int64, clock quartz.Clock) int64 {
	if seed != 0 {
		return seed
	}
	s := clock.Now().UnixNano()
	if s == 0 {
		s = 1
	}
	return s
}

// Derive returns a child seed for the named stream. Streams for the same
// parent seed are independent of each other and stable across runs.
func Derive(seed int64, stream uint64) int64 {
	return int64(mix(uint64(seed) ^ mix(stream+goldenRatio64)))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
