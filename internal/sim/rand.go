package sim

import (
	"math/rand"
	"time"
)

// Rand is the single random source every chance roll in a city draws from.
// *math/rand.Rand satisfies it; Read feeds citizen UUIDs so seeded runs replay.
type Rand interface {
	Float64() float64
	Intn(n int) int
	Read(p []byte) (int, error)
}

func newTimeSeededRand() Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// roll reports whether a chance in [0,1] succeeds.
func roll(rng Rand, chance float64) bool {
	return rng.Float64() < chance
}

func ipow(base, exp int) int {
	out := 1
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}
