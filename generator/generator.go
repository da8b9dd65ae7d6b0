// Package generator drives synthetic workloads into metric instruments.
// Each generator owns its instruments and random source; workers build
// their own generators rather than sharing one across goroutines.
package generator

import (
	"time"

	rand "golang.org/x/exp/rand"
)

// Generator produces one stream of synthetic observations.
// Implementations are not safe for concurrent use.
type Generator interface {
	// Name is the meter name the generator records into.
	Name() string
	// Describe returns a human-readable summary for startup logs.
	Describe() string
	// Tick records the next observation(s).
	Tick()
}

// seedOrNow makes runs reproducible when a seed is configured and unique
// when it is not.
func seedOrNow(seed uint64) uint64 {
	if seed != 0 {
		return seed
	}
	return uint64(time.Now().UnixNano())
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seedOrNow(seed)))
}
