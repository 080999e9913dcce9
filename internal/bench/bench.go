// Package bench runs the max / sum / filtered-count benchmark on top of
// a collective.Comm. The same code runs on every rank; rank Root plays
// the coordinator, every other rank a worker.
package bench

import (
	"fmt"
	"math/rand"
)

const (
	// Root generates the source arrays, times the collectives and
	// owns the report.
	Root = 0

	// Seed feeds math/rand.NewSource; its sequence is stable across Go
	// releases, which makes generated arrays reproducible.
	Seed int64 = 42

	// MaxValue bounds generated elements to [0, MaxValue).
	MaxValue = 1_000_000

	// Threshold is the filter cut-off: elements strictly greater pass.
	Threshold int32 = 900_000
)

// Sizes are the array lengths of the four trials.
var Sizes = [...]int{100_000, 1_000_000, 10_000_000, 20_000_000}

// Op is one of the three timed aggregations.
type Op int

const (
	OpMax Op = iota
	OpSum
	OpFilter
	numOps
)

func (o Op) String() string {
	switch o {
	case OpMax:
		return "max"
	case OpSum:
		return "sum"
	case OpFilter:
		return "filter"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Generate returns n pseudorandom elements in [0, MaxValue) drawn from
// rand.NewSource(seed). Equal (n, seed) give equal arrays.
func Generate(n int, seed int64) []int32 {
	rng := rand.New(rand.NewSource(seed))
	data := make([]int32, n)
	for i := range data {
		data[i] = rng.Int31n(MaxValue)
	}
	return data
}
