// Package reduce holds the local, per-chunk reductions each rank runs
// before taking part in a collective.
package reduce

import "math"

// EmptyMax is the local maximum of an empty chunk. It never wins a
// max-reduction against a real element.
const EmptyMax int32 = math.MinInt32

// Max returns the largest element of chunk, or EmptyMax when chunk is empty.
func Max(chunk []int32) int32 {
	m := EmptyMax
	for _, v := range chunk {
		if v > m {
			m = v
		}
	}
	return m
}

// Sum adds chunk on a 64-bit accumulator.
func Sum(chunk []int32) int64 {
	var sum int64
	for _, v := range chunk {
		sum += int64(v)
	}
	return sum
}

// Filter returns, in order, the elements of chunk strictly greater than
// threshold. The result is always a new, non-nil slice.
func Filter(chunk []int32, threshold int32) []int32 {
	out := make([]int32, 0, len(chunk)/8)
	for _, v := range chunk {
		if v > threshold {
			out = append(out, v)
		}
	}
	return out
}
