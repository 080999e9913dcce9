// Package partition splits an array of n elements into w contiguous
// blocks whose sizes differ by at most one.
package partition

import "fmt"

// Partition describes how an array is laid out across ranks.
// Counts[r] is the number of elements owned by rank r and Displs[r]
// the offset of its first element.
type Partition struct {
	Counts []int
	Displs []int
}

// Compute returns the block decomposition of n elements over w ranks.
// Every rank gets n/w elements and the first n%w ranks get one extra.
// w <= 0 or n < 0 is a programming error and panics.
func Compute(n, w int) Partition {
	if w <= 0 {
		panic(fmt.Sprintf("partition: worker count must be positive, got %d", w))
	}
	if n < 0 {
		panic(fmt.Sprintf("partition: negative array length %d", n))
	}

	base, rem := n/w, n%w
	counts := make([]int, w)
	for r := range counts {
		counts[r] = base
		if r < rem {
			counts[r]++
		}
	}
	return Partition{Counts: counts, Displs: Offsets(counts)}
}

// Offsets returns the exclusive prefix sum of counts.
func Offsets(counts []int) []int {
	displs := make([]int, len(counts))
	for r := 1; r < len(counts); r++ {
		displs[r] = displs[r-1] + counts[r-1]
	}
	return displs
}

// Range returns the half-open interval [lo, hi) owned by rank.
func (p Partition) Range(rank int) (lo, hi int) {
	lo = p.Displs[rank]
	return lo, lo + p.Counts[rank]
}

// Len is the total number of elements covered by the partition.
func (p Partition) Len() int {
	total := 0
	for _, c := range p.Counts {
		total += c
	}
	return total
}
