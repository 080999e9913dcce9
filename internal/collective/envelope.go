package collective

import "fmt"

// Kind identifies the collective an Envelope belongs to.
type Kind int32

const (
	KindBarrier Kind = iota + 1
	KindScatter
	KindReduceMax
	KindReduceSum
	KindGather
)

func (k Kind) String() string {
	switch k {
	case KindBarrier:
		return "barrier"
	case KindScatter:
		return "scatterv"
	case KindReduceMax:
		return "reduce-max"
	case KindReduceSum:
		return "reduce-sum"
	case KindGather:
		return "gather"
	}
	return fmt.Sprintf("kind(%d)", int32(k))
}

// Envelope is one rank's contribution to a collective, and the reply the
// hub hands back to that rank once every rank has contributed.
//
// Scatter: the root sends the whole array in Data and the per-rank sizes
// in Counts; each reply carries that rank's chunk in Data.
// Reduce: each rank sends its operand in Scalar; the root's reply carries
// the combined value.
// Gather: each rank sends its sequence in Data; the root's reply carries
// the concatenation in Data and the per-rank lengths in Counts.
type Envelope struct {
	Seq    uint64
	Rank   int32
	Root   int32
	Kind   Kind
	Scalar int64
	Data   []int32
	Counts []int32
}
