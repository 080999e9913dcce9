// Package collective provides the scatter, reduce and gather collectives
// a fixed group of ranks uses to share work. Ranks meet at a Hub, either
// directly (all ranks in one process) or over gRPC (one process per rank).
package collective

import (
	"context"
	"fmt"

	"github.com/Kateryna56/MPI-NET/internal/reduce"
)

// Exchanger delivers one Envelope to the group's hub and returns the
// reply once the collective is complete. *Hub and *Client implement it.
type Exchanger interface {
	Exchange(ctx context.Context, in *Envelope) (*Envelope, error)
}

// Comm is one rank's handle on the group. Every rank must call the same
// collectives in the same order; calls are matched by a sequence number
// private to each Comm. A Comm is not safe for concurrent use.
type Comm struct {
	rank int
	size int
	ex   Exchanger
	seq  uint64
}

// NewComm binds rank of a group of size to ex.
func NewComm(rank, size int, ex Exchanger) (*Comm, error) {
	if size < 1 {
		return nil, fmt.Errorf("group size must be at least 1, got %d", size)
	}
	if rank < 0 || rank >= size {
		return nil, fmt.Errorf("rank %d outside group of %d", rank, size)
	}
	return &Comm{rank: rank, size: size, ex: ex}, nil
}

// Rank is this rank's index in the group.
func (c *Comm) Rank() int { return c.rank }

// Size is the number of ranks in the group.
func (c *Comm) Size() int { return c.size }

func (c *Comm) exchange(ctx context.Context, in *Envelope) (*Envelope, error) {
	if in.Root < 0 || int(in.Root) >= c.size {
		return nil, fmt.Errorf("%s: root %d outside group of %d", in.Kind, in.Root, c.size)
	}
	c.seq++
	in.Seq = c.seq
	in.Rank = int32(c.rank)

	out, err := c.ex.Exchange(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s seq %d on rank %d: %w", in.Kind, in.Seq, c.rank, err)
	}
	return out, nil
}

// Barrier returns once every rank has entered it.
func (c *Comm) Barrier(ctx context.Context) error {
	_, err := c.exchange(ctx, &Envelope{Kind: KindBarrier})
	return err
}

// Scatterv splits data across the group: rank r receives a new slice with
// the counts[r] elements starting at the sum of counts[:r]. data and
// counts are only read on root.
func (c *Comm) Scatterv(ctx context.Context, data []int32, counts []int, root int) ([]int32, error) {
	in := &Envelope{Kind: KindScatter, Root: int32(root)}
	if c.rank == root {
		in.Data = data
		in.Counts = make([]int32, len(counts))
		for i, n := range counts {
			in.Counts[i] = int32(n)
		}
	}

	out, err := c.exchange(ctx, in)
	if err != nil {
		return nil, err
	}
	if out.Data == nil {
		return []int32{}, nil
	}
	return out.Data, nil
}

// ReduceMax returns the maximum of v over all ranks on root. Other ranks
// get reduce.EmptyMax.
func (c *Comm) ReduceMax(ctx context.Context, v int32, root int) (int32, error) {
	out, err := c.exchange(ctx, &Envelope{Kind: KindReduceMax, Root: int32(root), Scalar: int64(v)})
	if err != nil {
		return reduce.EmptyMax, err
	}
	if c.rank != root {
		return reduce.EmptyMax, nil
	}
	return int32(out.Scalar), nil
}

// ReduceSum returns the sum of v over all ranks on root. Other ranks get 0.
func (c *Comm) ReduceSum(ctx context.Context, v int64, root int) (int64, error) {
	out, err := c.exchange(ctx, &Envelope{Kind: KindReduceSum, Root: int32(root), Scalar: v})
	if err != nil {
		return 0, err
	}
	if c.rank != root {
		return 0, nil
	}
	return out.Scalar, nil
}

// Gather collects every rank's local slice on root, indexed by rank.
// Other ranks get nil.
func (c *Comm) Gather(ctx context.Context, local []int32, root int) ([][]int32, error) {
	out, err := c.exchange(ctx, &Envelope{Kind: KindGather, Root: int32(root), Data: local})
	if err != nil {
		return nil, err
	}
	if c.rank != root {
		return nil, nil
	}
	if len(out.Counts) != c.size {
		return nil, fmt.Errorf("gather seq %d: reply has %d lengths for a group of %d", out.Seq, len(out.Counts), c.size)
	}

	gathered := make([][]int32, c.size)
	offset := 0
	for r, n := range out.Counts {
		end := offset + int(n)
		if end > len(out.Data) {
			return nil, fmt.Errorf("gather seq %d: lengths exceed %d elements", out.Seq, len(out.Data))
		}
		gathered[r] = out.Data[offset:end:end]
		offset = end
	}
	return gathered, nil
}

// NewLocalGroup returns size Comms sharing one in-process Hub. Each Comm
// is meant to be driven by its own goroutine.
func NewLocalGroup(hub *Hub) []*Comm {
	comms := make([]*Comm, hub.Size())
	for r := range comms {
		comms[r] = &Comm{rank: r, size: hub.Size(), ex: hub}
	}
	return comms
}
