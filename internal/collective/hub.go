package collective

import (
	"context"
	"math"
	"sync"

	"github.com/pion/logging"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Kateryna56/MPI-NET/internal/logx"
	"github.com/Kateryna56/MPI-NET/internal/partition"
)

// Hub is the rendezvous point of a worker group. Every rank sends its
// contribution for a collective to the hub; once all size ranks of the
// same sequence number have arrived the hub combines them and releases
// every caller with its own reply.
type Hub struct {
	size int
	log  logging.LeveledLogger

	mu     sync.Mutex
	rounds map[uint64]*round
}

type round struct {
	seq       uint64
	kind      Kind
	root      int32
	parts     []*Envelope
	arrived   int
	collected int
	closed    bool

	replies []*Envelope
	err     error
	done    chan struct{}
}

// NewHub creates a hub for a group of size ranks.
func NewHub(size int, factory logging.LoggerFactory) *Hub {
	return &Hub{
		size:   size,
		log:    logx.Scoped(factory, "hub"),
		rounds: make(map[uint64]*round),
	}
}

// Size returns the group size the hub waits for.
func (h *Hub) Size() int { return h.size }

// Exchange records in and blocks until the collective it belongs to is
// complete or ctx is done. Errors are gRPC status errors.
func (h *Hub) Exchange(ctx context.Context, in *Envelope) (*Envelope, error) {
	if in.Rank < 0 || int(in.Rank) >= h.size {
		return nil, status.Errorf(codes.InvalidArgument, "rank %d outside group of %d", in.Rank, h.size)
	}
	if in.Root < 0 || int(in.Root) >= h.size {
		return nil, status.Errorf(codes.InvalidArgument, "root %d outside group of %d", in.Root, h.size)
	}

	h.mu.Lock()
	r, ok := h.rounds[in.Seq]
	if !ok {
		r = &round{
			seq:   in.Seq,
			kind:  in.Kind,
			root:  in.Root,
			parts: make([]*Envelope, h.size),
			done:  make(chan struct{}),
		}
		h.rounds[in.Seq] = r
	}

	switch {
	case r.closed && r.err == nil:
		h.mu.Unlock()
		return nil, status.Errorf(codes.FailedPrecondition, "seq %d: rank %d arrived after %s completed", in.Seq, in.Rank, r.kind)
	case r.closed:
	case r.kind != in.Kind || r.root != in.Root:
		r.fail(status.Errorf(codes.FailedPrecondition, "seq %d: rank %d called %s(root=%d) while group is in %s(root=%d)",
			in.Seq, in.Rank, in.Kind, in.Root, r.kind, r.root))
	case r.parts[in.Rank] != nil:
		r.fail(status.Errorf(codes.FailedPrecondition, "seq %d: rank %d contributed twice to %s", in.Seq, in.Rank, r.kind))
	default:
		r.parts[in.Rank] = in
		r.arrived++
		h.log.Tracef("seq %d %s: rank %d arrived (%d/%d)", r.seq, r.kind, in.Rank, r.arrived, h.size)
		if r.arrived == h.size {
			replies, err := combine(r.kind, r.root, r.parts)
			if err != nil {
				r.fail(err)
			} else {
				r.replies = replies
				r.parts = nil
				r.closed = true
				close(r.done)
				h.log.Debugf("seq %d %s complete", r.seq, r.kind)
			}
		}
	}
	h.mu.Unlock()

	select {
	case <-r.done:
	case <-ctx.Done():
		return nil, status.FromContextError(ctx.Err()).Err()
	}

	if r.err != nil {
		h.log.Errorf("seq %d: %v", r.seq, r.err)
		return nil, r.err
	}

	h.mu.Lock()
	r.collected++
	if r.collected == h.size {
		delete(h.rounds, r.seq)
	}
	h.mu.Unlock()

	return r.replies[in.Rank], nil
}

// pending reports how many rounds are still held by the hub.
func (h *Hub) pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rounds)
}

// fail poisons the round: every current and future caller gets err.
// Must be called with the hub lock held.
func (r *round) fail(err error) {
	if r.err != nil {
		return
	}
	r.err = err
	r.parts = nil
	if !r.closed {
		r.closed = true
		close(r.done)
	}
}

// combine builds one reply per rank from the full set of contributions.
func combine(kind Kind, root int32, parts []*Envelope) ([]*Envelope, error) {
	replies := make([]*Envelope, len(parts))
	for i, p := range parts {
		replies[i] = &Envelope{Seq: p.Seq, Rank: int32(i), Root: root, Kind: kind}
	}
	out := replies[root]

	switch kind {
	case KindBarrier:

	case KindScatter:
		src := parts[root]
		if len(src.Counts) != len(parts) {
			return nil, status.Errorf(codes.InvalidArgument, "scatterv: %d counts for a group of %d", len(src.Counts), len(parts))
		}
		counts := make([]int, len(src.Counts))
		total := 0
		for i, c := range src.Counts {
			if c < 0 {
				return nil, status.Errorf(codes.InvalidArgument, "scatterv: negative count %d for rank %d", c, i)
			}
			counts[i] = int(c)
			total += int(c)
		}
		if total != len(src.Data) {
			return nil, status.Errorf(codes.InvalidArgument, "scatterv: counts cover %d elements, data has %d", total, len(src.Data))
		}
		displs := partition.Offsets(counts)
		for i, reply := range replies {
			chunk := make([]int32, counts[i])
			copy(chunk, src.Data[displs[i]:displs[i]+counts[i]])
			reply.Data = chunk
		}

	case KindReduceMax:
		m := int64(math.MinInt64)
		for _, p := range parts {
			m = max(m, p.Scalar)
		}
		out.Scalar = m

	case KindReduceSum:
		var sum int64
		for _, p := range parts {
			sum += p.Scalar
		}
		out.Scalar = sum

	case KindGather:
		counts := make([]int32, len(parts))
		total := 0
		for i, p := range parts {
			counts[i] = int32(len(p.Data))
			total += len(p.Data)
		}
		data := make([]int32, 0, total)
		for _, p := range parts {
			data = append(data, p.Data...)
		}
		out.Counts = counts
		out.Data = data

	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown collective %s", kind)
	}

	return replies, nil
}
