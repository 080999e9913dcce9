package bench

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pion/logging"

	"github.com/Kateryna56/MPI-NET/internal/collective"
	"github.com/Kateryna56/MPI-NET/internal/logx"
	"github.com/Kateryna56/MPI-NET/internal/partition"
	"github.com/Kateryna56/MPI-NET/internal/reduce"
)

// Config parameterises a Driver. DefaultConfig holds the benchmark's
// fixed values; tests shrink Sizes.
type Config struct {
	Sizes     []int
	Seed      int64
	Threshold int32

	// Out receives the coordinator's progress lines. Nil discards them.
	Out           io.Writer
	LoggerFactory logging.LoggerFactory
}

// DefaultConfig returns the four fixed trials with seed 42 and
// threshold 900000.
func DefaultConfig() Config {
	return Config{
		Sizes:     Sizes[:],
		Seed:      Seed,
		Threshold: Threshold,
	}
}

// Driver runs every trial on one rank.
type Driver struct {
	comm *collective.Comm
	cfg  Config
	log  logging.LeveledLogger
}

// NewDriver binds cfg to comm.
func NewDriver(comm *collective.Comm, cfg Config) *Driver {
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	return &Driver{
		comm: comm,
		cfg:  cfg,
		log:  logx.Scoped(cfg.LoggerFactory, "bench"),
	}
}

// role separates what only the coordinator does from the collective
// calls every rank makes.
type role interface {
	prepare(n int) ([]int32, error)
	aggregate(op Op, call func() error) error
}

type coordinator struct {
	out     io.Writer
	seed    int64
	elapsed [numOps]time.Duration
}

func (c *coordinator) prepare(n int) ([]int32, error) {
	data := Generate(n, c.seed)
	if _, err := fmt.Fprintf(c.out, "Array size: %d\n", n); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *coordinator) aggregate(op Op, call func() error) error {
	start := time.Now()
	err := call()
	c.elapsed[op] = time.Since(start)
	return err
}

type worker struct{}

func (worker) prepare(int) ([]int32, error) { return nil, nil }

func (worker) aggregate(_ Op, call func() error) error { return call() }

// Run executes all trials. The coordinator gets the report; workers get
// a nil report once their last collective returns.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	var (
		r      role = worker{}
		coord  *coordinator
		report *Report
	)
	if d.comm.Rank() == Root {
		coord = &coordinator{out: d.cfg.Out, seed: d.cfg.Seed}
		r = coord
		report = &Report{
			Workers:   d.comm.Size(),
			Threshold: d.cfg.Threshold,
			Rows:      make([]Row, 0, len(d.cfg.Sizes)),
		}
	}

	for i, n := range d.cfg.Sizes {
		row, err := d.trial(ctx, r, n)
		if err != nil {
			return nil, fmt.Errorf("trial %d (size %d): %w", i, n, err)
		}
		if coord == nil {
			continue
		}
		row.Elapsed = coord.elapsed
		report.Rows = append(report.Rows, row)
		d.log.Infof("size %d on %d ranks: max=%d sum=%d filtered=%d (%v / %v / %v)",
			n, d.comm.Size(), row.Max, row.Sum, row.Filtered,
			row.Elapsed[OpMax], row.Elapsed[OpSum], row.Elapsed[OpFilter])
	}
	return report, nil
}

// trial is one Generate → Partition → Scatterv → reduce/aggregate round.
// Every rank walks the same collective sequence; only the role differs.
func (d *Driver) trial(ctx context.Context, r role, n int) (Row, error) {
	row := Row{Size: n}

	local, err := d.distribute(ctx, r, n)
	if err != nil {
		return row, err
	}
	d.log.Debugf("rank %d holds %d of %d elements", d.comm.Rank(), len(local), n)

	localMax := reduce.Max(local)
	err = r.aggregate(OpMax, func() error {
		var err error
		row.Max, err = d.comm.ReduceMax(ctx, localMax, Root)
		return err
	})
	if err != nil {
		return row, err
	}

	localSum := reduce.Sum(local)
	err = r.aggregate(OpSum, func() error {
		var err error
		row.Sum, err = d.comm.ReduceSum(ctx, localSum, Root)
		return err
	})
	if err != nil {
		return row, err
	}

	filtered := reduce.Filter(local, d.cfg.Threshold)
	var gathered [][]int32
	err = r.aggregate(OpFilter, func() error {
		var err error
		gathered, err = d.comm.Gather(ctx, filtered, Root)
		return err
	})
	if err != nil {
		return row, err
	}
	for _, part := range gathered {
		row.Filtered += len(part)
	}

	return row, nil
}

// distribute hands every rank its chunk. The source array only lives
// for the duration of the call.
func (d *Driver) distribute(ctx context.Context, r role, n int) ([]int32, error) {
	data, err := r.prepare(n)
	if err != nil {
		return nil, err
	}
	p := partition.Compute(n, d.comm.Size())
	return d.comm.Scatterv(ctx, data, p.Counts, Root)
}
