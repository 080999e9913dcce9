// Package launch establishes the worker group and runs the benchmark on
// it: every rank in one process, or one process per rank joined through
// a gRPC hub hosted by rank 0.
package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pion/logging"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/Kateryna56/MPI-NET/internal/bench"
	"github.com/Kateryna56/MPI-NET/internal/collective"
	"github.com/Kateryna56/MPI-NET/internal/logx"
)

// Run executes the benchmark for the rank described by opts.
func Run(ctx context.Context, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	level, err := logx.ParseLevel(opts.LogLevel)
	if err != nil {
		return err
	}
	factory := logx.NewFactory(level, opts.Stderr)

	switch {
	case opts.Transport == TransportLocal:
		return runLocal(ctx, opts, factory)
	case opts.Rank < 0:
		return runHost(ctx, opts, factory, true)
	case opts.Rank == 0:
		return runHost(ctx, opts, factory, false)
	default:
		return runWorker(ctx, opts, factory)
	}
}

func benchConfig(opts Options, factory logging.LoggerFactory) bench.Config {
	cfg := bench.DefaultConfig()
	if len(opts.Sizes) > 0 {
		cfg.Sizes = opts.Sizes
	}
	cfg.Out = opts.Stdout
	cfg.LoggerFactory = factory
	return cfg
}

// runRank is the life of one rank: join, run every trial, leave.
func runRank(ctx context.Context, comm *collective.Comm, cfg bench.Config) (*bench.Report, error) {
	if err := comm.Barrier(ctx); err != nil {
		return nil, fmt.Errorf("joining group: %w", err)
	}
	report, err := bench.NewDriver(comm, cfg).Run(ctx)
	if err != nil {
		return nil, err
	}
	if err := comm.Barrier(ctx); err != nil {
		return nil, fmt.Errorf("leaving group: %w", err)
	}
	return report, nil
}

// finish prints the coordinator's report and waits for a key if asked.
func finish(opts Options, report *bench.Report) error {
	if report == nil {
		return nil
	}
	if _, err := report.WriteTo(opts.Stdout); err != nil {
		return err
	}
	if opts.Wait {
		return WaitForKey(opts.Stdin, opts.Stdout)
	}
	return nil
}

func runLocal(ctx context.Context, opts Options, factory logging.LoggerFactory) error {
	log := logx.Scoped(factory, "launch")
	log.Infof("running %d ranks in-process", opts.Procs)

	cfg := benchConfig(opts, factory)
	comms := collective.NewLocalGroup(collective.NewHub(opts.Procs, factory))

	var report *bench.Report
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range comms {
		g.Go(func() error {
			r, err := runRank(gctx, c, cfg)
			if err != nil {
				return fmt.Errorf("rank %d: %w", c.Rank(), err)
			}
			if c.Rank() == bench.Root {
				report = r
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return finish(opts, report)
}

// runHost is rank 0 of the grpc transport. It serves the hub and, when
// spawn is set, starts ranks 1..np-1 as child processes.
func runHost(ctx context.Context, opts Options, factory logging.LoggerFactory, spawn bool) error {
	log := logx.Scoped(factory, "launch")

	lis, err := net.Listen("tcp", opts.Hub)
	if err != nil {
		return fmt.Errorf("listening for ranks: %w", err)
	}

	var creds credentials.TransportCredentials
	caFile := ""
	if opts.TLS {
		cert, err := collective.NewCertificate()
		if err != nil {
			lis.Close()
			return fmt.Errorf("generating hub certificate: %w", err)
		}
		caFile = opts.CAFile
		if caFile == "" {
			dir, err := os.MkdirTemp("", "mpibench-")
			if err != nil {
				lis.Close()
				return err
			}
			defer os.RemoveAll(dir)
			caFile = filepath.Join(dir, "hub.pem")
		}
		if err := collective.WriteCertificate(caFile, cert); err != nil {
			lis.Close()
			return fmt.Errorf("writing hub certificate: %w", err)
		}
		log.Infof("hub certificate written to %s", caFile)
		creds = collective.ServerCredentials(cert)
	}

	hub := collective.NewHub(opts.Procs, factory)
	srv := collective.NewServer(hub, creds, factory)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("hub server: %w", err)
		}
		return nil
	})

	if spawn {
		if err := spawnRanks(gctx, g, opts, lis.Addr().String(), caFile, log); err != nil {
			cancel()
			srv.Stop()
			g.Wait()
			return err
		}
	}

	comm, err := collective.NewComm(0, opts.Procs, hub)
	if err != nil {
		cancel()
		srv.Stop()
		g.Wait()
		return err
	}

	report, err := runRank(gctx, comm, benchConfig(opts, factory))
	if err == nil {
		err = finish(opts, report)
	}
	if err != nil {
		// children blocked in the hub are killed through gctx
		cancel()
	}
	srv.Stop()
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return err
}

func spawnRanks(ctx context.Context, g *errgroup.Group, opts Options, hub, caFile string, log logging.LeveledLogger) error {
	exe := opts.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return fmt.Errorf("locating executable: %w", err)
		}
	}

	for rank := 1; rank < opts.Procs; rank++ {
		cmd := exec.CommandContext(ctx, exe, opts.childArgs(rank, hub, caFile)...)
		cmd.Stdout = opts.Stdout
		cmd.Stderr = opts.Stderr
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("starting rank %d: %w", rank, err)
		}
		log.Infof("rank %d started as pid %d", rank, cmd.Process.Pid)

		g.Go(func() error {
			if err := cmd.Wait(); err != nil {
				return fmt.Errorf("rank %d: %w", rank, err)
			}
			return nil
		})
	}
	return nil
}

func runWorker(ctx context.Context, opts Options, factory logging.LoggerFactory) error {
	var creds credentials.TransportCredentials
	switch {
	case opts.CAFile != "":
		var err error
		if creds, err = collective.ClientCredentials(opts.CAFile); err != nil {
			return err
		}
	case opts.TLS:
		return fmt.Errorf("rank %d: -tls needs -ca with the hub certificate", opts.Rank)
	}

	client, err := collective.Dial(opts.Hub, creds, factory)
	if err != nil {
		return fmt.Errorf("rank %d: dialing hub %s: %w", opts.Rank, opts.Hub, err)
	}
	defer client.Close()

	comm, err := collective.NewComm(opts.Rank, opts.Procs, client)
	if err != nil {
		return err
	}
	_, err = runRank(ctx, comm, benchConfig(opts, factory))
	return err
}
