package launch

import (
	"flag"
	"fmt"
	"io"
	"strconv"
)

// Transport selects how the ranks of a group reach each other.
type Transport string

const (
	// TransportGRPC runs one process per rank; rank 0 hosts the hub.
	TransportGRPC Transport = "grpc"
	// TransportLocal runs every rank as a goroutine of one process.
	TransportLocal Transport = "local"
)

// Options is the parsed command line.
type Options struct {
	Procs     int
	Transport Transport
	Rank      int
	Hub       string
	TLS       bool
	CAFile    string
	Wait      bool
	LogLevel  string

	// Sizes overrides the trial sizes; empty means bench.Sizes.
	Sizes []int
	// Executable is re-run for spawned ranks; empty means os.Executable.
	Executable string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// ParseArgs reads the command line the way the mpibench binary does.
func ParseArgs(args []string, stderr io.Writer) (Options, error) {
	var opts Options
	var transport string

	fs := flag.NewFlagSet("mpibench", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&opts.Procs, "np", 4, "Number of ranks in the group")
	fs.StringVar(&transport, "transport", string(TransportGRPC), "Rank transport: grpc or local")
	fs.IntVar(&opts.Rank, "rank", -1, "Rank of this process (-1 launches the whole group)")
	fs.StringVar(&opts.Hub, "hub", "127.0.0.1:50051", "Hub address: rank 0 listens, other ranks dial")
	fs.BoolVar(&opts.TLS, "tls", false, "Secure the hub with a self-signed certificate")
	fs.StringVar(&opts.CAFile, "ca", "", "Hub certificate to trust (set for spawned ranks)")
	fs.BoolVar(&opts.Wait, "wait", true, "Wait for a key press before exiting")
	fs.StringVar(&opts.LogLevel, "loglevel", "warn", "Log level: disabled, error, warn, info, debug, trace")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	opts.Transport = Transport(transport)
	return opts, opts.Validate()
}

// Validate checks the group shape.
func (o Options) Validate() error {
	if o.Procs < 1 {
		return fmt.Errorf("-np must be at least 1, got %d", o.Procs)
	}
	if o.Transport != TransportGRPC && o.Transport != TransportLocal {
		return fmt.Errorf("invalid transport %q: use grpc or local", o.Transport)
	}
	if o.Rank >= o.Procs || o.Rank < -1 {
		return fmt.Errorf("rank %d outside group of %d", o.Rank, o.Procs)
	}
	if o.Transport == TransportLocal && o.Rank > 0 {
		return fmt.Errorf("-rank is only meaningful with the grpc transport")
	}
	return nil
}

// childArgs is the command line of a spawned rank.
func (o Options) childArgs(rank int, hub, caFile string) []string {
	args := []string{
		"-transport", string(TransportGRPC),
		"-np", strconv.Itoa(o.Procs),
		"-rank", strconv.Itoa(rank),
		"-hub", hub,
		"-loglevel", o.LogLevel,
		"-wait=false",
	}
	if caFile != "" {
		args = append(args, "-ca", caFile)
	}
	return args
}
