// Command mpibench times max, sum and filtered-count reductions over
// random arrays scattered across a group of ranks.
//
// Started without -rank it launches the whole group: it becomes rank 0,
// hosts the gRPC hub and re-executes itself for every other rank.
//
//	mpibench -np 4
//	mpibench -np 8 -transport local
//	mpibench -np 2 -rank 0 -hub :50051            # on host A
//	mpibench -np 2 -rank 1 -hub hostA:50051       # on host B
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"github.com/Kateryna56/MPI-NET/internal/launch"
)

func main() {
	opts, err := launch.ParseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("mpibench: %v", err)
	}
	opts.Stdin = os.Stdin
	opts.Stdout = os.Stdout
	opts.Stderr = os.Stderr

	if err := launch.Run(context.Background(), opts); err != nil {
		log.Fatalf("mpibench: %v", err)
	}
}
