package launch

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Kateryna56/MPI-NET/internal/collective"
)

// Spawned ranks re-run this test binary with helperEnv set; TestMain
// turns them into plain mpibench ranks.
const (
	helperEnv = "MPIBENCH_HELPER_RANK"
	sizesEnv  = "MPIBENCH_HELPER_SIZES"
)

var testSizes = []int{1000, 77, 0, 5003}

func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		os.Exit(helperRank())
	}
	os.Exit(m.Run())
}

func helperRank() int {
	opts, err := ParseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	for _, s := range strings.Split(os.Getenv(sizesEnv), ",") {
		n, err := strconv.Atoi(s)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		opts.Sizes = append(opts.Sizes, n)
	}
	if err := Run(context.Background(), opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func freeAddr(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen error: %v", err)
	}
	addr := lis.Addr().String()
	lis.Close()
	return addr
}

func checkReport(t *testing.T, out string) {
	t.Helper()
	for _, n := range testSizes {
		if !strings.Contains(out, fmt.Sprintf("Array size: %d\n", n)) {
			t.Errorf("output misses the size line for %d:\n%s", n, out)
		}
		if !strings.Contains(out, fmt.Sprintf("\n%d\t", n)) {
			t.Errorf("output misses the report row for %d:\n%s", n, out)
		}
	}
	if !strings.Contains(out, "Size\tMax (s)\tSum (s)\tFilter >900000 (s)\n") {
		t.Errorf("output misses the report header:\n%s", out)
	}
}

func TestRunLocal(t *testing.T) {
	var out bytes.Buffer
	err := Run(context.Background(), Options{
		Procs:     4,
		Transport: TransportLocal,
		Rank:      -1,
		Wait:      true,
		LogLevel:  "disabled",
		Sizes:     testSizes,
		Stdin:     strings.NewReader("q"),
		Stdout:    &out,
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	checkReport(t, out.String())
	if !strings.HasSuffix(out.String(), "Press any key to exit...\n") {
		t.Errorf("output does not end with the exit prompt:\n%s", out.String())
	}
}

func TestRunRejectsBadLogLevel(t *testing.T) {
	err := Run(context.Background(), Options{Procs: 1, Transport: TransportLocal, Rank: -1, LogLevel: "loud"})
	if err == nil {
		t.Error("Run with an unknown log level returned no error")
	}
}

// runManualGroup starts rank 0 and the other ranks by hand, as an
// operator would across hosts.
func runManualGroup(t *testing.T, procs int, base Options, beforeWorker func()) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	base.Procs = procs
	base.Transport = TransportGRPC
	base.Hub = freeAddr(t)
	base.LogLevel = "disabled"
	base.Sizes = testSizes

	var wg sync.WaitGroup
	errs := make(chan error, procs)
	wg.Add(procs - 1)
	for r := 1; r < procs; r++ {
		go func(rank int) {
			defer wg.Done()
			if beforeWorker != nil {
				beforeWorker()
			}
			opts := base
			opts.Rank = rank
			opts.TLS = false
			if err := Run(ctx, opts); err != nil {
				errs <- fmt.Errorf("rank %d: %w", rank, err)
			}
		}(r)
	}

	var out bytes.Buffer
	host := base
	host.Rank = 0
	host.Stdout = &out
	if err := Run(ctx, host); err != nil {
		errs <- fmt.Errorf("rank 0: %w", err)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	return out.String()
}

func TestRunManualGroup(t *testing.T) {
	out := runManualGroup(t, 3, Options{}, nil)
	checkReport(t, out)
}

func TestRunManualGroupTLS(t *testing.T) {
	caFile := filepath.Join(t.TempDir(), "hub.pem")

	// ranks may only load the certificate once rank 0 has written it
	waitForCert := func() {
		deadline := time.Now().Add(30 * time.Second)
		for time.Now().Before(deadline) {
			if _, err := collective.ClientCredentials(caFile); err == nil {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
	}

	out := runManualGroup(t, 3, Options{TLS: true, CAFile: caFile}, waitForCert)
	checkReport(t, out)
}

func TestRunSpawnsRanks(t *testing.T) {
	if testing.Short() {
		t.Skip("re-executes the test binary")
	}
	t.Setenv(helperEnv, "1")
	sizes := make([]string, len(testSizes))
	for i, n := range testSizes {
		sizes[i] = strconv.Itoa(n)
	}
	t.Setenv(sizesEnv, strings.Join(sizes, ","))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var out bytes.Buffer
	err := Run(ctx, Options{
		Procs:     3,
		Transport: TransportGRPC,
		Rank:      -1,
		Hub:       "127.0.0.1:0",
		LogLevel:  "disabled",
		Sizes:     testSizes,
		Stdout:    &out,
		Stderr:    os.Stderr,
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	checkReport(t, out.String())
}
