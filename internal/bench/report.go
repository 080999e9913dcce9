package bench

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Row is the outcome of one trial as seen by the coordinator.
type Row struct {
	Size     int
	Max      int32
	Sum      int64
	Filtered int
	Elapsed  [numOps]time.Duration
}

// Report collects the rows of every trial, in trial order.
type Report struct {
	Workers   int
	Threshold int32
	Rows      []Row
}

// WriteTo prints the timing table: one tab separated row per trial with
// seconds to four decimals.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "\nSize\tMax (s)\tSum (s)\tFilter >%d (s)\n", r.Threshold)
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "%d\t%.4f\t%.4f\t%.4f\n",
			row.Size,
			row.Elapsed[OpMax].Seconds(),
			row.Elapsed[OpSum].Seconds(),
			row.Elapsed[OpFilter].Seconds())
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
