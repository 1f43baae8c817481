package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/fatih/color"
)

// Options configures the progress reporter.
type Options struct {
	// Total is the number of snapshots in the batch.
	Total int

	// Output is where to write progress output.
	// Default: os.Stdout
	Output io.Writer

	// Quiet suppresses per-snapshot lines; the final summary still prints.
	Quiet bool
}

// Reporter outputs human-readable download progress. All methods are safe
// for concurrent use.
type Reporter struct {
	opts Options

	mu      sync.Mutex
	started atomic.Int64
	saved   atomic.Int64
	failed  atomic.Int64
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Reporter{opts: opts}
}

// SnapshotStarted marks one snapshot download as begun.
func (r *Reporter) SnapshotStarted(captureURL string) {
	n := r.started.Add(1)
	if r.opts.Quiet {
		return
	}
	r.printf("[noway] (%d/%d) downloading: %s\n", n, r.opts.Total, captureURL)
}

// SnapshotSaved marks one snapshot as written under name.
func (r *Reporter) SnapshotSaved(name string) {
	r.saved.Add(1)
	if r.opts.Quiet {
		return
	}
	r.printf("[noway] saved: %s\n", name)
}

// SnapshotFailed marks one snapshot as failed with its cause.
func (r *Reporter) SnapshotFailed(captureURL string, err error) {
	r.failed.Add(1)
	if r.opts.Quiet {
		return
	}
	r.printf("[noway] failed: %s: %v\n", captureURL, err)
}

// Counts returns the number of saved and failed snapshots so far.
func (r *Reporter) Counts() (saved, failed int64) {
	return r.saved.Load(), r.failed.Load()
}

func (r *Reporter) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.opts.Output, format, args...)
}

// Failure describes one snapshot that could not be downloaded.
type Failure struct {
	Timestamp string
	URL       string
	Err       error
}

// PrintSummary writes the end-of-run summary: totals plus a brief reason
// for every failure.
func PrintSummary(w io.Writer, attempted, saved int, failures []Failure) {
	green := color.New(color.FgGreen).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()

	fmt.Fprintf(w, "[noway] done: %d attempted, %s, %s\n",
		attempted,
		green("%d saved", saved),
		red("%d failed", len(failures)),
	)

	for _, f := range failures {
		fmt.Fprintf(w, "[noway]   %s %s: %v\n", f.Timestamp, f.URL, f.Err)
	}
}
