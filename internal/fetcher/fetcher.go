package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gocloud.dev/blob"

	"github.com/rvcas/noway/internal/cdx"
	nowayhttp "github.com/rvcas/noway/internal/http"
	"github.com/rvcas/noway/internal/progress"
	"github.com/rvcas/noway/internal/store"
)

// ErrNoWorkers is returned when the worker count is not positive.
var ErrNoWorkers = errors.New("fetcher: workers must be at least 1")

// Options configures the fetch coordinator.
type Options struct {
	// Workers is the number of parallel downloads. There is no default:
	// a non-positive value is a configuration error.
	Workers int

	// ReplayURL is the prefix captures are fetched from.
	// Default: cdx.DefaultReplayURL
	ReplayURL string

	// HTTPOptions configures the HTTP client used for fetches.
	HTTPOptions nowayhttp.Options

	// Progress is an optional progress reporter.
	Progress *progress.Reporter
}

// Outcome is the terminal result of one snapshot download.
type Outcome struct {
	Snapshot   cdx.Snapshot
	CaptureURL string

	// Name is the object name the snapshot was written under, set on
	// success.
	Name string

	// Err is the cause of failure, nil on success.
	Err error
}

// Saved reports whether the snapshot was downloaded and written.
func (o Outcome) Saved() bool {
	return o.Err == nil
}

// Summary is the result of a completed batch. The coordinator always runs
// the batch to completion; only individual snapshots fail.
type Summary struct {
	Attempted int
	Saved     int
	Failed    int
	Failures  []Outcome
}

// FailedURLs returns the capture URLs of the failed snapshots.
func (s *Summary) FailedURLs() []string {
	urls := make([]string, 0, len(s.Failures))
	for _, o := range s.Failures {
		urls = append(urls, o.CaptureURL)
	}
	return urls
}

// Fetch downloads every snapshot into bucket, running at most opts.Workers
// downloads at a time. Each snapshot produces exactly one outcome: fetch
// and write errors are recorded per snapshot, never propagated as a batch
// failure. Fetch returns an error only for invalid configuration, before
// any network activity.
//
// Cancelling ctx stops new downloads from starting; snapshots that never
// ran are reported as failed with the context error as cause.
func Fetch(ctx context.Context, snapshots []cdx.Snapshot, bucket *blob.Bucket, opts Options) (*Summary, error) {
	if opts.Workers <= 0 {
		return nil, ErrNoWorkers
	}
	if opts.ReplayURL == "" {
		opts.ReplayURL = cdx.DefaultReplayURL
	}

	summary := &Summary{Attempted: len(snapshots)}
	if len(snapshots) == 0 {
		return summary, nil
	}

	client := nowayhttp.NewClient(opts.HTTPOptions)

	var (
		mu       sync.Mutex
		outcomes []Outcome
	)

	// Fixed pool of workers draining a jobs channel; the pool size is the
	// permit count, so at most opts.Workers fetches are ever in flight.
	jobs := make(chan cdx.Snapshot)
	var wg sync.WaitGroup

	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for snap := range jobs {
				o := download(ctx, client, bucket, snap, opts)

				mu.Lock()
				outcomes = append(outcomes, o)
				mu.Unlock()
			}
		}()
	}

	for _, snap := range snapshots {
		jobs <- snap
	}
	close(jobs)

	wg.Wait()

	for _, o := range outcomes {
		if o.Saved() {
			summary.Saved++
		} else {
			summary.Failed++
			summary.Failures = append(summary.Failures, o)
		}
	}

	return summary, nil
}

// download runs one snapshot end-to-end: fetch the capture, write it out.
func download(ctx context.Context, client *nowayhttp.Client, bucket *blob.Bucket, snap cdx.Snapshot, opts Options) Outcome {
	o := Outcome{
		Snapshot:   snap,
		CaptureURL: cdx.CaptureURL(opts.ReplayURL, snap),
	}

	// A cancelled batch still produces one outcome per snapshot.
	if err := ctx.Err(); err != nil {
		o.Err = err
		if opts.Progress != nil {
			opts.Progress.SnapshotFailed(o.CaptureURL, err)
		}
		return o
	}

	if opts.Progress != nil {
		opts.Progress.SnapshotStarted(o.CaptureURL)
	}

	body, err := client.Get(ctx, o.CaptureURL)
	if err != nil {
		o.Err = fmt.Errorf("fetch: %w", err)
		if opts.Progress != nil {
			opts.Progress.SnapshotFailed(o.CaptureURL, err)
		}
		return o
	}

	name := snap.FileName()
	if err := store.Save(ctx, bucket, name, body); err != nil {
		o.Err = err
		if opts.Progress != nil {
			opts.Progress.SnapshotFailed(o.CaptureURL, err)
		}
		return o
	}

	o.Name = name
	if opts.Progress != nil {
		opts.Progress.SnapshotSaved(name)
	}
	return o
}
