package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"

	"github.com/rvcas/noway/internal/cdx"
)

func openMemBucket(t *testing.T) *blob.Bucket {
	t.Helper()
	bucket, err := blob.OpenBucket(context.Background(), "mem://")
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	t.Cleanup(func() { bucket.Close() })
	return bucket
}

// snapshotServer serves capture bodies keyed by the timestamp segment of
// the replay path. Timestamps in fail get a 500.
func snapshotServer(t *testing.T, fail map[string]bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts := timestampFromPath(r.URL.Path)
		if fail[ts] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "<html>capture %s</html>", ts)
	}))
}

func timestampFromPath(path string) string {
	rest := strings.TrimPrefix(path, "/web/")
	ts, _, _ := strings.Cut(rest, "/")
	return ts
}

func makeSnapshots(n int) []cdx.Snapshot {
	snaps := make([]cdx.Snapshot, 0, n)
	for i := 0; i < n; i++ {
		snaps = append(snaps, cdx.Snapshot{
			Timestamp: fmt.Sprintf("2009010100%04d", i),
			Original:  fmt.Sprintf("http://example.com/page%d", i),
		})
	}
	return snaps
}

func listKeys(t *testing.T, bucket *blob.Bucket) []string {
	t.Helper()
	var keys []string
	iter := bucket.List(nil)
	for {
		obj, err := iter.Next(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("list bucket: %v", err)
		}
		keys = append(keys, obj.Key)
	}
	return keys
}

func TestFetchAllSucceed(t *testing.T) {
	server := snapshotServer(t, nil)
	defer server.Close()

	bucket := openMemBucket(t)
	snaps := makeSnapshots(3)

	summary, err := Fetch(context.Background(), snaps, bucket, Options{
		Workers:   2,
		ReplayURL: server.URL + "/web",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if summary.Attempted != 3 || summary.Saved != 3 || summary.Failed != 0 {
		t.Fatalf("summary = %d/%d/%d, want 3/3/0", summary.Attempted, summary.Saved, summary.Failed)
	}

	keys := listKeys(t, bucket)
	if len(keys) != 3 {
		t.Fatalf("bucket has %d objects, want 3", len(keys))
	}

	for _, snap := range snaps {
		data, err := bucket.ReadAll(context.Background(), snap.FileName())
		if err != nil {
			t.Fatalf("read %s: %v", snap.FileName(), err)
		}
		want := fmt.Sprintf("<html>capture %s</html>", snap.Timestamp)
		if string(data) != want {
			t.Errorf("content of %s = %q, want %q", snap.FileName(), data, want)
		}
	}
}

func TestFetchPartialFailure(t *testing.T) {
	snaps := makeSnapshots(3)
	server := snapshotServer(t, map[string]bool{snaps[1].Timestamp: true})
	defer server.Close()

	bucket := openMemBucket(t)

	summary, err := Fetch(context.Background(), snaps, bucket, Options{
		Workers:   2,
		ReplayURL: server.URL + "/web",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if summary.Saved != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %d saved, %d failed, want 2 saved, 1 failed", summary.Saved, summary.Failed)
	}

	if len(summary.Failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(summary.Failures))
	}
	failure := summary.Failures[0]
	if failure.Snapshot.Timestamp != snaps[1].Timestamp {
		t.Errorf("failure timestamp = %q, want %q", failure.Snapshot.Timestamp, snaps[1].Timestamp)
	}
	if failure.Err == nil {
		t.Error("failure has nil cause")
	}
	if !strings.Contains(failure.CaptureURL, snaps[1].Timestamp) {
		t.Errorf("failure capture URL %q does not reference the timestamp", failure.CaptureURL)
	}

	if keys := listKeys(t, bucket); len(keys) != 2 {
		t.Errorf("bucket has %d objects, want 2", len(keys))
	}
}

func TestFetchConcurrencyBound(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)

		// Track the high-water mark of concurrent requests.
		for {
			max := maxInFlight.Load()
			if n <= max || maxInFlight.CompareAndSwap(max, n) {
				break
			}
		}

		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(w, "<html>ok</html>")
	}))
	defer server.Close()

	bucket := openMemBucket(t)

	const workers = 5
	summary, err := Fetch(context.Background(), makeSnapshots(20), bucket, Options{
		Workers:   workers,
		ReplayURL: server.URL + "/web",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if summary.Saved != 20 {
		t.Fatalf("saved %d, want 20", summary.Saved)
	}
	if max := maxInFlight.Load(); max > workers {
		t.Errorf("observed %d concurrent fetches, limit is %d", max, workers)
	}
}

func TestFetchSequential(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			max := maxInFlight.Load()
			if n <= max || maxInFlight.CompareAndSwap(max, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		fmt.Fprint(w, "<html>ok</html>")
	}))
	defer server.Close()

	bucket := openMemBucket(t)

	summary, err := Fetch(context.Background(), makeSnapshots(6), bucket, Options{
		Workers:   1,
		ReplayURL: server.URL + "/web",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if summary.Saved != 6 {
		t.Fatalf("saved %d, want 6", summary.Saved)
	}
	if max := maxInFlight.Load(); max != 1 {
		t.Errorf("observed %d concurrent fetches with 1 worker", max)
	}
}

func TestFetchEmptyList(t *testing.T) {
	bucket := openMemBucket(t)

	summary, err := Fetch(context.Background(), nil, bucket, Options{Workers: 5})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if summary.Attempted != 0 || summary.Saved != 0 || summary.Failed != 0 {
		t.Errorf("summary = %d/%d/%d, want 0/0/0", summary.Attempted, summary.Saved, summary.Failed)
	}
	if keys := listKeys(t, bucket); len(keys) != 0 {
		t.Errorf("bucket has %d objects, want 0", len(keys))
	}
}

func TestFetchNoWorkers(t *testing.T) {
	bucket := openMemBucket(t)

	for _, workers := range []int{0, -1} {
		_, err := Fetch(context.Background(), makeSnapshots(1), bucket, Options{Workers: workers})
		if !errors.Is(err, ErrNoWorkers) {
			t.Errorf("Fetch with %d workers: error = %v, want ErrNoWorkers", workers, err)
		}
	}
}

func TestFetchOneOutcomePerSnapshot(t *testing.T) {
	snaps := makeSnapshots(10)
	fail := map[string]bool{
		snaps[2].Timestamp: true,
		snaps[5].Timestamp: true,
		snaps[9].Timestamp: true,
	}
	server := snapshotServer(t, fail)
	defer server.Close()

	bucket := openMemBucket(t)

	summary, err := Fetch(context.Background(), snaps, bucket, Options{
		Workers:   4,
		ReplayURL: server.URL + "/web",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if summary.Saved+summary.Failed != summary.Attempted {
		t.Errorf("saved %d + failed %d != attempted %d", summary.Saved, summary.Failed, summary.Attempted)
	}
	if summary.Attempted != len(snaps) {
		t.Errorf("attempted %d, want %d", summary.Attempted, len(snaps))
	}
	if summary.Failed != len(fail) {
		t.Errorf("failed %d, want %d", summary.Failed, len(fail))
	}
}

func TestFetchCancelled(t *testing.T) {
	bucket := openMemBucket(t)
	snaps := makeSnapshots(5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := Fetch(ctx, snaps, bucket, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// Every snapshot still reaches a terminal outcome.
	if summary.Failed != len(snaps) {
		t.Fatalf("failed %d, want %d", summary.Failed, len(snaps))
	}
	for _, o := range summary.Failures {
		if !errors.Is(o.Err, context.Canceled) {
			t.Errorf("failure cause = %v, want context.Canceled", o.Err)
		}
	}
}

func TestFetchDuplicateLocatorsOverwrite(t *testing.T) {
	server := snapshotServer(t, nil)
	defer server.Close()

	bucket := openMemBucket(t)
	snap := cdx.Snapshot{Timestamp: "20090101000000", Original: "http://example.com/"}

	summary, err := Fetch(context.Background(), []cdx.Snapshot{snap, snap}, bucket, Options{
		Workers:   2,
		ReplayURL: server.URL + "/web",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if summary.Saved != 2 {
		t.Fatalf("saved %d, want 2", summary.Saved)
	}
	// Identical locators derive the same name; the writes collapse to one
	// object (last-writer-wins).
	if keys := listKeys(t, bucket); len(keys) != 1 {
		t.Errorf("bucket has %d objects, want 1", len(keys))
	}
}

func TestSummaryFailedURLs(t *testing.T) {
	s := &Summary{
		Failures: []Outcome{
			{CaptureURL: "https://web.archive.org/web/1/http://a"},
			{CaptureURL: "https://web.archive.org/web/2/http://b"},
		},
	}

	urls := s.FailedURLs()
	if len(urls) != 2 {
		t.Fatalf("got %d urls, want 2", len(urls))
	}
	if urls[0] != "https://web.archive.org/web/1/http://a" {
		t.Errorf("urls[0] = %q", urls[0])
	}
}
