// Package fetcher downloads archived snapshots with bounded concurrency.
//
// This package coordinates between the HTTP client and the output bucket.
// A fixed pool of workers drains the snapshot list; the pool size bounds
// the number of in-flight downloads. Failures are isolated per snapshot:
// one capture returning a server error or failing to write does not stop
// the rest of the batch.
//
// # Usage
//
// The main entry point is the Fetch function:
//
//	summary, err := fetcher.Fetch(ctx, snapshots, bucket, fetcher.Options{
//	    Workers:  5,
//	    Progress: reporter,
//	})
//
// Fetch returns an error only for invalid configuration. Everything else is
// reported through the summary: one terminal outcome per snapshot, with
// failure causes attached.
package fetcher
