// Package store writes downloaded snapshots to their destination.
//
// Output is storage-agnostic via gocloud.dev/blob: the default destination
// is a local directory (fileblob), but any registered bucket URL scheme
// works, so snapshots can land in S3 or GCS by passing a bucket URL as the
// output destination.
package store
