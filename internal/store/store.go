package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
)

// FailedLogName is the object written when any snapshot fails to download.
const FailedLogName = "failed_urls.txt"

// schemes recognized as bucket URLs; anything else is a local directory.
var schemes = []string{"s3://", "gs://", "file://", "mem://"}

// IsBucketURL reports whether dest names a bucket rather than a local path.
func IsBucketURL(dest string) bool {
	for _, s := range schemes {
		if strings.HasPrefix(dest, s) {
			return true
		}
	}
	return false
}

// DefaultDirName generates a fresh output directory name.
func DefaultDirName() string {
	return "noway-" + uuid.NewString()[:8]
}

// OpenBucket opens the output destination. Bucket URLs (s3://, gs://,
// file://, mem://) pass through to the blob driver registry; a bare path is
// created on the local filesystem and opened as a fileblob bucket.
func OpenBucket(ctx context.Context, dest string) (*blob.Bucket, error) {
	if IsBucketURL(dest) {
		bucket, err := blob.OpenBucket(ctx, dest)
		if err != nil {
			return nil, fmt.Errorf("open bucket %s: %w", dest, err)
		}
		return bucket, nil
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dest, err)
	}

	abs, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("resolve output directory %s: %w", dest, err)
	}

	// metadata=skip keeps fileblob from writing .attrs sidecar files next
	// to the snapshots.
	bucket, err := blob.OpenBucket(ctx, "file://"+filepath.ToSlash(abs)+"?metadata=skip")
	if err != nil {
		return nil, fmt.Errorf("open output directory %s: %w", dest, err)
	}
	return bucket, nil
}

// Save writes one snapshot's content under name.
// A name that already exists is overwritten.
func Save(ctx context.Context, bucket *blob.Bucket, name string, data []byte) error {
	if err := bucket.WriteAll(ctx, name, data, nil); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// WriteFailedLog records the capture URLs that failed to download, one per
// line, next to the saved snapshots.
func WriteFailedLog(ctx context.Context, bucket *blob.Bucket, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	data := []byte(strings.Join(urls, "\n") + "\n")
	if err := bucket.WriteAll(ctx, FailedLogName, data, nil); err != nil {
		return fmt.Errorf("write %s: %w", FailedLogName, err)
	}
	return nil
}
