package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "gocloud.dev/blob/memblob"
)

func TestIsBucketURL(t *testing.T) {
	tests := []struct {
		dest string
		want bool
	}{
		{"s3://my-bucket", true},
		{"gs://my-bucket", true},
		{"file:///tmp/out", true},
		{"mem://", true},
		{"snapshots", false},
		{"./snapshots", false},
		{"/tmp/snapshots", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsBucketURL(tt.dest); got != tt.want {
			t.Errorf("IsBucketURL(%q) = %v, want %v", tt.dest, got, tt.want)
		}
	}
}

func TestDefaultDirName(t *testing.T) {
	a := DefaultDirName()
	b := DefaultDirName()

	if !strings.HasPrefix(a, "noway-") {
		t.Errorf("DefaultDirName() = %q, want noway- prefix", a)
	}
	if a == b {
		t.Errorf("two generated names are identical: %q", a)
	}
}

func TestOpenBucketLocalDir(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "out")

	bucket, err := OpenBucket(ctx, dir)
	if err != nil {
		t.Fatalf("OpenBucket: %v", err)
	}
	defer bucket.Close()

	// The directory is created on open.
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("output directory not created: %v", err)
	}

	if err := Save(ctx, bucket, "snap.html", []byte("<html>hi</html>")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "snap.html"))
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "<html>hi</html>" {
		t.Errorf("file content = %q, want %q", data, "<html>hi</html>")
	}
}

func TestSaveOverwrites(t *testing.T) {
	ctx := context.Background()

	bucket, err := OpenBucket(ctx, "mem://")
	if err != nil {
		t.Fatalf("OpenBucket: %v", err)
	}
	defer bucket.Close()

	if err := Save(ctx, bucket, "snap.html", []byte("first")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := Save(ctx, bucket, "snap.html", []byte("second")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := bucket.ReadAll(ctx, "snap.html")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}
}

func TestWriteFailedLog(t *testing.T) {
	ctx := context.Background()

	bucket, err := OpenBucket(ctx, "mem://")
	if err != nil {
		t.Fatalf("OpenBucket: %v", err)
	}
	defer bucket.Close()

	urls := []string{
		"https://web.archive.org/web/20090101000000/http://example.com/",
		"https://web.archive.org/web/20100615120000/http://example.com/about",
	}
	if err := WriteFailedLog(ctx, bucket, urls); err != nil {
		t.Fatalf("WriteFailedLog: %v", err)
	}

	data, err := bucket.ReadAll(ctx, FailedLogName)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	want := strings.Join(urls, "\n") + "\n"
	if string(data) != want {
		t.Errorf("log content = %q, want %q", data, want)
	}
}

func TestWriteFailedLogEmpty(t *testing.T) {
	ctx := context.Background()

	bucket, err := OpenBucket(ctx, "mem://")
	if err != nil {
		t.Fatalf("OpenBucket: %v", err)
	}
	defer bucket.Close()

	if err := WriteFailedLog(ctx, bucket, nil); err != nil {
		t.Fatalf("WriteFailedLog: %v", err)
	}

	// No failures, no log file.
	exists, err := bucket.Exists(ctx, FailedLogName)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("failed log written for an empty failure list")
	}
}
