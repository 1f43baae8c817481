package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/rvcas/noway/internal/cdx"
	"github.com/rvcas/noway/internal/config"
	"github.com/rvcas/noway/internal/fetcher"
	nowayhttp "github.com/rvcas/noway/internal/http"
	"github.com/rvcas/noway/internal/progress"
	"github.com/rvcas/noway/internal/store"
)

func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)

	urlFlag := fs.String("url", "", "URL to fetch archived versions of (or pass as positional argument)")
	match := fs.String("match", "", "Match type: exact, prefix, host or domain (default prefix)")
	output := fs.String("output", "", "Output directory or bucket URL (default: generated directory name)")
	concurrency := fs.Int("concurrency", 0, "Maximum concurrent downloads (default 5)")
	configPath := fs.String("config", "", "Path to YAML config file")
	quiet := fs.Bool("quiet", false, "Suppress per-snapshot progress output")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: noway fetch [options] [url]

Query the Wayback Machine's CDX index for every archived snapshot of a URL
and download each snapshot's HTML. Individual download failures are
reported in the summary without stopping the batch; their capture URLs are
written to failed_urls.txt in the output directory.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	// An explicit -concurrency 0 is a configuration error, not a request
	// for the default.
	invalidConcurrency := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "concurrency" && *concurrency < 1 {
			invalidConcurrency = true
		}
	})
	if invalidConcurrency {
		fmt.Fprintln(os.Stderr, "Error: config: concurrency must be at least 1")
		return ExitInvalidArgs
	}

	cfg, code := loadConfig(*configPath, config.Config{
		URL:         *urlFlag,
		MatchType:   *match,
		Output:      *output,
		Concurrency: *concurrency,
		Quiet:       *quiet,
	}, fs.Args())
	if code != ExitSuccess {
		return code
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[noway] Received interrupt, shutting down...")
		cancel()
	}()

	return fetchSnapshots(ctx, cfg)
}

// loadConfig resolves configuration with flags > env > file > defaults.
// A positional argument is accepted as the target URL.
func loadConfig(configPath string, flags config.Config, positional []string) (config.Config, int) {
	cfg := config.Default()

	if configPath != "" {
		fileCfg, err := config.LoadFromFile(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return config.Config{}, ExitInvalidArgs
		}
		cfg = fileCfg
	}

	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return config.Config{}, ExitInvalidArgs
	}

	cfg = cfg.Merge(flags)

	if cfg.URL == "" && len(positional) > 0 {
		cfg.URL = positional[0]
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return config.Config{}, ExitInvalidArgs
	}

	return cfg, ExitSuccess
}

func fetchSnapshots(ctx context.Context, cfg config.Config) int {
	index := cdx.NewClient(cdx.Options{
		BaseURL:   cfg.CDXBaseURL,
		ReplayURL: cfg.ReplayURL,
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
	})

	fmt.Printf("[noway] Fetching archived URLs for %s using CDX API\n", cfg.URL)

	snapshots, err := index.Snapshots(ctx, cfg.URL, cfg.MatchType)
	if err != nil {
		if errors.Is(err, cdx.ErrNoSnapshots) {
			fmt.Fprintln(os.Stderr, "Error: no snapshots found")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return ExitIndexError
	}

	fmt.Printf("[noway] Found %d archived snapshots\n", len(snapshots))

	dest := cfg.Output
	if dest == "" {
		dest = store.DefaultDirName()
	}

	bucket, err := store.OpenBucket(ctx, dest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}
	defer bucket.Close()

	fmt.Printf("[noway] Saving snapshots to %s\n", dest)

	reporter := progress.NewReporter(progress.Options{
		Total: len(snapshots),
		Quiet: cfg.Quiet,
	})

	summary, err := fetcher.Fetch(ctx, snapshots, bucket, fetcher.Options{
		Workers:   cfg.Concurrency,
		ReplayURL: cfg.ReplayURL,
		HTTPOptions: nowayhttp.Options{
			Timeout:        cfg.Timeout,
			RequestTimeout: cfg.FetchTimeout,
			UserAgent:      cfg.UserAgent,
		},
		Progress: reporter,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	if err := store.WriteFailedLog(ctx, bucket, summary.FailedURLs()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	failures := make([]progress.Failure, 0, len(summary.Failures))
	for _, o := range summary.Failures {
		failures = append(failures, progress.Failure{
			Timestamp: o.Snapshot.Timestamp,
			URL:       o.Snapshot.Original,
			Err:       o.Err,
		})
	}
	progress.PrintSummary(os.Stdout, summary.Attempted, summary.Saved, failures)

	if summary.Failed > 0 {
		fmt.Printf("[noway] Some snapshots failed to download, see %s\n", store.FailedLogName)
	}

	return ExitSuccess
}
