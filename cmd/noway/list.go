package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rvcas/noway/internal/cdx"
	"github.com/rvcas/noway/internal/config"
)

func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)

	urlFlag := fs.String("url", "", "URL to list archived versions of (or pass as positional argument)")
	match := fs.String("match", "", "Match type: exact, prefix, host or domain (default prefix)")
	configPath := fs.String("config", "", "Path to YAML config file")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: noway list [options] [url]

Print every archived snapshot of a URL, one "timestamp original-url" line
per capture, without downloading anything.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, code := loadConfig(*configPath, config.Config{
		URL:       *urlFlag,
		MatchType: *match,
	}, fs.Args())
	if code != ExitSuccess {
		return code
	}

	index := cdx.NewClient(cdx.Options{
		BaseURL:   cfg.CDXBaseURL,
		ReplayURL: cfg.ReplayURL,
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
	})

	snapshots, err := index.Snapshots(context.Background(), cfg.URL, cfg.MatchType)
	if err != nil {
		if errors.Is(err, cdx.ErrNoSnapshots) {
			fmt.Fprintln(os.Stderr, "Error: no snapshots found")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return ExitIndexError
	}

	for _, s := range snapshots {
		fmt.Printf("%s  %s\n", s.Timestamp, s.Original)
	}

	return ExitSuccess
}
