package cdx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Common errors.
var (
	ErrNoSnapshots      = errors.New("cdx: no snapshots found")
	ErrInvalidMatchType = errors.New("cdx: invalid match type")
)

// Match types accepted by the CDX index.
const (
	MatchExact  = "exact"
	MatchPrefix = "prefix"
	MatchHost   = "host"
	MatchDomain = "domain"
)

// ValidMatchType reports whether s is a match type the index understands.
func ValidMatchType(s string) bool {
	switch s {
	case MatchExact, MatchPrefix, MatchHost, MatchDomain:
		return true
	}
	return false
}

// Snapshot locates a single archived capture of a URL.
type Snapshot struct {
	// Timestamp is the capture time in the index's YYYYMMDDhhmmss form.
	Timestamp string

	// Original is the URL that was captured.
	Original string
}

// fileNameSanitizer maps URL characters that are unsafe in file names.
var fileNameSanitizer = strings.NewReplacer(
	"/", "_",
	":", "_",
	"?", "_",
	"&", "_",
	"=", "_",
	"#", "_",
	" ", "_",
)

// FileName derives the output file name for the snapshot. The name is a
// pure function of the locator's fields; identical locators always map to
// the same name.
func (s Snapshot) FileName() string {
	return fmt.Sprintf("%s_%s.html", s.Timestamp, fileNameSanitizer.Replace(s.Original))
}

// Options configures the CDX client.
type Options struct {
	// BaseURL is the index query endpoint.
	// Default: https://web.archive.org/cdx/search/cdx
	BaseURL string

	// ReplayURL is the prefix captures are served under.
	// Default: https://web.archive.org/web
	ReplayURL string

	// Timeout for the index query.
	// Default: 30s
	Timeout time.Duration

	// UserAgent is sent with the index query.
	UserAgent string
}

// DefaultOptions returns options pointing at the Wayback Machine.
func DefaultOptions() Options {
	return Options{
		BaseURL:   "https://web.archive.org/cdx/search/cdx",
		ReplayURL: DefaultReplayURL,
		Timeout:   30 * time.Second,
	}
}

// Client queries the CDX index for available snapshots.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a CDX client with the given options.
func NewClient(opts Options) *Client {
	def := DefaultOptions()
	if opts.BaseURL == "" {
		opts.BaseURL = def.BaseURL
	}
	if opts.ReplayURL == "" {
		opts.ReplayURL = def.ReplayURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = def.Timeout
	}

	return &Client{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// DefaultReplayURL is the prefix the Wayback Machine serves captures under.
const DefaultReplayURL = "https://web.archive.org/web"

// CaptureURL builds the replay URL for a snapshot under base.
func CaptureURL(base string, s Snapshot) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(base, "/"), s.Timestamp, s.Original)
}

// CaptureURL builds the replay URL for a snapshot.
func (c *Client) CaptureURL(s Snapshot) string {
	return CaptureURL(c.opts.ReplayURL, s)
}

// queryURL builds the index query for target and matchType.
func (c *Client) queryURL(target, matchType string) string {
	q := url.Values{}
	q.Set("url", target)
	q.Set("matchType", matchType)
	q.Set("filter", "statuscode:200")
	q.Set("output", "json")
	return c.opts.BaseURL + "?" + q.Encode()
}

// Snapshots queries the index for every capture of target and returns the
// locators in index order. The response is a JSON array of arrays: a header
// row naming the columns, then one row per capture. Column positions are
// taken from the header row rather than assumed.
func (c *Client) Snapshots(ctx context.Context, target, matchType string) ([]Snapshot, error) {
	if !ValidMatchType(matchType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMatchType, matchType)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL(target, matchType), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("query index: unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read index response: %w", err)
	}

	return parseResponse(body)
}

// parseResponse decodes the array-of-arrays index response into locators.
func parseResponse(body []byte) ([]Snapshot, error) {
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("parse index response: %w", err)
	}

	if len(rows) <= 1 {
		return nil, ErrNoSnapshots
	}

	header := rows[0]
	tsIdx, origIdx := -1, -1
	for i, col := range header {
		switch col {
		case "timestamp":
			tsIdx = i
		case "original":
			origIdx = i
		}
	}
	if tsIdx < 0 {
		return nil, errors.New("cdx: timestamp column not found in index response")
	}
	if origIdx < 0 {
		return nil, errors.New("cdx: original column not found in index response")
	}

	snapshots := make([]Snapshot, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if tsIdx >= len(row) || origIdx >= len(row) {
			return nil, fmt.Errorf("cdx: short row %d in index response", i+1)
		}
		snapshots = append(snapshots, Snapshot{
			Timestamp: row[tsIdx],
			Original:  row[origIdx],
		})
	}

	return snapshots, nil
}
