// Package http provides the HTTP client used for fetching archived pages.
//
// This package handles:
//   - Connection pooling for parallel fetches
//   - A per-request timeout so a hung archive host cannot stall a worker
//   - A browser-like User-Agent
//   - Mapping non-2xx status codes to sentinel errors
//
// There is deliberately no retry logic: a failed fetch is reported as a
// failed snapshot rather than retried.
//
// # Usage
//
//	client := http.NewClient(http.DefaultOptions())
//	body, err := client.Get(ctx, captureURL)
package http
