// Package progress reports download progress and the end-of-run summary.
//
// The [Reporter] prints one line as each snapshot starts, saves, or fails,
// using atomic counters so workers can report concurrently. [PrintSummary]
// renders the final saved/failed totals with per-failure reasons.
package progress
