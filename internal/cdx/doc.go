// Package cdx queries the Wayback Machine's CDX index for archived
// snapshots of a URL.
//
// A single index query returns every known capture of a URL (or URL
// prefix/host/domain, depending on match type) as an ordered list of
// [Snapshot] locators. Locators carry just a capture timestamp and the
// original URL; the client derives the replay URL from them.
//
// # Usage
//
//	client := cdx.NewClient(cdx.DefaultOptions())
//	snaps, err := client.Snapshots(ctx, "example.com", cdx.MatchPrefix)
//	if errors.Is(err, cdx.ErrNoSnapshots) {
//	    // nothing archived for this URL
//	}
package cdx
