// Package fetcher downloads remote data over HTTP, with retries, rate limiting,
// and an optional on-disk response cache.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadIfChanged fetches the URL only if the ETag has changed.
	// Returns (body, newETag, changed, error). If not changed, body is nil and changed is false.
	DownloadIfChanged(ctx context.Context, url string, etag string) (io.ReadCloser, string, bool, error)
}
