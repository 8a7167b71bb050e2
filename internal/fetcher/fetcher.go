// Package fetcher downloads remote documents with per-host rate limiting
// and retries.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// Fetch downloads the URL fully into memory.
	Fetch(ctx context.Context, url string) ([]byte, error)
}
