package driven

import (
	"context"
	"time"
)

// FetchResult is a completed download.
type FetchResult struct {
	// Body is the full response body, bounded by the fetch cap.
	Body []byte

	// ContentType is the final response's Content-Type header.
	ContentType string

	// FinalURL is the URL the body was served from after redirects.
	FinalURL string

	// FetchedAt is when the download completed.
	FetchedAt time.Time
}

// Fetcher downloads remote documents. Implementations must validate every
// target address (including each redirect hop) against the SSRF policy
// before connecting, and must abort the moment the body exceeds maxBytes.
//
// Failures map onto domain sentinels: ErrBlockedAddress, ErrTooLarge,
// ErrFetchTimeout, ErrTooManyRedirects, ErrNotFound, ErrUnreachable.
type Fetcher interface {
	// Fetch downloads url, returning at most maxBytes of body.
	Fetch(ctx context.Context, url string, maxBytes int64) (*FetchResult, error)
}
