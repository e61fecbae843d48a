package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidReference indicates the input is neither a well-formed
	// http(s) URL nor an existing local file with an accepted extension.
	ErrInvalidReference = errors.New("invalid document reference")

	// ErrNotFound indicates a local path is missing or a URL returned 404.
	ErrNotFound = errors.New("not found")

	// Fetch Errors.

	// ErrBlockedAddress indicates a URL resolves to a private, loopback,
	// link-local or otherwise reserved address and was refused.
	ErrBlockedAddress = errors.New("address blocked by fetch policy")

	// ErrTooLarge indicates a download or request parameter exceeded its cap.
	ErrTooLarge = errors.New("exceeds maximum size")

	// ErrFetchTimeout indicates the remote server did not respond in time.
	ErrFetchTimeout = errors.New("fetch timed out")

	// ErrTooManyRedirects indicates the redirect chain exceeded the cap.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrUnreachable indicates the remote server could not be reached or
	// returned a non-success status other than 404.
	ErrUnreachable = errors.New("remote server unreachable")

	// Extraction Errors.

	// ErrExtraction indicates the parsing engine failed on a document or page.
	// Always wrapped with the operation that failed, never surfaced bare.
	ErrExtraction = errors.New("extraction failed")

	// ErrNotPDF indicates fetched or opened bytes are not a PDF document.
	ErrNotPDF = errors.New("not a PDF document")

	// Cache Errors.

	// ErrCacheCorrupt indicates an index entry could not be decoded.
	// Lookups treat this as a miss; it is logged, never fatal.
	ErrCacheCorrupt = errors.New("cache entry corrupt")
)
