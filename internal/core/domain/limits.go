package domain

// Request-bound clamps. Values above a clamp are silently capped before
// any work starts, so callers always get a bounded response.
const (
	// MaxPagesPerRequest caps the page range of a single request.
	MaxPagesPerRequest = 500

	// MaxSearchResults caps hits returned by one search.
	MaxSearchResults = 100

	// MaxSearchContext caps the context window around one hit, in runes.
	MaxSearchContext = 2000

	// MaxImagesPerRequest caps images extracted by one request.
	MaxImagesPerRequest = 50

	// MaxRedirects caps the redirect chain a fetch will follow.
	MaxRedirects = 5

	// DefaultMaxDownloadBytes caps a single download (100 MiB).
	DefaultMaxDownloadBytes = 100 * 1024 * 1024
)

// ClampLimit returns n capped to max. Non-positive n yields max's
// companion default def.
func ClampLimit(n, def, max int) int {
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
