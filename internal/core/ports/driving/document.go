package driving

import (
	"context"

	"github.com/folio-labs/folio-mcp/internal/core/domain"
)

// DocumentService exposes the document-processing operations backed by the
// fetch+cache subsystem. Every operation takes a source reference (local
// path or http(s) URL), serves from the persistent cache when the cached
// identity still matches the source, and populates the cache otherwise.
type DocumentService interface {
	// Info returns document metadata.
	Info(ctx context.Context, req DocumentRequest) (*InfoResult, error)

	// PageText returns extracted text for a page range.
	PageText(ctx context.Context, req PageTextRequest) (*PageTextResult, error)

	// Search finds query matches in the document's page text.
	Search(ctx context.Context, req SearchRequest) (*SearchResult, error)

	// Toc returns the document outline.
	Toc(ctx context.Context, req DocumentRequest) (*TocResult, error)

	// Images extracts images from a page range.
	Images(ctx context.Context, req ImagesRequest) (*ImagesResult, error)

	// CacheStats aggregates the current cache contents.
	CacheStats(ctx context.Context) (domain.CacheStats, error)

	// ClearCache removes expired entries, or everything (index and
	// downloaded blobs) when all is true. Returns exact removal counts.
	ClearCache(ctx context.Context, all bool) (*ClearResult, error)
}

// DocumentRequest identifies a document for a whole-document operation.
type DocumentRequest struct {
	// Source is a local path or http(s) URL.
	Source string

	// ForceRefresh re-downloads a remote document even when a prior
	// fetch is still on disk.
	ForceRefresh bool
}

// PageTextRequest asks for text over a page range.
type PageTextRequest struct {
	DocumentRequest

	// Pages is a range expression like "1-3,7". Empty means all pages.
	Pages string
}

// SearchRequest asks for text matches.
type SearchRequest struct {
	DocumentRequest

	// Query is the text to find. Matching is case-insensitive.
	Query string

	// MaxResults caps returned hits (clamped to domain.MaxSearchResults).
	MaxResults int

	// ContextChars is the snippet window around each hit
	// (clamped to domain.MaxSearchContext).
	ContextChars int
}

// ImagesRequest asks for images over a page range.
type ImagesRequest struct {
	DocumentRequest

	// Pages is a range expression like "1-3". Empty means all pages.
	Pages string

	// MaxImages caps extracted images (clamped to domain.MaxImagesPerRequest).
	MaxImages int
}

// ResultMeta is common to all document results.
type ResultMeta struct {
	// Source is the caller-safe display name, never an absolute path.
	Source string

	// FileSizeBytes is the size of the document bytes that were parsed.
	FileSizeBytes int64

	// FromCache is true when every requested artifact came from the index.
	FromCache bool
}

// InfoResult is the outcome of an Info operation.
type InfoResult struct {
	ResultMeta

	Info domain.DocInfo
}

// PageResult is the per-page outcome within a PageText operation.
// A page either has Text or an Error; partial success is reported
// page by page instead of failing the whole request.
type PageResult struct {
	Page      int
	Text      string
	FromCache bool
	Error     string
}

// PageTextResult is the outcome of a PageText operation.
type PageTextResult struct {
	ResultMeta

	PageCount int
	Pages     []PageResult
}

// SearchResult is the outcome of a Search operation.
type SearchResult struct {
	ResultMeta

	Query   string
	Matches []domain.SearchMatch

	// Truncated is true when more matches existed than were returned.
	Truncated bool
}

// TocResult is the outcome of a Toc operation.
type TocResult struct {
	ResultMeta

	Entries []domain.TocEntry
}

// PageImagesResult is the per-page outcome within an Images operation.
type PageImagesResult struct {
	Page      int
	Images    []domain.PageImage
	FromCache bool
	Error     string
}

// ImagesResult is the outcome of an Images operation.
type ImagesResult struct {
	ResultMeta

	Pages []PageImagesResult

	// Truncated is true when the image cap cut extraction short.
	Truncated bool
}

// ClearResult reports what a ClearCache call removed.
type ClearResult struct {
	// EntriesRemoved is the number of index entries deleted.
	EntriesRemoved int

	// BlobsRemoved is the number of downloaded documents deleted.
	BlobsRemoved int
}
