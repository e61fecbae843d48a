// Package domain defines the core business entities for Folio.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - DocumentReference: A classified input reference (local path or URL)
//   - DocumentIdentity: The cache key for a specific version of a document
//   - CachedBlob: A fetched remote document stored on disk
//   - CacheEntry / CacheStats: Persistent cache records and their aggregates
//   - DocInfo, TocEntry, PageImage, SearchMatch: Extracted artifacts
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
