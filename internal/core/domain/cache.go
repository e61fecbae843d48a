package domain

import "time"

// EntryKind identifies which artifact a cache entry stores.
type EntryKind string

const (
	// KindInfo is document metadata (page count, title, dates).
	KindInfo EntryKind = "info"

	// KindPageText is extracted text for a single page (subkey = page number).
	KindPageText EntryKind = "page_text"

	// KindToc is the document outline tree.
	KindToc EntryKind = "toc"

	// KindImages is the image set for a single page (subkey = page number).
	KindImages EntryKind = "images"
)

// DefaultTTL is how long cache entries stay valid unless configured otherwise.
const DefaultTTL = 24 * time.Hour

// CachedBlob describes a fetched remote document stored on disk.
// Created on successful download, never mutated, replaced wholesale
// on re-fetch.
type CachedBlob struct {
	// Fingerprint is the SHA-256 digest of the source URL.
	Fingerprint string

	// Path is the blob file location inside the store directory.
	Path string

	// SizeBytes is the stored file size.
	SizeBytes int64

	// FetchedAt is when the blob was downloaded.
	FetchedAt time.Time
}

// CacheEntry is one persisted artifact for a document identity.
// Entries sharing an identity differ by kind and, for page-scoped
// kinds, by subkey.
type CacheEntry struct {
	// Identity is the document version this entry belongs to.
	Identity DocumentIdentity

	// Kind is the artifact type.
	Kind EntryKind

	// Subkey is the page number for page-scoped kinds, 0 otherwise.
	Subkey int

	// Payload is the JSON-encoded artifact.
	Payload []byte

	// CreatedAt is when the entry was stored.
	CreatedAt time.Time

	// ExpiresAt is when the entry stops being served.
	ExpiresAt time.Time
}

// CacheStats aggregates the current cache contents. It is derived,
// never persisted; always recomputed from entry and blob state.
type CacheStats struct {
	// Entries is the total number of index entries.
	Entries int

	// EntriesByKind counts entries per artifact kind.
	EntriesByKind map[EntryKind]int

	// BytesByKind sums payload sizes per artifact kind.
	BytesByKind map[EntryKind]int64

	// TotalBytes sums all payload sizes.
	TotalBytes int64

	// Blobs is the number of downloaded documents on disk.
	Blobs int

	// BlobBytes sums downloaded document sizes.
	BlobBytes int64
}
