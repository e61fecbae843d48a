package driven

import (
	"context"

	"github.com/folio-labs/folio-mcp/internal/core/domain"
)

// BlobStore persists fetched remote documents on disk, keyed by the
// fingerprint of their source URL. Writes are atomic: a concurrent
// reader never observes a partially written blob.
type BlobStore interface {
	// Put stores data for url, replacing any previous blob for the
	// same fingerprint.
	Put(ctx context.Context, url string, data []byte) (domain.CachedBlob, error)

	// Get returns the stored bytes for url.
	// Returns domain.ErrNotFound when no blob exists.
	Get(ctx context.Context, url string) ([]byte, domain.CachedBlob, error)

	// Stat reports the blob for url without reading its contents.
	// Returns domain.ErrNotFound when no blob exists.
	Stat(ctx context.Context, url string) (domain.CachedBlob, error)

	// Clear removes all blobs and returns the number removed.
	Clear(ctx context.Context) (int, error)

	// Stats reports the blob count and total size on disk.
	Stats(ctx context.Context) (count int, totalBytes int64, err error)
}
