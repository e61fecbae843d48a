// Package blob stores fetched remote documents on disk, one file per
// source URL, named by the URL's SHA-256 fingerprint. The store directory
// and every blob are owner-only; writes go through a temp file and an
// atomic rename so a concurrent reader never sees a partial blob.
package blob

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/folio-labs/folio-mcp/internal/core/domain"
	"github.com/folio-labs/folio-mcp/internal/core/ports/driven"
	"github.com/folio-labs/folio-mcp/internal/logger"
)

// tmpPrefix marks in-flight writes; Clear and Stats skip these.
const tmpPrefix = ".tmp-"

// Store is a fingerprint-keyed blob store rooted at a single directory.
type Store struct {
	dir string
}

// Ensure Store implements the interface.
var _ driven.BlobStore = (*Store)(nil)

// NewStore creates the store directory (owner-only) if needed.
// If dir is empty, defaults to ~/.folio/downloads.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".folio", "downloads")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	// MkdirAll leaves pre-existing directories' modes alone.
	if err := os.Chmod(dir, 0o700); err != nil {
		return nil, fmt.Errorf("restricting blob directory: %w", err)
	}

	return &Store{dir: dir}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Put stores data for url, replacing any existing blob for the same
// fingerprint. The write lands in a temp file first and is renamed into
// place, so Get never observes a truncated blob.
func (s *Store) Put(_ context.Context, rawURL string, data []byte) (domain.CachedBlob, error) {
	path := s.blobPath(rawURL)

	tmp := filepath.Join(s.dir, tmpPrefix+uuid.NewString())
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return domain.CachedBlob{}, fmt.Errorf("creating temp blob: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return domain.CachedBlob{}, fmt.Errorf("writing blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return domain.CachedBlob{}, fmt.Errorf("closing blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return domain.CachedBlob{}, fmt.Errorf("publishing blob: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return domain.CachedBlob{}, fmt.Errorf("stating blob: %w", err)
	}

	logger.Debug("blob: stored %d bytes for %s", len(data), rawURL)
	return domain.CachedBlob{
		Fingerprint: domain.Fingerprint(rawURL),
		Path:        path,
		SizeBytes:   info.Size(),
		FetchedAt:   info.ModTime().UTC(),
	}, nil
}

// Get returns the stored bytes for url, or domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, rawURL string) ([]byte, domain.CachedBlob, error) {
	blob, err := s.Stat(ctx, rawURL)
	if err != nil {
		return nil, domain.CachedBlob{}, err
	}
	data, err := os.ReadFile(blob.Path)
	if err != nil {
		return nil, domain.CachedBlob{}, fmt.Errorf("reading blob: %w", err)
	}
	return data, blob, nil
}

// Stat reports the blob for url without reading it.
func (s *Store) Stat(_ context.Context, rawURL string) (domain.CachedBlob, error) {
	path := s.blobPath(rawURL)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.CachedBlob{}, domain.ErrNotFound
		}
		return domain.CachedBlob{}, fmt.Errorf("stating blob: %w", err)
	}
	return domain.CachedBlob{
		Fingerprint: domain.Fingerprint(rawURL),
		Path:        path,
		SizeBytes:   info.Size(),
		FetchedAt:   info.ModTime().UTC(),
	}, nil
}

// Clear removes every blob and returns how many were deleted.
func (s *Store) Clear(_ context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("listing blobs: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), tmpPrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			logger.Warn("blob: removing %s: %v", entry.Name(), err)
			continue
		}
		count++
	}
	return count, nil
}

// Stats reports the blob count and total bytes on disk.
func (s *Store) Stats(_ context.Context) (int, int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, 0, fmt.Errorf("listing blobs: %w", err)
	}
	count := 0
	var total int64
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), tmpPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		count++
		total += info.Size()
	}
	return count, total, nil
}

// blobPath derives the deterministic on-disk path for a URL: the full
// SHA-256 fingerprint as stem, plus the sanitized original basename when
// the URL path ends in .pdf. Both parts derive from the URL alone so the
// same URL always maps to the same slot.
func (s *Store) blobPath(rawURL string) string {
	fp := domain.Fingerprint(rawURL)

	name := fp + ".pdf"
	if u, err := url.Parse(rawURL); err == nil && strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
		if safe := sanitizeFilename(filepath.Base(u.Path)); safe != "" {
			name = fp + "_" + safe
		}
	}
	return filepath.Join(s.dir, name)
}

// sanitizeFilename keeps only characters safe in a filename.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	out := b.String()
	if !strings.HasSuffix(strings.ToLower(out), ".pdf") {
		return ""
	}
	return out
}
