package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/singleflight"

	"github.com/folio-labs/folio-mcp/internal/core/domain"
	"github.com/folio-labs/folio-mcp/internal/core/ports/driven"
	"github.com/folio-labs/folio-mcp/internal/core/ports/driving"
	"github.com/folio-labs/folio-mcp/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// Defaults applied when a request leaves a knob unset.
const (
	defaultSearchResults = 20
	defaultSearchContext = 200
)

// DocumentService coordinates fetching, parsing and caching. Every
// operation resolves its source to a document identity, serves artifacts
// from the index under that identity, and falls back to the parsing
// engine only on a miss.
type DocumentService struct {
	fetcher driven.Fetcher
	blobs   driven.BlobStore
	index   driven.CacheIndex
	engine  driven.Engine

	ttl      time.Duration
	maxBytes int64

	// group collapses concurrent downloads of the same URL.
	group singleflight.Group
}

// DocumentServiceOption configures a DocumentService.
type DocumentServiceOption func(*DocumentService)

// WithTTL overrides the entry lifetime used for stored artifacts.
func WithTTL(ttl time.Duration) DocumentServiceOption {
	return func(s *DocumentService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxFetchBytes overrides the download size cap.
func WithMaxFetchBytes(n int64) DocumentServiceOption {
	return func(s *DocumentService) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	fetcher driven.Fetcher,
	blobs driven.BlobStore,
	index driven.CacheIndex,
	engine driven.Engine,
	opts ...DocumentServiceOption,
) *DocumentService {
	s := &DocumentService{
		fetcher:  fetcher,
		blobs:    blobs,
		index:    index,
		engine:   engine,
		ttl:      domain.DefaultTTL,
		maxBytes: domain.DefaultMaxDownloadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// source is a resolved document: a stable identity plus lazy access to
// the underlying bytes. Resolving a remote source may download it, but
// cache hits never force a read of the document itself.
type source struct {
	ref      domain.DocumentReference
	identity domain.DocumentIdentity
	size     int64
	data     []byte // nil until loaded
	loadFn   func(ctx context.Context) ([]byte, error)
}

func (src *source) load(ctx context.Context) ([]byte, error) {
	if src.data == nil {
		data, err := src.loadFn(ctx)
		if err != nil {
			return nil, err
		}
		src.data = data
	}
	return src.data, nil
}

func (src *source) meta(fromCache bool) driving.ResultMeta {
	return driving.ResultMeta{
		Source:        src.ref.Display(),
		FileSizeBytes: src.size,
		FromCache:     fromCache,
	}
}

// resolveSource classifies the raw reference and establishes its identity.
// Local files are identified by resolved path and mtime. Remote documents
// reuse the on-disk blob when present; a miss or ForceRefresh downloads.
func (s *DocumentService) resolveSource(ctx context.Context, req driving.DocumentRequest) (*source, error) {
	ref, err := domain.ClassifyReference(req.Source)
	if err != nil {
		return nil, err
	}

	if ref.Kind == domain.ReferenceLocal {
		return s.resolveLocal(ref)
	}
	return s.resolveRemote(ctx, ref, req.ForceRefresh)
}

func (s *DocumentService) resolveLocal(ref domain.DocumentReference) (*source, error) {
	abs, err := filepath.Abs(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: file %q", domain.ErrNotFound, ref.Display())
		}
		// Report the display name only; the resolved path stays private.
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, fmt.Errorf("checking %q: %w", ref.Display(), pathErr.Err)
		}
		return nil, fmt.Errorf("checking %q: %v", ref.Display(), err)
	}

	return &source{
		ref:      ref,
		identity: domain.LocalIdentity(abs, info.ModTime()),
		size:     info.Size(),
		loadFn: func(context.Context) ([]byte, error) {
			data, err := os.ReadFile(abs)
			if err != nil {
				return nil, fmt.Errorf("reading %q: %w", ref.Display(), err)
			}
			return data, nil
		},
	}, nil
}

func (s *DocumentService) resolveRemote(ctx context.Context, ref domain.DocumentReference, forceRefresh bool) (*source, error) {
	fingerprint := domain.Fingerprint(ref.URL)

	if !forceRefresh {
		if blob, err := s.blobs.Stat(ctx, ref.URL); err == nil {
			logger.Debug("Reusing downloaded document for %s", ref.URL)
			return &source{
				ref:      ref,
				identity: domain.RemoteIdentity(fingerprint, blob.FetchedAt),
				size:     blob.SizeBytes,
				loadFn: func(ctx context.Context) ([]byte, error) {
					data, _, err := s.blobs.Get(ctx, ref.URL)
					return data, err
				},
			}, nil
		}
	}

	// Remember the superseded identity so its artifacts can be removed
	// once the refetch succeeds.
	var stale domain.DocumentIdentity
	if forceRefresh {
		if old, err := s.blobs.Stat(ctx, ref.URL); err == nil {
			stale = domain.RemoteIdentity(fingerprint, old.FetchedAt)
		}
	}

	blob, data, err := s.download(ctx, ref)
	if err != nil {
		return nil, err
	}

	if stale != "" {
		if err := s.index.Invalidate(ctx, stale); err != nil {
			logger.Warn("Failed to invalidate stale entries for %s: %v", ref.URL, err)
		}
	}

	return &source{
		ref:      ref,
		identity: domain.RemoteIdentity(fingerprint, blob.FetchedAt),
		size:     blob.SizeBytes,
		data:     data,
		loadFn: func(ctx context.Context) ([]byte, error) {
			data, _, err := s.blobs.Get(ctx, ref.URL)
			return data, err
		},
	}, nil
}

// downloaded pairs the stored blob with its bytes so concurrent callers
// sharing one singleflight download all get a complete result.
type downloaded struct {
	blob domain.CachedBlob
	data []byte
}

func (s *DocumentService) download(ctx context.Context, ref domain.DocumentReference) (domain.CachedBlob, []byte, error) {
	v, err, _ := s.group.Do("fetch:"+ref.URL, func() (any, error) {
		logger.Debug("Downloading %s", ref.URL)
		result, err := s.fetcher.Fetch(ctx, ref.URL, s.maxBytes)
		if err != nil {
			return nil, err
		}

		// Accept when either signal says PDF; reject only when both fail.
		pdfType := strings.Contains(strings.ToLower(result.ContentType), "pdf")
		pdfMagic := bytes.HasPrefix(result.Body, []byte("%PDF"))
		if !pdfType && !pdfMagic {
			return nil, fmt.Errorf("%w: %s served content-type %q", domain.ErrNotPDF, ref.URL, result.ContentType)
		}
		if !pdfMagic {
			logger.Warn("Content-type %q for %s but the body lacks a PDF header", result.ContentType, ref.URL)
		}

		blob, err := s.blobs.Put(ctx, ref.URL, result.Body)
		if err != nil {
			return nil, fmt.Errorf("storing download: %w", err)
		}
		return downloaded{blob: blob, data: result.Body}, nil
	})
	if err != nil {
		return domain.CachedBlob{}, nil, err
	}
	d := v.(downloaded)
	return d.blob, d.data, nil
}

// openDocument loads the source bytes and hands them to the engine.
func (s *DocumentService) openDocument(ctx context.Context, src *source) (driven.Document, error) {
	data, err := src.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Open(ctx, data)
}

// getInfo returns document metadata, from the index when possible.
func (s *DocumentService) getInfo(ctx context.Context, src *source) (domain.DocInfo, bool, error) {
	if payload, ok := s.index.Lookup(ctx, src.identity, domain.KindInfo, 0); ok {
		var info domain.DocInfo
		if err := json.Unmarshal(payload, &info); err == nil {
			return info, true, nil
		}
		logger.Warn("Discarding undecodable info entry for %s", src.ref.Display())
	}

	doc, err := s.openDocument(ctx, src)
	if err != nil {
		return domain.DocInfo{}, false, err
	}
	defer doc.Close()

	info, err := doc.Info()
	if err != nil {
		return domain.DocInfo{}, false, fmt.Errorf("%w: reading metadata for %s: %v", domain.ErrExtraction, src.ref.Display(), err)
	}

	s.storeJSON(ctx, src, domain.KindInfo, 0, info)
	return info, false, nil
}

// storeJSON encodes and stores one artifact; failures are logged, never
// returned, because a broken cache must not fail the extraction itself.
func (s *DocumentService) storeJSON(ctx context.Context, src *source, kind domain.EntryKind, subkey int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		logger.Warn("Failed to encode %s entry: %v", kind, err)
		return
	}
	if err := s.index.Store(ctx, src.identity, kind, subkey, payload, s.ttl); err != nil {
		logger.Warn("Failed to store %s entry for %s: %v", kind, src.ref.Display(), err)
	}
}

// Info returns document metadata.
func (s *DocumentService) Info(ctx context.Context, req driving.DocumentRequest) (*driving.InfoResult, error) {
	src, err := s.resolveSource(ctx, req)
	if err != nil {
		return nil, err
	}

	info, fromCache, err := s.getInfo(ctx, src)
	if err != nil {
		return nil, err
	}

	return &driving.InfoResult{
		ResultMeta: src.meta(fromCache),
		Info:       info,
	}, nil
}

// PageText returns extracted text for a page range. Extraction failures
// are reported per page; one broken page never fails the request.
func (s *DocumentService) PageText(ctx context.Context, req driving.PageTextRequest) (*driving.PageTextResult, error) {
	src, err := s.resolveSource(ctx, req.DocumentRequest)
	if err != nil {
		return nil, err
	}

	info, infoCached, err := s.getInfo(ctx, src)
	if err != nil {
		return nil, err
	}

	pages, err := domain.ParsePageRange(req.Pages, info.PageCount)
	if err != nil {
		return nil, err
	}

	results, allCached, err := s.pageTexts(ctx, src, pages)
	if err != nil {
		return nil, err
	}

	return &driving.PageTextResult{
		ResultMeta: src.meta(infoCached && allCached),
		PageCount:  info.PageCount,
		Pages:      results,
	}, nil
}

// pageTexts serves the requested pages from the index and extracts the
// rest with a single engine open. The second return reports whether
// every page was a cache hit.
func (s *DocumentService) pageTexts(ctx context.Context, src *source, pages []int) ([]driving.PageResult, bool, error) {
	results := make([]driving.PageResult, len(pages))
	var missing []int

	for i, page := range pages {
		if payload, ok := s.index.Lookup(ctx, src.identity, domain.KindPageText, page); ok {
			var pt domain.PageText
			if err := json.Unmarshal(payload, &pt); err == nil {
				results[i] = driving.PageResult{Page: page, Text: pt.Text, FromCache: true}
				continue
			}
			logger.Warn("Discarding undecodable text entry for %s page %d", src.ref.Display(), page)
		}
		missing = append(missing, page)
	}

	if len(missing) == 0 {
		return results, true, nil
	}
	logger.Debug("Extracting %d of %d pages for %s", len(missing), len(pages), src.ref.Display())

	doc, err := s.openDocument(ctx, src)
	if err != nil {
		return nil, false, err
	}
	defer doc.Close()

	index := make(map[int]int, len(pages))
	for i, page := range pages {
		index[page] = i
	}

	var failures error
	for _, page := range missing {
		text, err := doc.PageText(page)
		if err != nil {
			failures = multierror.Append(failures, fmt.Errorf("page %d: %w", page, err))
			results[index[page]] = driving.PageResult{
				Page:  page,
				Error: fmt.Sprintf("%v: %v", domain.ErrExtraction, err),
			}
			continue
		}
		s.storeJSON(ctx, src, domain.KindPageText, page, domain.PageText{Page: page, Text: text})
		results[index[page]] = driving.PageResult{Page: page, Text: text}
	}
	if failures != nil {
		logger.Warn("Partial extraction for %s: %v", src.ref.Display(), failures)
	}

	return results, false, nil
}

// Search finds query matches in the document's page text. Pages are
// extracted through the same cached path PageText uses, so repeated
// searches over one document parse it at most once.
func (s *DocumentService) Search(ctx context.Context, req driving.SearchRequest) (*driving.SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", domain.ErrInvalidReference)
	}
	maxResults := domain.ClampLimit(req.MaxResults, defaultSearchResults, domain.MaxSearchResults)
	contextChars := domain.ClampLimit(req.ContextChars, defaultSearchContext, domain.MaxSearchContext)

	src, err := s.resolveSource(ctx, req.DocumentRequest)
	if err != nil {
		return nil, err
	}

	info, infoCached, err := s.getInfo(ctx, src)
	if err != nil {
		return nil, err
	}

	pages, err := domain.ParsePageRange("", info.PageCount)
	if err != nil {
		return nil, err
	}

	results, allCached, err := s.pageTexts(ctx, src, pages)
	if err != nil {
		return nil, err
	}

	var matches []domain.SearchMatch
	truncated := false
	for _, pr := range results {
		if pr.Error != "" {
			continue
		}
		hits, more := searchPage(pr.Page, pr.Text, query, contextChars, maxResults-len(matches))
		matches = append(matches, hits...)
		if more {
			truncated = true
			break
		}
	}

	return &driving.SearchResult{
		ResultMeta: src.meta(infoCached && allCached),
		Query:      query,
		Matches:    matches,
		Truncated:  truncated,
	}, nil
}

// searchPage finds case-insensitive matches of query in text, returning
// at most limit hits and whether any further match was cut off. Offsets
// and the context window are rune based.
func searchPage(page int, text, query string, contextChars, limit int) ([]domain.SearchMatch, bool) {
	runes := []rune(text)
	q := []rune(query)
	if len(q) == 0 || len(q) > len(runes) {
		return nil, false
	}

	// Budget exhausted on an earlier page. Report truncation only if
	// this page actually holds another match.
	if limit <= 0 {
		for i := 0; i+len(q) <= len(runes); i++ {
			if runesEqualFold(runes[i:i+len(q)], q) {
				return nil, true
			}
		}
		return nil, false
	}

	var matches []domain.SearchMatch
	for i := 0; i+len(q) <= len(runes); i++ {
		if !runesEqualFold(runes[i:i+len(q)], q) {
			continue
		}
		if len(matches) == limit {
			return matches, true
		}

		lo := i - contextChars/2
		if lo < 0 {
			lo = 0
		}
		hi := i + len(q) + contextChars/2
		if hi > len(runes) {
			hi = len(runes)
		}
		matches = append(matches, domain.SearchMatch{
			Page:    page,
			Offset:  i,
			Context: string(runes[lo:hi]),
		})
		i += len(q) - 1
	}
	return matches, false
}

func runesEqualFold(a, b []rune) bool {
	for i := range b {
		if unicode.ToLower(a[i]) != unicode.ToLower(b[i]) {
			return false
		}
	}
	return true
}

// Toc returns the document outline.
func (s *DocumentService) Toc(ctx context.Context, req driving.DocumentRequest) (*driving.TocResult, error) {
	src, err := s.resolveSource(ctx, req)
	if err != nil {
		return nil, err
	}

	if payload, ok := s.index.Lookup(ctx, src.identity, domain.KindToc, 0); ok {
		var entries []domain.TocEntry
		if err := json.Unmarshal(payload, &entries); err == nil {
			return &driving.TocResult{ResultMeta: src.meta(true), Entries: entries}, nil
		}
		logger.Warn("Discarding undecodable toc entry for %s", src.ref.Display())
	}

	doc, err := s.openDocument(ctx, src)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	entries, err := doc.Toc()
	if err != nil {
		return nil, fmt.Errorf("%w: reading outline for %s: %v", domain.ErrExtraction, src.ref.Display(), err)
	}
	if entries == nil {
		entries = []domain.TocEntry{}
	}

	s.storeJSON(ctx, src, domain.KindToc, 0, entries)
	return &driving.TocResult{ResultMeta: src.meta(false), Entries: entries}, nil
}

// Images extracts images from a page range, capped across the whole
// request. Like text, failures are reported per page.
func (s *DocumentService) Images(ctx context.Context, req driving.ImagesRequest) (*driving.ImagesResult, error) {
	maxImages := domain.ClampLimit(req.MaxImages, domain.MaxImagesPerRequest, domain.MaxImagesPerRequest)

	src, err := s.resolveSource(ctx, req.DocumentRequest)
	if err != nil {
		return nil, err
	}

	info, infoCached, err := s.getInfo(ctx, src)
	if err != nil {
		return nil, err
	}

	pages, err := domain.ParsePageRange(req.Pages, info.PageCount)
	if err != nil {
		return nil, err
	}

	cached := make(map[int][]domain.PageImage)
	var missing []int
	for _, page := range pages {
		if payload, ok := s.index.Lookup(ctx, src.identity, domain.KindImages, page); ok {
			var images []domain.PageImage
			if err := json.Unmarshal(payload, &images); err == nil {
				cached[page] = images
				continue
			}
			logger.Warn("Discarding undecodable image entry for %s page %d", src.ref.Display(), page)
		}
		missing = append(missing, page)
	}

	var doc driven.Document
	if len(missing) > 0 {
		doc, err = s.openDocument(ctx, src)
		if err != nil {
			return nil, err
		}
		defer doc.Close()
	}

	missingSet := make(map[int]bool, len(missing))
	for _, page := range missing {
		missingSet[page] = true
	}

	results := make([]driving.PageImagesResult, 0, len(pages))
	total := 0
	truncated := false
	var failures error
	for _, page := range pages {
		if total >= maxImages {
			truncated = true
			break
		}

		var (
			images    []domain.PageImage
			fromCache bool
		)
		if missingSet[page] {
			images, err = doc.Images(page)
			if err != nil {
				failures = multierror.Append(failures, fmt.Errorf("page %d: %w", page, err))
				results = append(results, driving.PageImagesResult{
					Page:  page,
					Error: fmt.Sprintf("%v: %v", domain.ErrExtraction, err),
				})
				continue
			}
			s.storeJSON(ctx, src, domain.KindImages, page, images)
		} else {
			images = cached[page]
			fromCache = true
		}

		if total+len(images) > maxImages {
			images = images[:maxImages-total]
			truncated = true
		}
		total += len(images)
		results = append(results, driving.PageImagesResult{Page: page, Images: images, FromCache: fromCache})
	}
	if failures != nil {
		logger.Warn("Partial image extraction for %s: %v", src.ref.Display(), failures)
	}

	return &driving.ImagesResult{
		ResultMeta: src.meta(infoCached && len(missing) == 0),
		Pages:      results,
		Truncated:  truncated,
	}, nil
}

// CacheStats aggregates the current cache contents.
func (s *DocumentService) CacheStats(ctx context.Context) (domain.CacheStats, error) {
	stats, err := s.index.Stats(ctx)
	if err != nil {
		return domain.CacheStats{}, fmt.Errorf("reading index stats: %w", err)
	}

	blobs, blobBytes, err := s.blobs.Stats(ctx)
	if err != nil {
		return domain.CacheStats{}, fmt.Errorf("reading blob stats: %w", err)
	}

	stats.Blobs = blobs
	stats.BlobBytes = blobBytes
	return stats, nil
}

// ClearCache removes expired entries, or everything when all is true.
func (s *DocumentService) ClearCache(ctx context.Context, all bool) (*driving.ClearResult, error) {
	if !all {
		removed, err := s.index.ClearExpired(ctx, time.Now())
		if err != nil {
			return nil, fmt.Errorf("clearing expired entries: %w", err)
		}
		logger.Debug("Removed %d expired cache entries", removed)
		return &driving.ClearResult{EntriesRemoved: removed}, nil
	}

	entries, err := s.index.ClearAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("clearing index: %w", err)
	}
	blobs, err := s.blobs.Clear(ctx)
	if err != nil {
		return nil, fmt.Errorf("clearing downloads: %w", err)
	}
	logger.Debug("Cleared cache: %d entries, %d downloads", entries, blobs)
	return &driving.ClearResult{EntriesRemoved: entries, BlobsRemoved: blobs}, nil
}
