package mcp

import (
	"context"

	"github.com/folio-labs/folio-mcp/internal/core/domain"
	"github.com/folio-labs/folio-mcp/internal/core/ports/driving"
)

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	info     *driving.InfoResult
	pageText *driving.PageTextResult
	search   *driving.SearchResult
	toc      *driving.TocResult
	images   *driving.ImagesResult
	stats    domain.CacheStats
	clear    *driving.ClearResult
	err      error

	lastSearch driving.SearchRequest
	lastClear  bool
}

func (m *mockDocumentService) Info(_ context.Context, _ driving.DocumentRequest) (*driving.InfoResult, error) {
	return m.info, m.err
}

func (m *mockDocumentService) PageText(_ context.Context, _ driving.PageTextRequest) (*driving.PageTextResult, error) {
	return m.pageText, m.err
}

func (m *mockDocumentService) Search(_ context.Context, req driving.SearchRequest) (*driving.SearchResult, error) {
	m.lastSearch = req
	return m.search, m.err
}

func (m *mockDocumentService) Toc(_ context.Context, _ driving.DocumentRequest) (*driving.TocResult, error) {
	return m.toc, m.err
}

func (m *mockDocumentService) Images(_ context.Context, _ driving.ImagesRequest) (*driving.ImagesResult, error) {
	return m.images, m.err
}

func (m *mockDocumentService) CacheStats(_ context.Context) (domain.CacheStats, error) {
	return m.stats, m.err
}

func (m *mockDocumentService) ClearCache(_ context.Context, all bool) (*driving.ClearResult, error) {
	m.lastClear = all
	return m.clear, m.err
}
