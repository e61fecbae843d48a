package cli

import (
	"context"
	"testing"

	"github.com/folio-labs/folio-mcp/internal/core/domain"
	"github.com/folio-labs/folio-mcp/internal/core/ports/driving"
)

// stubDocumentService satisfies driving.DocumentService for command tests.
type stubDocumentService struct {
	stats domain.CacheStats
	clear *driving.ClearResult
	err   error

	clearedAll bool
}

func (s *stubDocumentService) Info(_ context.Context, _ driving.DocumentRequest) (*driving.InfoResult, error) {
	return nil, s.err
}

func (s *stubDocumentService) PageText(_ context.Context, _ driving.PageTextRequest) (*driving.PageTextResult, error) {
	return nil, s.err
}

func (s *stubDocumentService) Search(_ context.Context, _ driving.SearchRequest) (*driving.SearchResult, error) {
	return nil, s.err
}

func (s *stubDocumentService) Toc(_ context.Context, _ driving.DocumentRequest) (*driving.TocResult, error) {
	return nil, s.err
}

func (s *stubDocumentService) Images(_ context.Context, _ driving.ImagesRequest) (*driving.ImagesResult, error) {
	return nil, s.err
}

func (s *stubDocumentService) CacheStats(_ context.Context) (domain.CacheStats, error) {
	return s.stats, s.err
}

func (s *stubDocumentService) ClearCache(_ context.Context, all bool) (*driving.ClearResult, error) {
	s.clearedAll = all
	return s.clear, s.err
}

// withStubService installs a stub document service for the duration of a test
// so PersistentPreRunE skips real wiring.
func withStubService(t *testing.T, stub *stubDocumentService) {
	t.Helper()
	original := documentService
	documentService = stub
	t.Cleanup(func() { documentService = original })
}
