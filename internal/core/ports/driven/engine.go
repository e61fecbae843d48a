package driven

import (
	"context"

	"github.com/folio-labs/folio-mcp/internal/core/domain"
)

// Engine is the external document parsing engine. The coordinator treats
// any failure from it as a classified extraction failure, never as an
// unhandled panic or bare error.
type Engine interface {
	// Open parses data into a Document handle.
	// Returns domain.ErrNotPDF when the bytes are not a PDF.
	Open(ctx context.Context, data []byte) (Document, error)
}

// Document is an opened document handle. Handles are cheap, single-request
// objects; they are not shared across requests.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int

	// Info returns document-level metadata.
	Info() (domain.DocInfo, error)

	// PageText extracts the text of one 1-based page.
	PageText(page int) (string, error)

	// Toc returns the outline tree, or an empty slice when there is none.
	Toc() ([]domain.TocEntry, error)

	// Images extracts the images embedded on one 1-based page.
	Images(page int) ([]domain.PageImage, error)

	// Close releases any resources held by the handle.
	Close() error
}
