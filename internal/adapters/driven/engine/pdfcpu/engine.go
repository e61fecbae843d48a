// Package pdfcpu adapts the pdfcpu library to the Engine port. Handles
// are single-request objects built over an in-memory reader; nothing is
// written to disk.
package pdfcpu

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/folio-labs/folio-mcp/internal/core/domain"
	"github.com/folio-labs/folio-mcp/internal/core/ports/driven"
)

// Engine opens PDF documents with pdfcpu.
type Engine struct {
	conf *model.Configuration
}

// Ensure Engine implements the interface.
var _ driven.Engine = (*Engine)(nil)

// New creates the pdfcpu-backed engine. Validation is relaxed so mildly
// malformed documents from the wild still open.
func New() *Engine {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Engine{conf: conf}
}

// Open parses data into a document handle.
func (e *Engine) Open(_ context.Context, data []byte) (driven.Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, fmt.Errorf("%w: missing %%PDF header", domain.ErrNotPDF)
	}

	rs := bytes.NewReader(data)
	pageCount, err := api.PageCount(rs, e.conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	if pageCount < 1 {
		return nil, fmt.Errorf("%w: document has no pages", domain.ErrExtraction)
	}

	return &document{
		rs:        rs,
		conf:      e.conf,
		pageCount: pageCount,
	}, nil
}

// document is an opened PDF handle.
type document struct {
	rs        *bytes.Reader
	conf      *model.Configuration
	pageCount int
}

var _ driven.Document = (*document)(nil)

// PageCount returns the number of pages.
func (d *document) PageCount() int {
	return d.pageCount
}

// Info returns document-level metadata.
func (d *document) Info() (domain.DocInfo, error) {
	d.rewind()
	info, err := api.PDFInfo(d.rs, "", nil, false, d.conf)
	if err != nil {
		return domain.DocInfo{}, fmt.Errorf("%w: reading info: %v", domain.ErrExtraction, err)
	}

	return domain.DocInfo{
		PageCount:    d.pageCount,
		Title:        info.Title,
		Author:       info.Author,
		Subject:      info.Subject,
		Creator:      info.Creator,
		Producer:     info.Producer,
		CreationDate: info.CreationDate,
		ModDate:      info.ModificationDate,
		Encrypted:    info.Encrypted,
	}, nil
}

// PageText extracts the text of one page by decoding the text-show
// operators of its content stream.
func (d *document) PageText(page int) (string, error) {
	if page < 1 || page > d.pageCount {
		return "", fmt.Errorf("%w: page %d out of range", domain.ErrExtraction, page)
	}

	d.rewind()
	ctx, err := api.ReadValidateAndOptimize(d.rs, d.conf)
	if err != nil {
		return "", fmt.Errorf("%w: page %d content: %v", domain.ErrExtraction, page, err)
	}
	r, err := pdfcpu.ExtractPageContent(ctx, page)
	if err != nil {
		return "", fmt.Errorf("%w: page %d content: %v", domain.ErrExtraction, page, err)
	}
	if r == nil {
		return "", nil
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: page %d content: %v", domain.ErrExtraction, page, err)
	}

	return decodeTextOperators(content), nil
}

// Toc returns the outline tree, empty when the document has none.
func (d *document) Toc() ([]domain.TocEntry, error) {
	d.rewind()
	bookmarks, err := api.Bookmarks(d.rs, d.conf)
	if err != nil {
		// pdfcpu errors on documents without an outline; that is an
		// empty TOC, not an extraction failure.
		return []domain.TocEntry{}, nil
	}
	return convertBookmarks(bookmarks), nil
}

// Images extracts the images embedded on one page.
func (d *document) Images(page int) ([]domain.PageImage, error) {
	if page < 1 || page > d.pageCount {
		return nil, fmt.Errorf("%w: page %d out of range", domain.ErrExtraction, page)
	}

	d.rewind()
	pages, err := api.ExtractImagesRaw(d.rs, []string{strconv.Itoa(page)}, d.conf)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d images: %v", domain.ErrExtraction, page, err)
	}

	var images []domain.PageImage
	for _, byObj := range pages {
		for _, img := range byObj {
			data, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("%w: page %d image %s: %v", domain.ErrExtraction, page, img.Name, err)
			}
			images = append(images, domain.PageImage{
				Page:   page,
				Name:   img.Name,
				Format: img.FileType,
				Data:   data,
			})
		}
	}
	return images, nil
}

// Close releases the handle. The in-memory reader needs no cleanup.
func (d *document) Close() error {
	return nil
}

func (d *document) rewind() {
	d.rs.Seek(0, io.SeekStart) //nolint:errcheck // bytes.Reader seek cannot fail here
}

func convertBookmarks(bookmarks []pdfcpu.Bookmark) []domain.TocEntry {
	entries := make([]domain.TocEntry, 0, len(bookmarks))
	for _, b := range bookmarks {
		entries = append(entries, domain.TocEntry{
			Title:    b.Title,
			Page:     b.PageFrom,
			Children: convertBookmarks(b.Kids),
		})
	}
	return entries
}
