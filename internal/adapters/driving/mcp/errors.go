// Package mcp provides an MCP (Model Context Protocol) server adapter for Folio.
// It lets AI assistants read, search and inspect PDF documents through the
// cached fetch pipeline.
package mcp

import "errors"

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("mcp: document service is required")
