package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-labs/folio-mcp/internal/core/domain"
)

func statsRequest() *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: statsURI},
	}
}

func TestHandleStatsResource(t *testing.T) {
	mock := &mockDocumentService{
		stats: domain.CacheStats{
			Entries:       4,
			EntriesByKind: map[domain.EntryKind]int{domain.KindPageText: 4},
			TotalBytes:    8192,
			Blobs:         2,
			BlobBytes:     100000,
		},
	}
	server := newTestServer(t, mock)

	result, err := server.handleStatsResource(context.Background(), statsRequest())

	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, statsURI, result.Contents[0].URI)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)

	var output CacheStatsOutput
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &output))
	assert.Equal(t, 4, output.Entries)
	assert.Equal(t, 4, output.EntriesByKind["page_text"])
	assert.Equal(t, 2, output.Blobs)
}

func TestHandleStatsResource_Error(t *testing.T) {
	mock := &mockDocumentService{err: errors.New("index unavailable")}
	server := newTestServer(t, mock)

	result, err := server.handleStatsResource(context.Background(), statsRequest())

	assert.Error(t, err)
	assert.Nil(t, result)
}
