package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-labs/folio-mcp/internal/core/domain"
)

// setupTestIndex creates a temporary SQLite index for testing.
func setupTestIndex(t *testing.T) *Index {
	t.Helper()

	idx, err := NewIndex(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, idx)

	t.Cleanup(func() {
		assert.NoError(t, idx.Close())
	})
	return idx
}

func TestNewIndex_ErrorHandling(t *testing.T) {
	_, err := NewIndex("/invalid\x00path")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "creating cache directory")
}

func TestIndex_StoreLookup_RoundTrip(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t)
	id := domain.LocalIdentity("/docs/a.pdf", time.Now())

	payload := []byte(`{"page":1,"text":"hello"}`)
	require.NoError(t, idx.Store(ctx, id, domain.KindPageText, 1, payload, time.Hour))

	got, ok := idx.Lookup(ctx, id, domain.KindPageText, 1)
	require.True(t, ok)
	assert.Equal(t, payload, got)

	// Different subkey is a distinct entry.
	_, ok = idx.Lookup(ctx, id, domain.KindPageText, 2)
	assert.False(t, ok)

	// Different kind is a distinct entry.
	_, ok = idx.Lookup(ctx, id, domain.KindInfo, 0)
	assert.False(t, ok)
}

func TestIndex_Store_IsUpsert(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t)
	id := domain.LocalIdentity("/docs/a.pdf", time.Now())

	require.NoError(t, idx.Store(ctx, id, domain.KindInfo, 0, []byte("old"), time.Hour))
	require.NoError(t, idx.Store(ctx, id, domain.KindInfo, 0, []byte("new"), time.Hour))

	got, ok := idx.Lookup(ctx, id, domain.KindInfo, 0)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), got)

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
}

func TestIndex_Lookup_ExpiredIsMissAndDeleted(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t)
	id := domain.LocalIdentity("/docs/a.pdf", time.Now())

	require.NoError(t, idx.Store(ctx, id, domain.KindToc, 0, []byte("toc"), time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	_, ok := idx.Lookup(ctx, id, domain.KindToc, 0)
	assert.False(t, ok, "an expired payload must never be returned")

	// The lazy delete already removed it: the sweep finds nothing.
	removed, err := idx.ClearExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestIndex_Invalidate_RemovesAllKinds(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t)
	id := domain.LocalIdentity("/docs/a.pdf", time.Now())
	other := domain.LocalIdentity("/docs/b.pdf", time.Now())

	require.NoError(t, idx.Store(ctx, id, domain.KindInfo, 0, []byte("info"), time.Hour))
	require.NoError(t, idx.Store(ctx, id, domain.KindPageText, 1, []byte("p1"), time.Hour))
	require.NoError(t, idx.Store(ctx, id, domain.KindPageText, 2, []byte("p2"), time.Hour))
	require.NoError(t, idx.Store(ctx, other, domain.KindInfo, 0, []byte("other"), time.Hour))

	require.NoError(t, idx.Invalidate(ctx, id))

	for _, subkey := range []int{1, 2} {
		_, ok := idx.Lookup(ctx, id, domain.KindPageText, subkey)
		assert.False(t, ok)
	}
	_, ok := idx.Lookup(ctx, id, domain.KindInfo, 0)
	assert.False(t, ok)

	_, ok = idx.Lookup(ctx, other, domain.KindInfo, 0)
	assert.True(t, ok, "other identities are untouched")
}

func TestIndex_ClearExpired_ExactCount(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t)
	id := domain.LocalIdentity("/docs/a.pdf", time.Now())

	// 5 entries, 2 already expired.
	require.NoError(t, idx.Store(ctx, id, domain.KindPageText, 1, []byte("p1"), time.Millisecond))
	require.NoError(t, idx.Store(ctx, id, domain.KindPageText, 2, []byte("p2"), time.Millisecond))
	require.NoError(t, idx.Store(ctx, id, domain.KindPageText, 3, []byte("p3"), time.Hour))
	require.NoError(t, idx.Store(ctx, id, domain.KindToc, 0, []byte("toc"), time.Hour))
	require.NoError(t, idx.Store(ctx, id, domain.KindInfo, 0, []byte("info"), time.Hour))
	time.Sleep(10 * time.Millisecond)

	removed, err := idx.ClearExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Entries, "entries with future expiry are untouched")

	_, ok := idx.Lookup(ctx, id, domain.KindPageText, 3)
	assert.True(t, ok)
}

func TestIndex_ClearAll(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t)
	id := domain.LocalIdentity("/docs/a.pdf", time.Now())

	require.NoError(t, idx.Store(ctx, id, domain.KindInfo, 0, []byte("info"), time.Hour))
	require.NoError(t, idx.Store(ctx, id, domain.KindToc, 0, []byte("toc"), time.Hour))

	removed, err := idx.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
}

func TestIndex_Stats_ByKind(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t)
	id := domain.LocalIdentity("/docs/a.pdf", time.Now())

	require.NoError(t, idx.Store(ctx, id, domain.KindPageText, 1, []byte("aaaa"), time.Hour))
	require.NoError(t, idx.Store(ctx, id, domain.KindPageText, 2, []byte("bbbb"), time.Hour))
	require.NoError(t, idx.Store(ctx, id, domain.KindInfo, 0, []byte("cc"), time.Hour))

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, 2, stats.EntriesByKind[domain.KindPageText])
	assert.Equal(t, 1, stats.EntriesByKind[domain.KindInfo])
	assert.Equal(t, int64(8), stats.BytesByKind[domain.KindPageText])
	assert.Equal(t, int64(2), stats.BytesByKind[domain.KindInfo])
	assert.Equal(t, int64(10), stats.TotalBytes)
}

func TestIndex_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	id := domain.LocalIdentity("/docs/a.pdf", time.Now())

	idx, err := NewIndex(dir)
	require.NoError(t, err)
	require.NoError(t, idx.Store(ctx, id, domain.KindInfo, 0, []byte("persisted"), time.Hour))
	require.NoError(t, idx.Close())

	reopened, err := NewIndex(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok := reopened.Lookup(ctx, id, domain.KindInfo, 0)
	require.True(t, ok, "cache must survive process restarts")
	assert.Equal(t, []byte("persisted"), got)
}
