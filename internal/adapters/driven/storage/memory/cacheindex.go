// Package memory provides in-memory implementations of the storage ports,
// used by service tests that need an isolated cache per test case.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/folio-labs/folio-mcp/internal/core/domain"
	"github.com/folio-labs/folio-mcp/internal/core/ports/driven"
)

// Ensure CacheIndex implements the interface.
var _ driven.CacheIndex = (*CacheIndex)(nil)

// CacheIndex is an in-memory implementation of driven.CacheIndex.
type CacheIndex struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
}

// NewCacheIndex creates a new in-memory cache index.
func NewCacheIndex() *CacheIndex {
	return &CacheIndex{
		entries: make(map[string]domain.CacheEntry),
	}
}

func entryKey(identity domain.DocumentIdentity, kind domain.EntryKind, subkey int) string {
	return fmt.Sprintf("%s|%s|%d", identity, kind, subkey)
}

// Lookup returns the payload for (identity, kind, subkey), or a miss.
func (c *CacheIndex) Lookup(_ context.Context, identity domain.DocumentIdentity, kind domain.EntryKind, subkey int) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := entryKey(identity, kind, subkey)
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.ExpiresAt.After(time.Now().UTC()) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.Payload, true
}

// Store upserts an entry.
func (c *CacheIndex) Store(_ context.Context, identity domain.DocumentIdentity, kind domain.EntryKind, subkey int, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = domain.DefaultTTL
	}
	now := time.Now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entryKey(identity, kind, subkey)] = domain.CacheEntry{
		Identity:  identity,
		Kind:      kind,
		Subkey:    subkey,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	return nil
}

// Invalidate removes all entries for an identity.
func (c *CacheIndex) Invalidate(_ context.Context, identity domain.DocumentIdentity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if entry.Identity == identity {
			delete(c.entries, key)
		}
	}
	return nil
}

// ClearExpired deletes entries expired at now and returns the count.
func (c *CacheIndex) ClearExpired(_ context.Context, now time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for key, entry := range c.entries {
		if !entry.ExpiresAt.After(now.UTC()) {
			delete(c.entries, key)
			count++
		}
	}
	return count, nil
}

// ClearAll deletes every entry and returns the count.
func (c *CacheIndex) ClearAll(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := len(c.entries)
	c.entries = make(map[string]domain.CacheEntry)
	return count, nil
}

// Stats aggregates entry counts and payload sizes by kind.
func (c *CacheIndex) Stats(_ context.Context) (domain.CacheStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := domain.CacheStats{
		EntriesByKind: make(map[domain.EntryKind]int),
		BytesByKind:   make(map[domain.EntryKind]int64),
	}
	for _, entry := range c.entries {
		stats.Entries++
		stats.EntriesByKind[entry.Kind]++
		stats.BytesByKind[entry.Kind] += int64(len(entry.Payload))
		stats.TotalBytes += int64(len(entry.Payload))
	}
	return stats, nil
}
