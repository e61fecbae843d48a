package driven

import (
	"context"
	"time"

	"github.com/folio-labs/folio-mcp/internal/core/domain"
)

// CacheIndex is the persistent index of extracted artifacts.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Lookup never errors; decode failures and expired rows are misses.
//   - Store is an idempotent upsert on (identity, kind, subkey).
type CacheIndex interface {
	// Lookup returns the payload for (identity, kind, subkey).
	// Returns (nil, false) on miss, corruption, or expiry.
	Lookup(ctx context.Context, identity domain.DocumentIdentity, kind domain.EntryKind, subkey int) ([]byte, bool)

	// Store upserts an entry with the given TTL.
	Store(ctx context.Context, identity domain.DocumentIdentity, kind domain.EntryKind, subkey int, payload []byte, ttl time.Duration) error

	// Invalidate removes all entries for an identity.
	Invalidate(ctx context.Context, identity domain.DocumentIdentity) error

	// ClearExpired deletes entries whose expiry is at or before now and
	// returns exactly how many were removed.
	ClearExpired(ctx context.Context, now time.Time) (int, error)

	// ClearAll deletes every entry and returns how many were removed.
	ClearAll(ctx context.Context) (int, error)

	// Stats aggregates entry counts and payload sizes by kind.
	Stats(ctx context.Context) (domain.CacheStats, error)
}
