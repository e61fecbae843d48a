package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/folio-labs/folio-mcp/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/folio-labs/folio-mcp/internal/core/domain"
	"github.com/folio-labs/folio-mcp/internal/core/ports/driven"
	"github.com/folio-labs/folio-mcp/internal/logger"
)

// Index is the SQLite-backed cache index.
type Index struct {
	db   *sql.DB
	path string
}

// Ensure Index implements the interface.
var _ driven.CacheIndex = (*Index)(nil)

// NewIndex creates (or opens) the cache index at the specified data
// directory. If dataDir is empty, defaults to ~/.folio/cache.
func NewIndex(dataDir string) (*Index, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".folio", "cache")
	}

	// Ensure directory exists, owner-only
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	idx := &Index{
		db:   db,
		path: dbPath,
	}

	if err := idx.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return idx, nil
}

// Close closes the database connection.
func (i *Index) Close() error {
	return i.db.Close()
}

// Path returns the database file path.
func (i *Index) Path() string {
	return i.path
}

// Lookup returns the payload for (identity, kind, subkey), or a miss.
// Expired rows are misses and get deleted opportunistically; read errors
// are misses too, never surfaced as hard failures.
func (i *Index) Lookup(ctx context.Context, identity domain.DocumentIdentity, kind domain.EntryKind, subkey int) ([]byte, bool) {
	row := i.db.QueryRowContext(ctx, `
		SELECT payload, expires_at FROM cache_entries
		WHERE identity = ? AND kind = ? AND subkey = ?
	`, string(identity), string(kind), subkey)

	var payload []byte
	var expiresAt time.Time
	if err := row.Scan(&payload, &expiresAt); err != nil {
		if err != sql.ErrNoRows {
			logger.Warn("cache: unreadable entry (%s/%d): %v", kind, subkey, err)
		}
		return nil, false
	}

	if !expiresAt.After(time.Now().UTC()) {
		// Lazy expiry: delete on read, the sweep catches the rest.
		if _, err := i.db.ExecContext(ctx, `
			DELETE FROM cache_entries WHERE identity = ? AND kind = ? AND subkey = ?
		`, string(identity), string(kind), subkey); err != nil {
			logger.Warn("cache: deleting expired entry: %v", err)
		}
		return nil, false
	}

	return payload, true
}

// Store upserts an entry for (identity, kind, subkey) with the given TTL.
func (i *Index) Store(ctx context.Context, identity domain.DocumentIdentity, kind domain.EntryKind, subkey int, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = domain.DefaultTTL
	}
	now := time.Now().UTC()

	_, err := i.db.ExecContext(ctx, `
		INSERT INTO cache_entries (identity, kind, subkey, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity, kind, subkey) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, string(identity), string(kind), subkey, payload, now, now.Add(ttl))

	if err != nil {
		return fmt.Errorf("storing cache entry: %w", err)
	}
	return nil
}

// Invalidate removes all entries for an identity.
func (i *Index) Invalidate(ctx context.Context, identity domain.DocumentIdentity) error {
	_, err := i.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE identity = ?", string(identity))
	if err != nil {
		return fmt.Errorf("invalidating identity: %w", err)
	}
	return nil
}

// ClearExpired deletes entries whose expiry is at or before now and
// returns exactly how many were removed.
func (i *Index) ClearExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := i.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("clearing expired entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleared entries: %w", err)
	}
	return int(n), nil
}

// ClearAll deletes every entry and returns how many were removed.
func (i *Index) ClearAll(ctx context.Context) (int, error) {
	res, err := i.db.ExecContext(ctx, "DELETE FROM cache_entries")
	if err != nil {
		return 0, fmt.Errorf("clearing cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleared entries: %w", err)
	}
	return int(n), nil
}

// Stats aggregates entry counts and payload sizes by kind.
func (i *Index) Stats(ctx context.Context) (domain.CacheStats, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT kind, COUNT(*), COALESCE(SUM(LENGTH(payload)), 0)
		FROM cache_entries GROUP BY kind
	`)
	if err != nil {
		return domain.CacheStats{}, fmt.Errorf("querying cache stats: %w", err)
	}
	defer rows.Close()

	stats := domain.CacheStats{
		EntriesByKind: make(map[domain.EntryKind]int),
		BytesByKind:   make(map[domain.EntryKind]int64),
	}
	for rows.Next() {
		var kind string
		var count int
		var bytes int64
		if err := rows.Scan(&kind, &count, &bytes); err != nil {
			return domain.CacheStats{}, fmt.Errorf("scanning cache stats: %w", err)
		}
		stats.EntriesByKind[domain.EntryKind(kind)] = count
		stats.BytesByKind[domain.EntryKind(kind)] = bytes
		stats.Entries += count
		stats.TotalBytes += bytes
	}

	if err := rows.Err(); err != nil {
		return domain.CacheStats{}, fmt.Errorf("iterating cache stats: %w", err)
	}

	return stats, nil
}

// migrate runs all pending migrations.
func (i *Index) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := i.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := i.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_cache_entries.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := i.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}
