// Package sqlite implements the persistent cache index on SQLite via the
// pure-Go modernc.org/sqlite driver. WAL mode plus a busy timeout give
// safe concurrent access from simultaneous requests; all writes are
// idempotent upserts so a benign double-compute race is harmless.
package sqlite
