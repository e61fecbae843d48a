package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// DocumentIdentity keys all cached artifacts for one version of one document.
// Any change to the underlying bytes must change the identity, so stale
// entries become unreachable without an explicit delete.
type DocumentIdentity string

// Fingerprint returns the content fingerprint for a URL: the full
// SHA-256 digest of the URL string, hex encoded. It is the blob store
// key and filename stem, stable across refetches of the same URL.
func Fingerprint(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// LocalIdentity derives the identity of a local document from its resolved
// path and modification time. Touching the file yields a new identity.
func LocalIdentity(path string, modTime time.Time) DocumentIdentity {
	return hashIdentity("local", path, modTime)
}

// RemoteIdentity derives the identity of a fetched document from its URL
// fingerprint and the time the blob was fetched. A refetch yields a new
// identity.
func RemoteIdentity(fingerprint string, fetchedAt time.Time) DocumentIdentity {
	return hashIdentity("remote", fingerprint, fetchedAt)
}

func hashIdentity(scope, key string, ts time.Time) DocumentIdentity {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", scope, key, ts.UnixNano())))
	return DocumentIdentity(hex.EncodeToString(sum[:]))
}
