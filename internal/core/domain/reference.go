package domain

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ReferenceKind discriminates the two forms a document reference can take.
type ReferenceKind string

const (
	// ReferenceLocal is a path to a file on the local filesystem.
	ReferenceLocal ReferenceKind = "local"

	// ReferenceRemote is an http or https URL.
	ReferenceRemote ReferenceKind = "remote"
)

// acceptedExtensions lists the document extensions a local path may carry.
var acceptedExtensions = map[string]bool{
	".pdf": true,
}

// DocumentReference is a classified input reference.
// Exactly one of Path or URL is set, according to Kind.
type DocumentReference struct {
	// Kind identifies which variant this reference is.
	Kind ReferenceKind

	// Path is the local file path. Set only for ReferenceLocal.
	Path string

	// URL is the remote location. Set only for ReferenceRemote.
	URL string
}

// Display returns a name safe to include in responses and errors.
// For local references it is the base name only; the resolved
// absolute path is never exposed.
func (r DocumentReference) Display() string {
	if r.Kind == ReferenceLocal {
		return filepath.Base(r.Path)
	}
	return r.URL
}

// ClassifyReference determines whether raw names a local file or a remote URL.
// Local paths must exist and end in an accepted document extension.
// Remote references must parse as http or https URLs.
func ClassifyReference(raw string) (DocumentReference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DocumentReference{}, fmt.Errorf("%w: empty reference", ErrInvalidReference)
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return DocumentReference{}, fmt.Errorf("%w: malformed URL", ErrInvalidReference)
		}
		return DocumentReference{Kind: ReferenceRemote, URL: raw}, nil
	}

	// Reject other schemes outright (file://, ftp://, gopher://...).
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return DocumentReference{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidReference, u.Scheme)
	}

	ext := strings.ToLower(filepath.Ext(raw))
	if !acceptedExtensions[ext] {
		return DocumentReference{}, fmt.Errorf("%w: unsupported file extension %q", ErrInvalidReference, ext)
	}

	info, err := os.Stat(raw)
	if err != nil {
		if os.IsNotExist(err) {
			return DocumentReference{}, fmt.Errorf("%w: file %q", ErrNotFound, filepath.Base(raw))
		}
		return DocumentReference{}, fmt.Errorf("checking local reference: %w", err)
	}
	if info.IsDir() {
		return DocumentReference{}, fmt.Errorf("%w: %q is a directory", ErrInvalidReference, filepath.Base(raw))
	}

	return DocumentReference{Kind: ReferenceLocal, Path: raw}, nil
}
