// Package storage writes export artifacts below an output root.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"strings"
)

// Store holds export artifacts addressed by slash-separated paths relative
// to the store root.
type Store interface {
	// Probe verifies the root exists (creating it if needed) and is writable.
	Probe(ctx context.Context) error

	// Put writes data at relPath. Content identical to what is already
	// stored is not rewritten.
	Put(ctx context.Context, relPath string, data []byte) (PutResult, error)

	// Get reads the artifact at relPath.
	// Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, relPath string) ([]byte, error)

	// Exists checks if an artifact exists at relPath.
	Exists(ctx context.Context, relPath string) (bool, error)

	// Delete removes the artifact at relPath.
	// Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, relPath string) error

	// List returns the paths of all stored artifacts with the given
	// extension (all artifacts when ext is empty), sorted.
	List(ctx context.Context, ext string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// PutResult describes a completed Put.
type PutResult struct {
	Path    string
	Hash    string // SHA256 of the content
	Size    int64
	Written bool // false when identical content was already stored
}

// ErrNotFound is returned when an artifact doesn't exist.
type ErrNotFound struct {
	Path string
}

func (e ErrNotFound) Error() string {
	return "artifact not found: " + e.Path
}

// IsNotFound returns true if the error is ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// ErrInvalidPath is returned for paths that are absolute or escape the root.
var ErrInvalidPath = errors.New("invalid artifact path")

// CleanPath validates relPath and returns its canonical form.
func CleanPath(relPath string) (string, error) {
	p := strings.ReplaceAll(relPath, "\\", "/")
	if p == "" || strings.HasPrefix(p, "/") {
		return "", ErrInvalidPath
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", ErrInvalidPath
	}
	return p, nil
}

func contentHash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
