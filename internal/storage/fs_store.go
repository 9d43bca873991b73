package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const probeFile = ".docexport-probe"

// FSStore is a filesystem-based Store rooted at a directory:
//
//	<root>/
//	  index.md
//	  guide/
//	    page.md
//	  search-index.json
//
// Writes go to a temporary file that is renamed into place.
type FSStore struct {
	root string
	mu   sync.RWMutex
}

// NewFSStore creates a store rooted at root. Nothing is created until
// Probe or Put.
func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

// Root returns the store's root directory.
func (s *FSStore) Root() string { return s.root }

// Probe creates the root and checks a file can be written in it.
func (s *FSStore) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.root, 0o750); err != nil {
		return fmt.Errorf("create output root %s: %w", s.root, err)
	}
	f, err := os.CreateTemp(s.root, probeFile+"-*")
	if err != nil {
		return fmt.Errorf("output root %s not writable: %w", s.root, err)
	}
	name := f.Name()
	_ = f.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("remove probe file: %w", err)
	}
	return nil
}

// Put writes data at relPath.
func (s *FSStore) Put(ctx context.Context, relPath string, data []byte) (PutResult, error) {
	if err := ctx.Err(); err != nil {
		return PutResult{}, err
	}
	rel, err := CleanPath(relPath)
	if err != nil {
		return PutResult{}, fmt.Errorf("%w: %q", err, relPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := PutResult{Path: rel, Hash: contentHash(data), Size: int64(len(data))}
	target := s.fullPath(rel)

	// #nosec G304 -- target is the cleaned path below the store root
	if existing, err := os.ReadFile(target); err == nil && contentHash(existing) == res.Hash {
		return res, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return PutResult{}, fmt.Errorf("create artifact directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-"+filepath.Base(target)+"-*")
	if err != nil {
		return PutResult{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return PutResult{}, fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return PutResult{}, fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { // #nosec G302 -- published site artifacts are world readable
		_ = os.Remove(tmpName)
		return PutResult{}, fmt.Errorf("chmod artifact: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return PutResult{}, fmt.Errorf("rename artifact: %w", err)
	}
	res.Written = true
	return res, nil
}

// Get reads the artifact at relPath.
func (s *FSStore) Get(ctx context.Context, relPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := CleanPath(relPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, relPath)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// #nosec G304 -- cleaned path below the store root
	data, err := os.ReadFile(s.fullPath(rel))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound{Path: rel}
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

// Exists checks if an artifact exists at relPath.
func (s *FSStore) Exists(ctx context.Context, relPath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	rel, err := CleanPath(relPath)
	if err != nil {
		return false, fmt.Errorf("%w: %q", err, relPath)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(s.fullPath(rel)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat artifact: %w", err)
	}
	return true, nil
}

// Delete removes the artifact at relPath and prunes emptied directories.
func (s *FSStore) Delete(ctx context.Context, relPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := CleanPath(relPath)
	if err != nil {
		return fmt.Errorf("%w: %q", err, relPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.fullPath(rel)
	if err := os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound{Path: rel}
		}
		return fmt.Errorf("delete artifact: %w", err)
	}

	rootAbs, _ := filepath.Abs(s.root)
	for dir := filepath.Dir(target); ; dir = filepath.Dir(dir) {
		abs, _ := filepath.Abs(dir)
		if abs == rootAbs || !strings.HasPrefix(abs, rootAbs) {
			break
		}
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}

// List returns stored artifact paths with extension ext, sorted.
func (s *FSStore) List(ctx context.Context, ext string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var paths []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		if ext != "" && filepath.Ext(p) != ext {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Close releases resources.
func (s *FSStore) Close() error {
	return nil
}

func (s *FSStore) fullPath(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}
