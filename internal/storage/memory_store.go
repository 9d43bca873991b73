package storage

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for testing.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	calls   MemoryCalls

	// ProbeErr, when set, is returned by Probe.
	ProbeErr error
	// FailPut maps artifact paths to the error Put returns for them.
	FailPut map[string]error
}

// MemoryCalls tracks method invocations for test verification.
type MemoryCalls struct {
	Probe  int
	Put    int
	Get    int
	Exists int
	Delete int
	List   int
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Probe(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Probe++
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.ProbeErr
}

func (m *MemoryStore) Put(ctx context.Context, relPath string, data []byte) (PutResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Put++

	if err := ctx.Err(); err != nil {
		return PutResult{}, err
	}
	rel, err := CleanPath(relPath)
	if err != nil {
		return PutResult{}, fmt.Errorf("%w: %q", err, relPath)
	}
	if err := m.FailPut[rel]; err != nil {
		return PutResult{}, err
	}

	res := PutResult{Path: rel, Hash: contentHash(data), Size: int64(len(data))}
	if existing, ok := m.objects[rel]; ok && contentHash(existing) == res.Hash {
		return res, nil
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[rel] = stored
	res.Written = true
	return res, nil
}

func (m *MemoryStore) Get(ctx context.Context, relPath string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Get++

	rel, err := CleanPath(relPath)
	if err != nil {
		return nil, err
	}
	data, ok := m.objects[rel]
	if !ok {
		return nil, ErrNotFound{Path: rel}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryStore) Exists(ctx context.Context, relPath string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Exists++

	rel, err := CleanPath(relPath)
	if err != nil {
		return false, err
	}
	_, ok := m.objects[rel]
	return ok, nil
}

func (m *MemoryStore) Delete(ctx context.Context, relPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Delete++

	rel, err := CleanPath(relPath)
	if err != nil {
		return err
	}
	if _, ok := m.objects[rel]; !ok {
		return ErrNotFound{Path: rel}
	}
	delete(m.objects, rel)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, ext string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.List++

	paths := make([]string, 0, len(m.objects))
	for p := range m.objects {
		if ext == "" || path.Ext(p) == ext {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// Calls returns a snapshot of the invocation counters.
func (m *MemoryStore) Calls() MemoryCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Len returns the number of stored artifacts.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
