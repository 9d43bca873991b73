// Package searchindex aggregates per-page search entries and writes them
// to index sinks.
package searchindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrDuplicateIdentity is returned when two entries share an ID.
var ErrDuplicateIdentity = errors.New("duplicate page identity")

// Entry is the search record of one page.
type Entry struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Component   string `json:"component,omitempty"`
	Version     string `json:"version,omitempty"`
	Language    string `json:"language,omitempty"`
	ReadingTime int    `json:"reading_time"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// Index collects entries from concurrent producers.
type Index struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// New returns an empty index.
func New() *Index {
	return &Index{entries: make(map[string]Entry)}
}

// Add inserts e. An entry with the same ID already present is an error
// and leaves the index unchanged.
func (ix *Index) Add(e Entry) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.entries[e.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentity, e.ID)
	}
	ix.entries[e.ID] = e
	return nil
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.entries)
}

// Entries returns all entries ordered by ID.
func (ix *Index) Entries() []Entry {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	out := make([]Entry, 0, len(ix.entries))
	for _, e := range ix.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Sink persists a complete set of entries.
type Sink interface {
	Name() string
	Write(ctx context.Context, entries []Entry) error
}

// Flush writes the ordered entries to every sink. All sinks are attempted;
// failures are joined.
func (ix *Index) Flush(ctx context.Context, sinks ...Sink) error {
	entries := ix.Entries()
	var errs []error
	for _, s := range sinks {
		if err := s.Write(ctx, entries); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
