package searchindex

import (
	"context"
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/docexport/internal/storage"
)

// SchemaVersion identifies the JSON index layout.
const SchemaVersion = 1

// Document is the JSON index artifact.
type Document struct {
	Version int     `json:"version"`
	Count   int     `json:"count"`
	Entries []Entry `json:"entries"`
}

// JSONSink writes the index as one JSON document into a store.
type JSONSink struct {
	store storage.Store
	path  string
}

// NewJSONSink creates a sink writing to path inside store.
func NewJSONSink(store storage.Store, path string) *JSONSink {
	return &JSONSink{store: store, path: path}
}

func (s *JSONSink) Name() string { return "json" }

func (s *JSONSink) Write(ctx context.Context, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(Document{Version: SchemaVersion, Count: len(entries), Entries: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	data = append(data, '\n')
	if _, err := s.store.Put(ctx, s.path, data); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
