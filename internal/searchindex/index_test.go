package searchindex

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docexport/internal/storage"
)

func TestIndex_AddRejectsDuplicates(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Add(Entry{ID: "/a/", Title: "first"}))

	err := ix.Add(Entry{ID: "/a/", Title: "second"})
	require.ErrorIs(t, err, ErrDuplicateIdentity)
	assert.Equal(t, 1, ix.Len())
	assert.Equal(t, "first", ix.Entries()[0].Title)
}

func TestIndex_ConcurrentAddsSorted(t *testing.T) {
	ix := New()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, ix.Add(Entry{ID: fmt.Sprintf("/p%02d.html", i)}))
		}(i)
	}
	wg.Wait()

	entries := ix.Entries()
	require.Len(t, entries, 50)
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].ID, entries[i].ID)
	}
}

type failingSink struct{ err error }

func (f failingSink) Name() string                          { return "failing" }
func (f failingSink) Write(context.Context, []Entry) error { return f.err }

func TestIndex_FlushAttemptsAllSinks(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Add(Entry{ID: "/b.html"}))
	require.NoError(t, ix.Add(Entry{ID: "/a.html"}))

	store := storage.NewMemoryStore()
	err := ix.Flush(context.Background(), failingSink{err: assert.AnError}, NewJSONSink(store, "search-index.json"))
	require.ErrorIs(t, err, assert.AnError)

	data, err := store.Get(context.Background(), "search-index.json")
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, SchemaVersion, doc.Version)
	assert.Equal(t, 2, doc.Count)
	assert.Equal(t, "/a.html", doc.Entries[0].ID)
}

func TestJSONSink_EmptyIndexWritesEmptyArray(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, New().Flush(context.Background(), NewJSONSink(store, "idx.json")))

	data, err := store.Get(context.Background(), "idx.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"entries": []`)
}

func TestJSONSink_OmitsEmptyOptionalFields(t *testing.T) {
	store := storage.NewMemoryStore()
	ix := New()
	require.NoError(t, ix.Add(Entry{ID: "/", URL: "https://d.example/", Title: "Home", Content: "hi", ReadingTime: 1}))
	require.NoError(t, ix.Flush(context.Background(), NewJSONSink(store, "idx.json")))

	data, err := store.Get(context.Background(), "idx.json")
	require.NoError(t, err)
	assert.NotContains(t, string(data), "last_updated")
	assert.NotContains(t, string(data), "component")
	assert.Contains(t, string(data), `"reading_time": 1`)
}
