package export

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docexport/internal/config"
	derrors "git.home.luguber.info/inful/docexport/internal/errors"
	"git.home.luguber.info/inful/docexport/internal/linkresolve"
	"git.home.luguber.info/inful/docexport/internal/searchindex"
	"git.home.luguber.info/inful/docexport/internal/site"
	"git.home.luguber.info/inful/docexport/internal/storage"
)

func testExportConfig() config.ExportConfig {
	return config.ExportConfig{
		Enabled:         true,
		Source:          config.SourceFlag,
		OutputDir:       "out",
		BaseURLTemplate: "https://docs.example.com",
		IndexFile:       "search-index.json",
		MetadataFile:    "metadata.json",
		Concurrency:     1,
	}
}

func page(url, html string) *site.Page {
	return &site.Page{
		URL:      url,
		HTML:     html,
		Title:    strings.TrimSuffix(strings.TrimPrefix(url, "/"), ".html"),
		Metadata: map[string]any{site.MetaReadingTime: 1, site.MetaWordCount: 2},
	}
}

func fixedRunID() string { return "run-1" }

func readIndex(t *testing.T, store *storage.MemoryStore) searchindex.Document {
	t.Helper()
	data, err := store.Get(context.Background(), "search-index.json")
	require.NoError(t, err)
	var doc searchindex.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestRun_GuidePageScenario(t *testing.T) {
	store := storage.NewMemoryStore()
	c := NewController(testExportConfig(), store).WithRunID(fixedRunID)

	p := page("/guide/page.html", `<h1>Title</h1><p>See <a href="../other.html">here</a></p><pre class="language-js">const x = 1;</pre>`)
	p.Title = "Title"
	p.Metadata[site.MetaLastUpdated] = "2024-03-01T00:00:00Z"

	report, err := c.Run(context.Background(), []*site.Page{p})
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 1, report.Written)
	assert.Empty(t, report.Failures)

	data, err := store.Get(context.Background(), "guide/page.md")
	require.NoError(t, err)
	md := string(data)
	assert.True(t, strings.HasPrefix(md, "---\n"))
	assert.Contains(t, md, "url: https://docs.example.com/guide/page.html\n")
	assert.Regexp(t, `(?m)^last_updated: "?2024-03-01T00:00:00Z"?$`, md)
	assert.True(t, strings.HasSuffix(md, "# Title\n\nSee [here](https://docs.example.com/other.html)\n\n```js\nconst x = 1;\n```\n"))

	idx := readIndex(t, store)
	require.Len(t, idx.Entries, 1)
	e := idx.Entries[0]
	assert.Equal(t, "/guide/page.html", e.ID)
	assert.Equal(t, "https://docs.example.com/guide/page.html", e.URL)
	assert.Equal(t, "Title See here const x = 1;", e.Content)
	assert.Equal(t, "2024-03-01T00:00:00Z", e.LastUpdated)
}

func TestRun_DuplicateIdentityAbortsBeforeWrites(t *testing.T) {
	tests := []struct {
		name  string
		pages []*site.Page
	}{
		{"index and directory", []*site.Page{page("/a/", "<p>x</p>"), page("/a/index.html", "<p>y</p>")}},
		{"same url", []*site.Page{page("/b.html", "<p>x</p>"), page("/b.html", "<p>y</p>")}},
		{"artifact collision", []*site.Page{page("/c/d", "<p>x</p>"), page("/c/d.html", "<p>y</p>")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			report, err := NewController(testExportConfig(), store).Run(context.Background(), tt.pages)

			require.ErrorIs(t, err, ErrDuplicateIdentity)
			assert.True(t, derrors.IsCategory(err, derrors.CategoryIntegrity))
			assert.True(t, derrors.IsFatal(err))
			assert.Nil(t, report)
			assert.Zero(t, store.Calls().Put)
			assert.Zero(t, store.Calls().Probe)
		})
	}
}

func TestRun_EscapedIdentitiesStayDistinct(t *testing.T) {
	store := storage.NewMemoryStore()
	pages := []*site.Page{
		page("/lang/c.html", "<p>c</p>"),
		page(site.URLFromPath("lang/c#.html"), "<p>c sharp</p>"),
	}

	report, err := NewController(testExportConfig(), store).WithRunID(fixedRunID).Run(context.Background(), pages)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Written)

	data, err := store.Get(context.Background(), "lang/c#.md")
	require.NoError(t, err)
	assert.Contains(t, string(data), "c sharp")

	urls := map[string]string{}
	for _, e := range readIndex(t, store).Entries {
		urls[e.ID] = e.URL
	}
	assert.Equal(t, "https://docs.example.com/lang/c%23.html", urls["/lang/c%23.html"])
	assert.Equal(t, "https://docs.example.com/lang/c.html", urls["/lang/c.html"])
}

func TestRun_UnwritableOutputIsFatal(t *testing.T) {
	store := storage.NewMemoryStore()
	store.ProbeErr = fmt.Errorf("permission denied")

	_, err := NewController(testExportConfig(), store).Run(context.Background(), []*site.Page{page("/a.html", "<p>a</p>")})

	require.Error(t, err)
	assert.True(t, derrors.IsCategory(err, derrors.CategoryFileSystem))
	assert.True(t, derrors.IsFatal(err))
	assert.Zero(t, store.Calls().Put)
}

func TestRun_PageFailureIsRecordedAndSkipped(t *testing.T) {
	store := storage.NewMemoryStore()
	store.FailPut = map[string]error{"bad.md": fmt.Errorf("disk full")}

	pages := []*site.Page{page("/good.html", "<p>good</p>"), page("/bad.html", "<p>bad</p>")}
	report, err := NewController(testExportConfig(), store).Run(context.Background(), pages)
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "/bad.html", report.Failures[0].Identity)
	assert.True(t, derrors.IsCategory(report.Failures[0].Err, derrors.CategoryConversion))
	assert.Equal(t, 1, report.Written)

	idx := readIndex(t, store)
	require.Len(t, idx.Entries, 1)
	assert.Equal(t, "/good.html", idx.Entries[0].ID)

	exists, _ := store.Exists(context.Background(), "bad.md")
	assert.False(t, exists)
}

func TestRun_PanicIsRecoveredAtPageBoundary(t *testing.T) {
	store := storage.NewMemoryStore()
	resolver := linkresolve.Func(func(href, pageURL, base string) string {
		if pageURL == "/boom.html" {
			panic("resolver exploded")
		}
		return linkresolve.Resolve(href, pageURL, base)
	})
	c := NewController(testExportConfig(), store).WithResolver(resolver)

	report, err := c.Run(context.Background(), []*site.Page{page("/boom.html", "<p>x</p>"), page("/ok.html", "<p>y</p>")})
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0].Err.Error(), "resolver exploded")
	assert.Equal(t, 1, report.IndexEntries)
}

func TestRun_ConcurrentMatchesSequential(t *testing.T) {
	var pages []*site.Page
	for i := range 25 {
		pages = append(pages, page(fmt.Sprintf("/p/%02d.html", i), fmt.Sprintf("<h2>Page %d</h2><p>body %d</p>", i, i)))
	}

	seqStore := storage.NewMemoryStore()
	_, err := NewController(testExportConfig(), seqStore).Run(context.Background(), pages)
	require.NoError(t, err)

	cfg := testExportConfig()
	cfg.Concurrency = 4
	parStore := storage.NewMemoryStore()
	report, err := NewController(cfg, parStore).Run(context.Background(), pages)
	require.NoError(t, err)
	assert.Equal(t, 25, report.Exported())

	seqIndex, err := seqStore.Get(context.Background(), "search-index.json")
	require.NoError(t, err)
	parIndex, err := parStore.Get(context.Background(), "search-index.json")
	require.NoError(t, err)
	assert.Equal(t, string(seqIndex), string(parIndex))

	for _, p := range pages {
		a, err := seqStore.Get(context.Background(), ArtifactPath(p.Identity()))
		require.NoError(t, err)
		b, err := parStore.Get(context.Background(), ArtifactPath(p.Identity()))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestRun_SecondRunLeavesArtifactsUnchanged(t *testing.T) {
	store := storage.NewMemoryStore()
	pages := []*site.Page{page("/a.html", "<p>a</p>"), page("/b.html", "<p>b</p>")}
	c := NewController(testExportConfig(), store)

	_, err := c.Run(context.Background(), pages)
	require.NoError(t, err)
	report, err := c.Run(context.Background(), pages)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Written)
	assert.Equal(t, 2, report.Unchanged)
}

func TestRun_PruneRemovesStaleArtifacts(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	_, err := store.Put(ctx, "old/page.md", []byte("stale"))
	require.NoError(t, err)

	cfg := testExportConfig()
	cfg.Prune = true
	report, err := NewController(cfg, store).Run(ctx, []*site.Page{page("/new.html", "<p>n</p>")})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pruned)

	exists, _ := store.Exists(ctx, "old/page.md")
	assert.False(t, exists)
	exists, _ = store.Exists(ctx, "new.md")
	assert.True(t, exists)
	exists, _ = store.Exists(ctx, "search-index.json")
	assert.True(t, exists)
}

func TestRun_MetadataSidecar(t *testing.T) {
	store := storage.NewMemoryStore()
	p := page("/docs/", "<p>x</p>")
	p.Title = "Docs"

	_, err := NewController(testExportConfig(), store).Run(context.Background(), []*site.Page{p})
	require.NoError(t, err)

	data, err := store.Get(context.Background(), "metadata.json")
	require.NoError(t, err)
	var sidecar map[string]struct {
		Title    string         `json:"title"`
		Artifact string         `json:"artifact"`
		Metadata map[string]any `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(data, &sidecar))
	require.Contains(t, sidecar, "/docs/")
	assert.Equal(t, "Docs", sidecar["/docs/"].Title)
	assert.Equal(t, "docs/index.md", sidecar["/docs/"].Artifact)
	assert.EqualValues(t, 1, sidecar["/docs/"].Metadata[site.MetaReadingTime])
}

type constLanguage string

func (c constLanguage) Detect(string) string { return string(c) }

func TestRun_LanguageAndComponentBaseURL(t *testing.T) {
	cfg := testExportConfig()
	cfg.BaseURLTemplate = "https://docs.example.com/{component}/{version}"
	store := storage.NewMemoryStore()
	c := NewController(cfg, store).WithLanguageDetector(constLanguage("en"))

	tagged := page("/intro.html", "<p>Hallo</p>")
	tagged.Attributes = map[string]string{"page-lang": "DE"}
	tagged.Component, tagged.Version = "api", "2.0"
	plain := page("/other.html", "<p>Hello</p>")

	_, err := c.Run(context.Background(), []*site.Page{tagged, plain})
	require.NoError(t, err)

	idx := readIndex(t, store)
	require.Len(t, idx.Entries, 2)
	assert.Equal(t, "/intro.html", idx.Entries[0].ID)
	assert.Equal(t, "de", idx.Entries[0].Language)
	assert.Equal(t, "https://docs.example.com/api/2.0/intro.html", idx.Entries[0].URL)
	assert.Equal(t, "api", idx.Entries[0].Component)
	assert.Equal(t, "en", idx.Entries[1].Language)
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := storage.NewMemoryStore()

	_, err := NewController(testExportConfig(), store).Run(ctx, []*site.Page{page("/a.html", "<p>a</p>")})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.Calls().Put)
}

func TestRun_EmptySiteWritesEmptyIndex(t *testing.T) {
	store := storage.NewMemoryStore()
	report, err := NewController(testExportConfig(), store).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.IndexEntries)
	assert.Empty(t, readIndex(t, store).Entries)
}

func TestReport_Summary(t *testing.T) {
	r := &Report{RunID: "r", Written: 2, Unchanged: 1, Failures: []PageFailure{{Identity: "/x", Err: fmt.Errorf("boom")}}}
	s := r.Summary()
	assert.Equal(t, "partial", s.Outcome)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, []FailureSummary{{Page: "/x", Error: "boom"}}, s.Failures)
	assert.Equal(t, 3, r.Exported())
}
