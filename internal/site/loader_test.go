package site

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docexport/internal/config"
)

const renderedPage = `<!DOCTYPE html>
<html><head>
<title>Install | Docs</title>
<meta name="docexport:source" content="modules/ROOT/pages/install.adoc">
<meta name="docexport:component" content="server">
<meta name="page-last-updated" content="2024-03-01">
</head><body>
<nav>menu</nav>
<article class="doc"><h1>Install</h1><p>Run the installer.</p></article>
</body></html>`

func testSiteConfig(dir string) config.SiteConfig {
	return config.SiteConfig{
		Dir:             dir,
		BaseURL:         "https://docs.example.com",
		ContentSelector: config.DefaultContentSelector,
		URLLayout:       config.URLLayoutFlat,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadPage_MetaAndContent(t *testing.T) {
	l := NewLoader(testSiteConfig(t.TempDir()))

	p, err := l.LoadPage("server/install.html", []byte(renderedPage))
	require.NoError(t, err)

	assert.Equal(t, "/server/install.html", p.URL)
	assert.Equal(t, "Install", p.Title)
	assert.Equal(t, "modules/ROOT/pages/install.adoc", p.SourcePath)
	assert.Equal(t, "server", p.Component)
	assert.Equal(t, "2024-03-01", p.Attributes["page-last-updated"])
	assert.Contains(t, p.HTML, "Run the installer.")
	assert.NotContains(t, p.HTML, "menu")
}

func TestLoadPage_ComponentVersionLayout(t *testing.T) {
	cfg := testSiteConfig(t.TempDir())
	cfg.URLLayout = config.URLLayoutComponentVersion
	l := NewLoader(cfg)

	p, err := l.LoadPage("api/2.1/intro.html", []byte(`<html><body><main><p>x</p></main></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "api", p.Component)
	assert.Equal(t, "2.1", p.Version)
	assert.Equal(t, "Intro", p.Title)
}

func TestLoadPage_SourceFrontMatterMerged(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "docs", "guide.md"), "---\ntitle: Guide\nlastmod: \"2023-12-24\"\n---\nbody\n")

	cfg := testSiteConfig(t.TempDir())
	cfg.SourceRoot = src
	l := NewLoader(cfg)

	html := `<html><head><meta name="docexport:source" content="docs/guide.md"></head><body><p>text</p></body></html>`
	p, err := l.LoadPage("guide.html", []byte(html))
	require.NoError(t, err)
	assert.Equal(t, "2023-12-24", p.Attributes["lastmod"])
	assert.Equal(t, "Guide", p.Title)
}

func TestLoader_RunFiresEventsInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.html"), `<html><body><main><p>b</p></main></body></html>`)
	writeFile(t, filepath.Join(dir, "a", "index.html"), `<html><body><main><p>a</p></main></body></html>`)
	writeFile(t, filepath.Join(dir, "_export", "skip.html"), `<html><body><p>no</p></body></html>`)
	writeFile(t, filepath.Join(dir, "style.css"), `body{}`)

	l := NewLoader(testSiteConfig(dir), filepath.Join(dir, "_export"))

	var events []string
	l.OnPageRendered(func(_ context.Context, p *Page) error {
		events = append(events, p.Identity())
		return nil
	})
	l.OnSiteAssembled(func(context.Context) error {
		events = append(events, "assembled")
		return nil
	})

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, []string{"/a/", "/b.html", "assembled"}, events)
}

func TestLoader_RunStopsOnHandlerError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.html"), `<p>a</p>`)

	l := NewLoader(testSiteConfig(dir))
	l.OnPageRendered(func(context.Context, *Page) error { return assert.AnError })
	assembled := false
	l.OnSiteAssembled(func(context.Context) error { assembled = true; return nil })

	err := l.Run(context.Background())
	require.ErrorIs(t, err, assert.AnError)
	assert.False(t, assembled)
}

func TestLoader_FileNamesWithURLDelimiters(t *testing.T) {
	dir := t.TempDir()
	page := `<html><body><main><p>x</p></main></body></html>`
	writeFile(t, filepath.Join(dir, "lang", "c.html"), page)
	writeFile(t, filepath.Join(dir, "lang", "c#.html"), page)
	writeFile(t, filepath.Join(dir, "faq", "why?.html"), page)

	pages, err := NewLoader(testSiteConfig(dir)).Pages(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(pages))
	for _, p := range pages {
		ids = append(ids, p.Identity())
	}
	assert.ElementsMatch(t, []string{"/faq/why%3F.html", "/lang/c%23.html", "/lang/c.html"}, ids)

	for _, p := range pages {
		if p.Identity() == "/faq/why%3F.html" {
			assert.Equal(t, "Why?", p.Title)
		}
	}
}
