package site

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/docexport/internal/config"
	"git.home.luguber.info/inful/docexport/internal/frontmatter"
	"git.home.luguber.info/inful/docexport/internal/logfields"
)

// Meta tag names read from rendered pages.
const (
	MetaSource    = "docexport:source"
	MetaComponent = "docexport:component"
	MetaVersion   = "docexport:version"
	pageAttrMeta  = "page-"
)

// Loader is a Host over a generator output directory: it reads every HTML
// file as a rendered page and fires the lifecycle events in a stable order.
type Loader struct {
	cfg     config.SiteConfig
	exclude []string
	onPage  []PageHandler
	onSite  []SiteHandler
	titler  cases.Caser
}

// NewLoader creates a loader for cfg. Directories listed in exclude (for
// example the export output directory) are skipped during discovery.
func NewLoader(cfg config.SiteConfig, exclude ...string) *Loader {
	abs := make([]string, 0, len(exclude))
	for _, e := range exclude {
		if e == "" {
			continue
		}
		if a, err := filepath.Abs(e); err == nil {
			abs = append(abs, a)
		}
	}
	return &Loader{
		cfg:     cfg,
		exclude: abs,
		titler:  cases.Title(language.Und),
	}
}

// OnPageRendered registers a page handler.
func (l *Loader) OnPageRendered(h PageHandler) { l.onPage = append(l.onPage, h) }

// OnSiteAssembled registers a site handler.
func (l *Loader) OnSiteAssembled(h SiteHandler) { l.onSite = append(l.onSite, h) }

// Run loads all pages and fires the lifecycle events. The first handler
// error aborts the run.
func (l *Loader) Run(ctx context.Context) error {
	pages, err := l.Pages(ctx)
	if err != nil {
		return err
	}
	for _, p := range pages {
		for _, h := range l.onPage {
			if err := h(ctx, p); err != nil {
				return err
			}
		}
	}
	for _, h := range l.onSite {
		if err := h(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Pages discovers and loads every HTML file under the site directory,
// ordered by path.
func (l *Loader) Pages(ctx context.Context) ([]*Page, error) {
	root := l.cfg.Dir
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve site dir: %w", err)
	}

	var files []string
	err = filepath.WalkDir(rootAbs, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if l.excluded(p) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), ".html") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk site dir %s: %w", root, err)
	}
	sort.Strings(files)

	pages := make([]*Page, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(rootAbs, f)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(f) // #nosec G304 -- path discovered under the configured site dir
		if err != nil {
			return nil, fmt.Errorf("read page %s: %w", rel, err)
		}
		p, err := l.LoadPage(filepath.ToSlash(rel), data)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	slog.Debug("Loaded rendered pages", logfields.Path(root), logfields.Count(len(pages)))
	return pages, nil
}

func (l *Loader) excluded(dir string) bool {
	for _, e := range l.exclude {
		if dir == e {
			return true
		}
	}
	return false
}

// LoadPage builds a Page from one rendered HTML document located at rel
// (slash separated, relative to the site root).
func (l *Loader) LoadPage(rel string, data []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", rel, err)
	}

	p := &Page{
		URL:        URLFromPath(rel),
		Attributes: map[string]string{},
		Metadata:   map[string]any{},
	}

	doc.Find("meta[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content, _ := s.Attr("content")
		switch {
		case name == MetaSource:
			p.SourcePath = content
		case name == MetaComponent:
			p.Component = content
		case name == MetaVersion:
			p.Version = content
		case strings.HasPrefix(name, pageAttrMeta), name == "description", name == "keywords":
			p.Attributes[name] = content
		}
	})

	if l.cfg.URLLayout == config.URLLayoutComponentVersion {
		l.applyURLLayout(p, rel)
	}
	l.mergeSourceFrontMatter(p)

	content := l.selectContent(doc)
	if content.Length() > 0 {
		p.HTML, err = content.Html()
		if err != nil {
			return nil, fmt.Errorf("render content of %s: %w", rel, err)
		}
	} else {
		p.HTML = l.extractMainContent(p.URL, data)
	}

	p.Title = l.pageTitle(doc, content, p)
	return p, nil
}

// selectContent tries each comma-separated selector in turn and returns
// the first match of the first selector that matches anything.
func (l *Loader) selectContent(doc *goquery.Document) *goquery.Selection {
	for _, sel := range strings.Split(l.cfg.ContentSelector, ",") {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		if found := doc.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	return doc.Find("body").Slice(0, 0)
}

// extractMainContent is the fallback for pages the content selector misses.
func (l *Loader) extractMainContent(pageURL string, data []byte) string {
	u, err := url.Parse(strings.TrimSuffix(l.cfg.BaseURL, "/") + pageURL)
	if err != nil {
		u = &url.URL{Path: pageURL}
	}
	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(data), u)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		return article.Content
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return string(data)
	}
	body, _ := doc.Find("body").Html()
	return body
}

func (l *Loader) pageTitle(doc *goquery.Document, content *goquery.Selection, p *Page) string {
	if t := strings.TrimSpace(content.Find("h1").First().Text()); t != "" {
		return t
	}
	if t := p.Attr("title", "page-title"); t != "" {
		return t
	}
	if t := strings.TrimSpace(doc.Find("head > title").First().Text()); t != "" {
		return t
	}
	id := Identity(p.URL)
	name := strings.TrimSuffix(path.Base(strings.TrimSuffix(id, "/")), path.Ext(id))
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if name == "" || name == "." || name == "/" {
		return "Home"
	}
	return l.titler.String(strings.NewReplacer("-", " ", "_", " ").Replace(name))
}

// applyURLLayout fills component and version from component/version/page.html.
func (l *Loader) applyURLLayout(p *Page, rel string) {
	segs := strings.Split(strings.Trim(rel, "/"), "/")
	if len(segs) < 3 {
		return
	}
	if p.Component == "" {
		p.Component = segs[0]
	}
	if p.Version == "" {
		p.Version = segs[1]
	}
}

// mergeSourceFrontMatter adds the source file's front matter to the page
// attributes. Attributes already present on the rendered page win.
func (l *Loader) mergeSourceFrontMatter(p *Page) {
	if p.SourcePath == "" || l.cfg.SourceRoot == "" {
		return
	}
	src := filepath.Join(l.cfg.SourceRoot, filepath.FromSlash(p.SourcePath))
	data, err := os.ReadFile(src) // #nosec G304 -- source path from generator metadata
	if err != nil {
		slog.Debug("Source file unavailable for front matter", logfields.Page(p.URL), logfields.Path(src), logfields.Error(err))
		return
	}
	fm, _, had, err := frontmatter.Split(data)
	if err != nil || !had {
		return
	}
	attrs, err := frontmatter.ParseAttributes(fm)
	if err != nil {
		slog.Warn("Ignoring invalid front matter", logfields.Page(p.URL), logfields.Path(src), logfields.Error(err))
		return
	}
	for k, v := range attrs {
		if _, ok := p.Attributes[k]; !ok {
			p.Attributes[k] = v
		}
	}
}
