// Package site models rendered pages and hosts the generator lifecycle
// events ("page rendered", "site assembled") the export pipeline hooks into.
package site

import (
	"context"
	"net/url"
	"path"
	"strings"
)

// Metadata keys written by the annotator for template consumption.
const (
	MetaReadingTime = "reading_time"
	MetaWordCount   = "word_count"
	MetaLastUpdated = "last_updated"
)

// Page is one URL-addressable rendered unit of the site. The generator owns
// it; the pipeline only reads it and augments Metadata.
type Page struct {
	URL        string            // site-relative URL, e.g. /guide/page.html
	HTML       string            // rendered body content
	Title      string            // page title
	Attributes map[string]string // front matter and page-* attributes
	SourcePath string            // source file, relative to the source root
	Component  string            // component name in multi-component sites
	Version    string            // component version
	Metadata   map[string]any    // computed metadata (reading time, ...)
}

// Identity returns the page's normalized identity.
func (p *Page) Identity() string {
	return Identity(p.URL)
}

// SetMeta records a computed metadata value.
func (p *Page) SetMeta(key string, value any) {
	if p.Metadata == nil {
		p.Metadata = make(map[string]any)
	}
	p.Metadata[key] = value
}

// Attr returns the first non-empty attribute among keys.
func (p *Page) Attr(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(p.Attributes[k]); v != "" {
			return v
		}
	}
	return ""
}

// Identity normalizes a page URL into its identity: the cleaned,
// slash-rooted path, with a trailing index.html folded into the directory
// form so "/a/index.html" and "/a/" name the same page. Query and fragment
// are dropped. The path is decoded except for '%', '#' and '?', which stay
// escaped so an identity parses back to itself.
func Identity(rawURL string) string {
	p := strings.TrimSpace(rawURL)
	if u, err := url.Parse(p); err == nil {
		p = pathReserved.Replace(u.Path)
	}
	if p == "" {
		return "/"
	}

	dir := strings.HasSuffix(p, "/")
	cleaned := path.Clean("/" + p)
	if base := path.Base(cleaned); base == "index.html" {
		cleaned = path.Dir(cleaned)
		dir = true
	}
	if dir && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

var pathReserved = strings.NewReplacer("%", "%25", "#", "%23", "?", "%3F")

// URLFromPath builds a site-relative URL from a slash-separated file path,
// escaping each segment.
func URLFromPath(rel string) string {
	segs := strings.Split(strings.Trim(rel, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(segs, "/")
}

// PageHandler is invoked once per rendered page.
type PageHandler func(ctx context.Context, p *Page) error

// SiteHandler is invoked once after every page has been rendered.
type SiteHandler func(ctx context.Context) error

// Host exposes the generator lifecycle events.
type Host interface {
	OnPageRendered(h PageHandler)
	OnSiteAssembled(h SiteHandler)
}
