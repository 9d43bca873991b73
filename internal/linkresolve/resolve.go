// Package linkresolve turns hrefs found in rendered pages into absolute,
// site-correct URLs.
package linkresolve

import (
	"net/url"
	"path"
	"strings"
)

// Resolver resolves href as found on the page at currentPageURL.
type Resolver interface {
	Resolve(href, currentPageURL, siteBaseURL string) string
}

// Func adapts a plain function to the Resolver interface.
type Func func(href, currentPageURL, siteBaseURL string) string

// Resolve calls f.
func (f Func) Resolve(href, currentPageURL, siteBaseURL string) string {
	return f(href, currentPageURL, siteBaseURL)
}

// Default is the standard resolver.
var Default Resolver = Func(Resolve)

// Resolve returns the absolute URL for href. Rules, in order:
//   - href with a scheme (or protocol-relative) is returned unchanged
//   - fragment-only href resolves against the current page's absolute URL
//   - otherwise href is relative to the current page's directory (or to the
//     site root when it starts with "/") and joined with siteBaseURL
//
// Malformed input is returned unchanged.
func Resolve(href, currentPageURL, siteBaseURL string) string {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" {
		return href
	}

	ref, err := url.Parse(trimmed)
	if err != nil {
		return href
	}
	if ref.Scheme != "" || strings.HasPrefix(trimmed, "//") {
		return href
	}

	base, err := url.Parse(strings.TrimSpace(siteBaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return href
	}

	page, err := url.Parse(strings.TrimSpace(currentPageURL))
	if err != nil {
		return href
	}
	// An absolute page URL on another host still resolves against its path.
	pagePath := page.Path
	if !strings.HasPrefix(pagePath, "/") {
		pagePath = "/" + pagePath
	}

	basePath := strings.TrimSuffix(base.Path, "/")

	var sitePath string
	switch {
	case ref.Path == "" && ref.RawQuery == "":
		// Fragment only (or empty path with fragment): the page itself.
		sitePath = pagePath
	case strings.HasPrefix(ref.Path, "/"):
		sitePath = cleanPath(ref.Path)
	case ref.Path == "":
		sitePath = pagePath
	default:
		sitePath = cleanPath(path.Join(pageDir(pagePath), ref.Path), ref.Path)
	}

	out := url.URL{
		Scheme:   base.Scheme,
		User:     base.User,
		Host:     base.Host,
		Path:     basePath + sitePath,
		RawQuery: ref.RawQuery,
		Fragment: ref.Fragment,
	}
	if ref.RawQuery == "" && ref.Path == "" {
		out.RawQuery = page.RawQuery
	}
	return out.String()
}

// pageDir returns the directory portion of a page path ("/a/b.html" -> "/a/",
// "/a/" -> "/a/").
func pageDir(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	dir := path.Dir(p)
	if dir == "/" {
		return "/"
	}
	return dir + "/"
}

// cleanPath normalizes "." and ".." segments, never climbing above the root,
// and keeps a trailing slash when the original reference had one.
func cleanPath(joined string, original ...string) string {
	trailing := strings.HasSuffix(joined, "/")
	if len(original) > 0 {
		o := original[0]
		trailing = strings.HasSuffix(o, "/") || o == "." || o == ".." ||
			strings.HasSuffix(o, "/.") || strings.HasSuffix(o, "/..")
	}
	cleaned := path.Clean("/" + joined)
	if trailing && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}
