package convert

import (
	"strings"

	"golang.org/x/net/html"
)

// skippedTags carry no page text.
var skippedTags = map[string]bool{
	"script": true, "style": true, "template": true, "noscript": true,
	"head": true, "title": true, "meta": true, "link": true,
}

var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "br": true,
	"cite": true, "code": true, "data": true, "del": true, "dfn": true,
	"em": true, "font": true, "i": true, "img": true, "ins": true, "kbd": true,
	"label": true, "mark": true, "q": true, "s": true, "samp": true,
	"small": true, "span": true, "strong": true, "sub": true, "sup": true,
	"time": true, "tt": true, "u": true, "var": true, "wbr": true,
}

var containerTags = map[string]bool{
	"html": true, "body": true, "div": true, "section": true, "article": true,
	"main": true, "aside": true, "header": true, "footer": true, "nav": true,
	"figure": true, "details": true, "center": true, "li": true, "dd": true,
	"tbody": true, "hgroup": true, "search": true,
}

var paragraphTags = map[string]bool{
	"p": true, "summary": true, "figcaption": true, "caption": true,
	"address": true, "dt": true, "legend": true,
}

// fallbackTags have no structural mapping; only their text survives.
var fallbackTags = map[string]bool{
	"svg": true, "math": true, "iframe": true, "object": true, "embed": true,
	"canvas": true, "video": true, "audio": true, "form": true,
	"fieldset": true, "select": true, "textarea": true, "button": true,
	"input": true, "output": true, "progress": true, "meter": true,
	"map": true, "picture": true,
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func isInline(n *html.Node) bool {
	if inlineTags[n.Data] {
		return true
	}
	if isKnown(n.Data) {
		return false
	}
	return !hasBlockDescendant(n)
}

func isKnown(tag string) bool {
	return inlineTags[tag] || containerTags[tag] || paragraphTags[tag] ||
		fallbackTags[tag] || skippedTags[tag] || headingLevel(tag) > 0 ||
		blockTags[tag]
}

var blockTags = map[string]bool{
	"pre": true, "ul": true, "ol": true, "dl": true, "table": true,
	"blockquote": true, "hr": true,
}

func hasBlockDescendant(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if !inlineTags[c.Data] && isKnown(c.Data) {
			return true
		}
		if hasBlockDescendant(c) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findAttr returns the first non-empty value of key on n or a descendant.
func findAttr(n *html.Node, key string) string {
	if v := attr(n, key); v != "" {
		return v
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if v := findAttr(c, key); v != "" {
			return v
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// textContent concatenates every descendant text node verbatim.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && skippedTags[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func hasDescendant(n *html.Node, tags ...string) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			for _, t := range tags {
				if c.Data == t {
					return true
				}
			}
			if hasDescendant(c, tags...) {
				return true
			}
		}
	}
	return false
}

// collapseSpace folds runs of ASCII whitespace into single spaces.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	if space {
		b.WriteByte(' ')
	}
	return b.String()
}

func flatText(n *html.Node) string {
	return strings.TrimSpace(collapseSpace(textContent(n)))
}

// codeLanguage reads language-xxx / lang-xxx classes or data-lang from a
// pre element or its inner code element.
func codeLanguage(pre *html.Node) string {
	nodes := []*html.Node{pre}
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "code" {
			nodes = append(nodes, c)
		}
	}
	for _, n := range nodes {
		for _, class := range strings.Fields(attr(n, "class")) {
			for _, prefix := range []string{"language-", "lang-"} {
				if lang, ok := strings.CutPrefix(class, prefix); ok && lang != "" {
					return lang
				}
			}
		}
	}
	for _, n := range nodes {
		if lang := strings.TrimSpace(attr(n, "data-lang")); lang != "" {
			return lang
		}
	}
	return ""
}
