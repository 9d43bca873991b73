package convert

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// PlainText strips markup from rendered HTML. Element boundaries other
// than inline ones separate words, whitespace is collapsed and the result
// is NFC-normalized.
func PlainText(src string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return norm.NFC.String(strings.Join(strings.Fields(src), " "))
	}
	doc.Find("script, style, template, noscript, head").Remove()

	var b strings.Builder
	writeText(&b, doc.Selection)
	return norm.NFC.String(strings.Join(strings.Fields(b.String()), " "))
}

func writeText(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		n := c.Get(0)
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			boundary := !inlineTags[n.Data] || n.Data == "br"
			if boundary {
				b.WriteByte(' ')
			}
			writeText(b, c)
			if boundary {
				b.WriteByte(' ')
			}
		}
	})
}

// WordCount counts whitespace-separated words of the page text.
func WordCount(src string) int {
	return len(strings.Fields(PlainText(src)))
}
