package convert

import (
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docexport/internal/linkresolve"
	"git.home.luguber.info/inful/docexport/internal/logfields"
)

// Context carries what the converter needs to make links absolute.
type Context struct {
	PageURL  string
	BaseURL  string
	Resolver linkresolve.Resolver
}

// Convert walks rendered HTML and produces its portable document. It never
// fails: input that cannot be walked degrades to a single Fallback block.
func Convert(src string, ctx Context) (doc *Document) {
	doc = &Document{Identity: ctx.PageURL}
	if ctx.Resolver == nil {
		ctx.Resolver = linkresolve.Default
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("HTML conversion degraded to fallback", logfields.Page(ctx.PageURL), slog.Any("panic", r))
			doc.Blocks = fallbackBlocks(src)
		}
	}()

	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		doc.Blocks = fallbackBlocks(src)
		return doc
	}
	c := &converter{ctx: ctx}
	doc.Blocks = c.blocks(findBody(root))
	return doc
}

func fallbackBlocks(src string) []Block {
	text := strings.TrimSpace(collapseSpace(src))
	if text == "" {
		return nil
	}
	return []Block{&Fallback{Text: text}}
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	if n.Type == html.DocumentNode {
		return n
	}
	return nil
}

type converter struct {
	ctx Context
}

func (c *converter) resolve(href string) string {
	return c.ctx.Resolver.Resolve(strings.TrimSpace(href), c.ctx.PageURL, c.ctx.BaseURL)
}

// blocks converts the children of parent. Text and inline elements between
// block elements form implicit paragraphs.
func (c *converter) blocks(parent *html.Node) []Block {
	var out []Block
	var para []Inline
	flush := func() {
		if runs := normalizeInlines(para); len(runs) > 0 {
			out = append(out, &Paragraph{Inlines: runs})
		}
		para = nil
	}

	for n := parent.FirstChild; n != nil; n = n.NextSibling {
		switch n.Type {
		case html.TextNode:
			para = append(para, Inline{Kind: InlineText, Text: collapseSpace(n.Data)})
		case html.ElementNode:
			if skippedTags[n.Data] {
				continue
			}
			if n.Data == "img" && standaloneImage(para, n) {
				flush()
				if img := c.image(n); img != nil {
					out = append(out, img)
				}
				continue
			}
			if isInline(n) {
				para = c.inline(para, n)
				continue
			}
			flush()
			out = append(out, c.block(n)...)
		}
	}
	flush()
	return out
}

// standaloneImage reports whether img stands alone between block
// boundaries, with no text around it.
func standaloneImage(para []Inline, img *html.Node) bool {
	if len(normalizeInlines(para)) > 0 {
		return false
	}
	for s := img.NextSibling; s != nil; s = s.NextSibling {
		switch s.Type {
		case html.TextNode:
			if strings.TrimSpace(s.Data) != "" {
				return false
			}
		case html.ElementNode:
			if skippedTags[s.Data] {
				continue
			}
			return !isInline(s)
		}
	}
	return true
}

func (c *converter) image(n *html.Node) *Image {
	src := strings.TrimSpace(attr(n, "src"))
	if src == "" {
		return nil
	}
	return &Image{Alt: strings.TrimSpace(attr(n, "alt")), Src: c.resolve(src)}
}

func (c *converter) block(n *html.Node) []Block {
	tag := n.Data
	if level := headingLevel(tag); level > 0 {
		if runs := c.inlines(n); len(runs) > 0 {
			return []Block{&Heading{Level: level, Inlines: runs}}
		}
		return nil
	}

	switch {
	case tag == "pre":
		return []Block{&CodeBlock{Language: codeLanguage(n), Text: textContent(n)}}
	case tag == "ul" || tag == "ol":
		return []Block{c.list(n, tag == "ol")}
	case tag == "dl":
		return c.definitionList(n)
	case tag == "table":
		return c.table(n)
	case tag == "blockquote":
		return []Block{&Quote{Blocks: c.blocks(n)}}
	case tag == "hr":
		return []Block{&Rule{}}
	case paragraphTags[tag]:
		if runs := c.inlines(n); len(runs) > 0 {
			return []Block{&Paragraph{Inlines: runs}}
		}
		return nil
	case containerTags[tag]:
		return c.blocks(n)
	case fallbackTags[tag]:
		if text := flatText(n); text != "" {
			return []Block{&Fallback{Text: text}}
		}
		return nil
	case !isKnown(tag) && hasBlockDescendant(n):
		return c.blocks(n)
	default:
		if text := flatText(n); text != "" {
			return []Block{&Fallback{Text: text}}
		}
		return nil
	}
}

func (c *converter) list(n *html.Node, ordered bool) *List {
	l := &List{Ordered: ordered}
	if ordered {
		l.Start = listStart(n)
	}
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || skippedTags[li.Data] {
			continue
		}
		if li.Data == "li" {
			l.Items = append(l.Items, ListItem{Blocks: c.blocks(li)})
			continue
		}
		if bs := c.block(li); len(bs) > 0 {
			l.Items = append(l.Items, ListItem{Blocks: bs})
		}
	}
	return l
}

// listStart reads the start attribute of an ordered list. CommonMark
// ordinals have at most nine digits.
func listStart(ol *html.Node) int {
	v, err := strconv.Atoi(strings.TrimSpace(attr(ol, "start")))
	if err != nil || v < 0 || v > 999999999 {
		return 1
	}
	return v
}

func (c *converter) definitionList(n *html.Node) []Block {
	var out []Block
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for d := n.FirstChild; d != nil; d = d.NextSibling {
			if d.Type != html.ElementNode {
				continue
			}
			switch d.Data {
			case "dt":
				if term := flatText(d); term != "" {
					out = append(out, &Paragraph{Inlines: []Inline{{Kind: InlineStrong, Text: term}}})
				}
			case "dd":
				out = append(out, c.blocks(d)...)
			case "div":
				walk(d)
			}
		}
	}
	walk(n)
	return out
}

// tableRow is one tr with its cells, in document order.
type tableRow struct {
	cells []*html.Node
	head  bool
}

func (r tableRow) allHeader() bool {
	for _, td := range r.cells {
		if td.Data != "th" {
			return false
		}
	}
	return true
}

// tableRows collects the rows of a table, skipping nested tables, and its
// caption elements.
func tableRows(n *html.Node) (rows []tableRow, captions []*html.Node) {
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, inHead bool) {
		for r := n.FirstChild; r != nil; r = r.NextSibling {
			if r.Type != html.ElementNode {
				continue
			}
			switch r.Data {
			case "caption":
				captions = append(captions, r)
			case "thead":
				walk(r, true)
			case "tbody", "tfoot":
				walk(r, false)
			case "tr":
				row := tableRow{head: inHead}
				for td := r.FirstChild; td != nil; td = td.NextSibling {
					if td.Type == html.ElementNode && (td.Data == "td" || td.Data == "th") {
						row.cells = append(row.cells, td)
					}
				}
				if len(row.cells) > 0 {
					rows = append(rows, row)
				}
			}
		}
	}
	walk(n, false)
	return rows, captions
}

// table maps a table element. Asciidoctor lays out admonitions, callout
// lists and horizontal definition lists as tables; those become the block
// they stand for. A single-row table with block content is treated as
// layout too. Other tables become a grid of flattened cell text, with code
// listings found in cells emitted after the grid.
func (c *converter) table(n *html.Node) []Block {
	rows, captions := tableRows(n)
	var out []Block
	for _, caption := range captions {
		if text := flatText(caption); text != "" {
			out = append(out, &Paragraph{Inlines: []Inline{{Kind: InlineText, Text: text}}})
		}
	}
	if len(rows) == 0 {
		return out
	}

	switch {
	case hasClass(n.Parent, "admonitionblock"):
		return append(out, c.admonition(n.Parent, rows))
	case hasClass(n.Parent, "colist"):
		return append(out, c.calloutList(rows))
	case hasClass(n.Parent, "hdlist"):
		return append(out, c.horizontalList(rows)...)
	case len(rows) == 1 && !rows[0].head && !rows[0].allHeader() && anyBlockCell(rows[0].cells):
		for _, td := range rows[0].cells {
			out = append(out, c.blocks(td)...)
		}
		return out
	}

	t := &Table{}
	var listings []Block
	for _, r := range rows {
		cells := make([]string, 0, len(r.cells))
		for _, td := range r.cells {
			text, code := c.cell(td)
			cells = append(cells, text)
			listings = append(listings, code...)
		}
		if t.Header == nil && len(t.Rows) == 0 && (r.head || r.allHeader()) {
			t.Header = cells
			continue
		}
		t.Rows = append(t.Rows, cells)
	}
	out = append(out, t)
	return append(out, listings...)
}

func anyBlockCell(cells []*html.Node) bool {
	for _, td := range cells {
		if hasBlockDescendant(td) {
			return true
		}
	}
	return false
}

// cell flattens a grid cell. Block boundaries separate words; pre elements
// are lifted out as code blocks instead of being flattened.
func (c *converter) cell(td *html.Node) (string, []Block) {
	var b strings.Builder
	var code []Block
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			switch ch.Type {
			case html.TextNode:
				b.WriteString(ch.Data)
				continue
			case html.ElementNode:
			default:
				continue
			}
			if skippedTags[ch.Data] {
				continue
			}
			if ch.Data == "pre" {
				code = append(code, c.block(ch)...)
				b.WriteByte(' ')
				continue
			}
			boundary := !inlineTags[ch.Data] || ch.Data == "br"
			if boundary {
				b.WriteByte(' ')
			}
			walk(ch)
			if boundary {
				b.WriteByte(' ')
			}
		}
	}
	walk(td)
	return strings.TrimSpace(collapseSpace(b.String())), code
}

// admonition renders a NOTE/TIP/WARNING block as a quote led by its label.
func (c *converter) admonition(block *html.Node, rows []tableRow) Block {
	q := &Quote{}
	var label string
	var content []*html.Node
	for _, r := range rows {
		for _, td := range r.cells {
			if hasClass(td, "icon") {
				label = admonitionLabel(block, td)
				continue
			}
			content = append(content, td)
		}
	}
	if label == "" {
		label = admonitionLabel(block, nil)
	}
	if label != "" {
		q.Blocks = append(q.Blocks, &Paragraph{Inlines: []Inline{{Kind: InlineStrong, Text: label}}})
	}
	for _, td := range content {
		q.Blocks = append(q.Blocks, c.blocks(td)...)
	}
	return q
}

// admonitionLabel prefers the icon's title or alt text, then the icon
// cell's text, then the admonition type named in the block's class.
func admonitionLabel(block, icon *html.Node) string {
	if icon != nil {
		for _, key := range []string{"title", "alt"} {
			if v := strings.TrimSpace(findAttr(icon, key)); v != "" {
				return v
			}
		}
		if text := flatText(icon); text != "" {
			return text
		}
	}
	for _, class := range strings.Fields(attr(block, "class")) {
		if class != "admonitionblock" {
			return strings.ToUpper(class[:1]) + class[1:]
		}
	}
	return ""
}

// calloutList maps a callout table (number cell, description cell) to an
// ordered list.
func (c *converter) calloutList(rows []tableRow) *List {
	l := &List{Ordered: true, Start: 1}
	for _, r := range rows {
		desc := r.cells[len(r.cells)-1]
		l.Items = append(l.Items, ListItem{Blocks: c.blocks(desc)})
	}
	return l
}

// horizontalList maps a term/description table the way a dl is mapped.
func (c *converter) horizontalList(rows []tableRow) []Block {
	var out []Block
	for _, r := range rows {
		if len(r.cells) > 1 {
			if term := flatText(r.cells[0]); term != "" {
				out = append(out, &Paragraph{Inlines: []Inline{{Kind: InlineStrong, Text: term}}})
			}
		}
		out = append(out, c.blocks(r.cells[len(r.cells)-1])...)
	}
	return out
}

// inlines converts the children of n as inline content.
func (c *converter) inlines(n *html.Node) []Inline {
	var runs []Inline
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		runs = c.inline(runs, ch)
	}
	return normalizeInlines(runs)
}

func (c *converter) inline(runs []Inline, n *html.Node) []Inline {
	switch n.Type {
	case html.TextNode:
		return append(runs, Inline{Kind: InlineText, Text: collapseSpace(n.Data)})
	case html.ElementNode:
	default:
		return runs
	}
	if skippedTags[n.Data] {
		return runs
	}

	switch n.Data {
	case "br":
		return append(runs, Inline{Kind: InlineBreak})
	case "wbr":
		return runs
	case "img":
		src := strings.TrimSpace(attr(n, "src"))
		if src == "" {
			return runs
		}
		return append(runs, Inline{Kind: InlineImage, Text: strings.TrimSpace(attr(n, "alt")), URL: c.resolve(src)})
	case "a":
		return c.anchor(runs, n)
	case "code", "kbd", "samp", "tt":
		text := strings.ReplaceAll(textContent(n), "\n", " ")
		if strings.TrimSpace(text) == "" {
			return runs
		}
		return append(runs, Inline{Kind: InlineCode, Text: text})
	case "strong", "b", "em", "i":
		if hasDescendant(n, "a", "code", "img", "br") {
			break
		}
		text := flatText(n)
		if text == "" {
			return runs
		}
		kind := InlineEmphasis
		if n.Data == "strong" || n.Data == "b" {
			kind = InlineStrong
		}
		return append(runs, edgeSpace(n, true), Inline{Kind: kind, Text: text}, edgeSpace(n, false))
	}

	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		runs = c.inline(runs, ch)
	}
	return runs
}

// anchor emits a link run. Anchors without text (heading permalinks) are
// dropped unless they wrap an image.
func (c *converter) anchor(runs []Inline, n *html.Node) []Inline {
	href := strings.TrimSpace(attr(n, "href"))
	text := flatText(n)
	if href == "" || text == "" {
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			if href != "" && ch.Type == html.TextNode {
				continue
			}
			runs = c.inline(runs, ch)
		}
		return runs
	}
	return append(runs,
		edgeSpace(n, true),
		Inline{Kind: InlineLink, Text: text, URL: c.resolve(href)},
		edgeSpace(n, false))
}

// edgeSpace keeps the separating space that leading or trailing
// whitespace inside an element contributed.
func edgeSpace(n *html.Node, leading bool) Inline {
	s := collapseSpace(textContent(n))
	if leading && strings.HasPrefix(s, " ") || !leading && strings.HasSuffix(s, " ") {
		return Inline{Kind: InlineText, Text: " "}
	}
	return Inline{Kind: InlineText}
}

// normalizeInlines merges adjacent text, collapses spaces across run
// boundaries and trims the edges of the run list and around breaks.
func normalizeInlines(in []Inline) []Inline {
	merged := make([]Inline, 0, len(in))
	for _, r := range in {
		if r.Kind == InlineText {
			if r.Text == "" {
				continue
			}
			if last := len(merged) - 1; last >= 0 && merged[last].Kind == InlineText {
				merged[last].Text = collapseSpace(merged[last].Text + r.Text)
				continue
			}
		}
		merged = append(merged, r)
	}

	for i := range merged {
		if merged[i].Kind != InlineText {
			continue
		}
		if i == 0 || merged[i-1].Kind == InlineBreak {
			merged[i].Text = strings.TrimLeft(merged[i].Text, " ")
		}
		if i == len(merged)-1 || merged[i+1].Kind == InlineBreak {
			merged[i].Text = strings.TrimRight(merged[i].Text, " ")
		}
	}

	out := merged[:0]
	for _, r := range merged {
		if r.Kind == InlineText && r.Text == "" {
			continue
		}
		out = append(out, r)
	}
	dedup := out[:0]
	for _, r := range out {
		if r.Kind == InlineBreak && len(dedup) > 0 && dedup[len(dedup)-1].Kind == InlineBreak {
			continue
		}
		dedup = append(dedup, r)
	}
	out = dedup
	for len(out) > 0 && out[0].Kind == InlineBreak {
		out = out[1:]
	}
	for len(out) > 0 && out[len(out)-1].Kind == InlineBreak {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
