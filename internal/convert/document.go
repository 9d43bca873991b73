// Package convert turns rendered page HTML into a portable text document
// and serializes it as Markdown.
package convert

// Document is the portable rendition of one page: an ordered block list in
// document order.
type Document struct {
	Identity string
	Blocks   []Block
}

// Block is one block-level node. The set of block kinds is closed.
type Block interface {
	isBlock()
}

// Heading is a section heading of level 1..6.
type Heading struct {
	Level   int
	Inlines []Inline
}

// Paragraph is a run of inline content.
type Paragraph struct {
	Inlines []Inline
}

// CodeBlock is preformatted text, kept byte-for-byte.
type CodeBlock struct {
	Language string
	Text     string
}

// List is an ordered or unordered list. Start is the first ordinal of an
// ordered list.
type List struct {
	Ordered bool
	Start   int
	Items   []ListItem
}

// ListItem holds the blocks of one list entry.
type ListItem struct {
	Blocks []Block
}

// Table is a grid of flattened cell text. Header may be empty.
type Table struct {
	Header []string
	Rows   [][]string
}

// Image is a standalone image.
type Image struct {
	Alt string
	Src string
}

// Quote is a block quotation.
type Quote struct {
	Blocks []Block
}

// Rule is a thematic break.
type Rule struct{}

// Fallback is the flattened text of content with no better mapping.
type Fallback struct {
	Text string
}

func (*Heading) isBlock()   {}
func (*Paragraph) isBlock() {}
func (*CodeBlock) isBlock() {}
func (*List) isBlock()      {}
func (*Table) isBlock()     {}
func (*Image) isBlock()     {}
func (*Quote) isBlock()     {}
func (*Rule) isBlock()      {}
func (*Fallback) isBlock()  {}

// InlineKind discriminates inline runs.
type InlineKind int

const (
	InlineText InlineKind = iota
	InlineLink
	InlineCode
	InlineStrong
	InlineEmphasis
	InlineImage
	InlineBreak
)

func (k InlineKind) String() string {
	switch k {
	case InlineText:
		return "text"
	case InlineLink:
		return "link"
	case InlineCode:
		return "code"
	case InlineStrong:
		return "strong"
	case InlineEmphasis:
		return "emphasis"
	case InlineImage:
		return "image"
	case InlineBreak:
		return "break"
	default:
		return "unknown"
	}
}

// Inline is one run of inline content. URL is set for links and images;
// for images Text carries the alt text.
type Inline struct {
	Kind InlineKind
	Text string
	URL  string
}

// Links returns every link and image URL in the document, in order.
func (d *Document) Links() []string {
	var out []string
	var walk func([]Block)
	inl := func(in []Inline) {
		for _, r := range in {
			if r.URL != "" {
				out = append(out, r.URL)
			}
		}
	}
	walk = func(bs []Block) {
		for _, b := range bs {
			switch v := b.(type) {
			case *Heading:
				inl(v.Inlines)
			case *Paragraph:
				inl(v.Inlines)
			case *Image:
				if v.Src != "" {
					out = append(out, v.Src)
				}
			case *List:
				for _, it := range v.Items {
					walk(it.Blocks)
				}
			case *Quote:
				walk(v.Blocks)
			}
		}
	}
	walk(d.Blocks)
	return out
}
