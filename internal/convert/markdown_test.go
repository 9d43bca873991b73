package convert

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// fencedCode parses md with goldmark and returns the content and language
// of every fenced code block.
func fencedCode(t *testing.T, md string) (contents, langs []string) {
	t.Helper()
	src := []byte(md)
	root := goldmark.New().Parser().Parse(text.NewReader(src))
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fc, ok := n.(*ast.FencedCodeBlock); ok {
			var buf bytes.Buffer
			lines := fc.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
			}
			contents = append(contents, buf.String())
			langs = append(langs, string(fc.Language(src)))
		}
		return ast.WalkContinue, nil
	})
	require.NoError(t, err)
	return contents, langs
}

func TestMarkdown_CodePreservedByteForByte(t *testing.T) {
	src := "<pre class=\"highlight\"><code class=\"language-go\"><span class=\"kd\">func</span> main() {\n\n" +
		"    fmt.Println(\"a ``` b &lt;x&gt; *y*\")\n}\n</code></pre>"
	want := "func main() {\n\n    fmt.Println(\"a ``` b <x> *y*\")\n}\n"

	doc := Convert(src, guideContext())
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, want, doc.Blocks[0].(*CodeBlock).Text)

	md := doc.Markdown()
	assert.Contains(t, md, "````go\n")

	contents, langs := fencedCode(t, md)
	require.Len(t, contents, 1)
	assert.Equal(t, want, contents[0])
	assert.Equal(t, "go", langs[0])
}

func TestMarkdown_CodeWithoutTrailingNewline(t *testing.T) {
	doc := &Document{Blocks: []Block{&CodeBlock{Text: "a\n  b"}}}
	contents, _ := fencedCode(t, doc.Markdown())
	require.Len(t, contents, 1)
	assert.Equal(t, "a\n  b\n", contents[0])
}

func TestMarkdown_CodeInsideListItem(t *testing.T) {
	doc := &Document{Blocks: []Block{&List{Items: []ListItem{{Blocks: []Block{
		&Paragraph{Inlines: []Inline{{Kind: InlineText, Text: "Run:"}}},
		&CodeBlock{Language: "sh", Text: "make all\n"},
	}}}}}}

	contents, langs := fencedCode(t, doc.Markdown())
	require.Len(t, contents, 1)
	assert.Equal(t, "make all\n", contents[0])
	assert.Equal(t, "sh", langs[0])
}

func TestMarkdown_CodeSpanWithBackticks(t *testing.T) {
	assert.Equal(t, "``a`b``", codeSpan("a`b"))
	assert.Equal(t, "`` `x ``", codeSpan("`x"))
}

func TestMarkdown_TableWithoutHeader(t *testing.T) {
	doc := &Document{Blocks: []Block{&Table{Rows: [][]string{{"Note", "Be careful"}}}}}
	assert.Equal(t, "|      |            |\n| ---- | ---------- |\n| Note | Be careful |\n", doc.Markdown())
}

func TestMarkdown_ImageAndDestinationEscaping(t *testing.T) {
	doc := &Document{Blocks: []Block{
		&Image{Alt: "A [b]", Src: "https://x.example/a b.png"},
		&Paragraph{Inlines: []Inline{{Kind: InlineLink, Text: "l", URL: "https://x.example/p(1)"}}},
	}}
	assert.Equal(t, "![A \\[b\\]](<https://x.example/a b.png>)\n\n[l](<https://x.example/p(1)>)\n", doc.Markdown())
}

func TestMarkdown_FallbackAndHeadingLevels(t *testing.T) {
	doc := &Document{Blocks: []Block{
		&Heading{Level: 9, Inlines: []Inline{{Kind: InlineText, Text: "deep"}}},
		&Fallback{Text: "- raw"},
	}}
	assert.Equal(t, "###### deep\n\n\\- raw\n", doc.Markdown())
}

// topLevelKinds parses md with goldmark and names its top-level blocks.
func topLevelKinds(t *testing.T, md string) []string {
	t.Helper()
	root := goldmark.New().Parser().Parse(text.NewReader([]byte(md)))
	var kinds []string
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		kinds = append(kinds, n.Kind().String())
	}
	return kinds
}

func TestMarkdown_LineBreaksKeepStructure(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		want  string
		kinds []string
	}{
		{"heading marker after break", `<p>step one<br># not a heading</p>`, "step one\\\n\\# not a heading\n", []string{"Paragraph"}},
		{"list marker after break", `<p>x<br>- item</p>`, "x\\\n\\- item\n", []string{"Paragraph"}},
		{"ordered marker after break", `<p>x<br>1. one</p>`, "x\\\n1\\. one\n", []string{"Paragraph"}},
		{"dashes after break", `<p>a<br>---</p>`, "a\\\n\\---\n", []string{"Paragraph"}},
		{"repeated breaks", `<p>a<br><br> <br>b</p>`, "a\\\nb\n", []string{"Paragraph"}},
		{"break inside heading", `<h2>A<br>B</h2>`, "## A B\n", []string{"Heading"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := Convert(tt.src, guideContext()).Markdown()
			assert.Equal(t, tt.want, md)
			assert.Equal(t, tt.kinds, topLevelKinds(t, md))
		})
	}
}
