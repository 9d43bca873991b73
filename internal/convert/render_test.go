package convert

import (
	"strings"
	"testing"

	"github.com/inful/mdfp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docexport/internal/frontmatter"
)

func TestRender_FrontMatterAndBody(t *testing.T) {
	doc := &Document{Blocks: []Block{&Paragraph{Inlines: []Inline{{Kind: InlineText, Text: "Body"}}}}}

	out, err := Render(doc, map[string]any{"title": "Page", "url": "https://docs.example.com/p.html"})
	require.NoError(t, err)

	fm, body, had, err := frontmatter.Split(out)
	require.NoError(t, err)
	require.True(t, had)
	assert.Equal(t, "Body\n", string(body))

	s := string(fm)
	assert.Contains(t, s, mdfp.FingerprintField+": ")
	assert.Less(t, strings.Index(s, "title:"), strings.Index(s, "url:"))
}

func TestRender_Deterministic(t *testing.T) {
	doc := Convert(`<h1>T</h1><p>x</p>`, guideContext())
	fields := map[string]any{"title": "T", "tags": []string{"b", "a"}}

	a, err := Render(doc, fields)
	require.NoError(t, err)
	b, err := Render(doc, fields)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFingerprint_IgnoresVolatileFields(t *testing.T) {
	body := "text\n"
	base, err := Fingerprint(map[string]any{"title": "a"}, body)
	require.NoError(t, err)

	withDate, err := Fingerprint(map[string]any{"title": "a", "last_updated": "2024-01-01T00:00:00Z"}, body)
	require.NoError(t, err)
	assert.Equal(t, base, withDate)

	changed, err := Fingerprint(map[string]any{"title": "a"}, "other\n")
	require.NoError(t, err)
	assert.NotEqual(t, base, changed)
}

func TestRender_RejectsUnsupportedFieldType(t *testing.T) {
	_, err := Render(&Document{}, map[string]any{"bad": struct{}{}})
	require.Error(t, err)
}
