package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArtifactPath(t *testing.T) {
	tests := []struct {
		identity string
		want     string
	}{
		{"/", "index.md"},
		{"/a/", "a/index.md"},
		{"/a/index.html", "a/index.md"},
		{"/a/b.html", "a/b.md"},
		{"/guide/page.html", "guide/page.md"},
		{"/a/b", "a/b.md"},
		{"/a/data.json", "a/data.json.md"},
		{"/a/b.c.html", "a/b.c.md"},
		{"/lang/c%23.html", "lang/c#.md"},
		{"/faq/why%3F.html", "faq/why?.md"},
		{"/a/100%25.html", "a/100%.md"},
	}
	for _, tt := range tests {
		t.Run(tt.identity, func(t *testing.T) {
			assert.Equal(t, tt.want, ArtifactPath(tt.identity))
		})
	}
}

func TestArtifactPath_DistinctForTypicalIdentities(t *testing.T) {
	ids := []string{"/", "/a/", "/a/b.html", "/a/b/", "/a.html", "/b/index.html.bak"}
	seen := map[string]string{}
	for _, id := range ids {
		p := ArtifactPath(id)
		prev, dup := seen[p]
		assert.False(t, dup, "%s and %s both map to %s", prev, id, p)
		seen[p] = id
	}
}
