package export

import (
	"net/url"
	"path"
	"strings"

	"git.home.luguber.info/inful/docexport/internal/site"
)

// ArtifactPath maps a page identity to its Markdown artifact path relative
// to the output root:
//
//	/               -> index.md
//	/a/             -> a/index.md
//	/a/b.html       -> a/b.md
//	/a/b            -> a/b.md
//	/a/data.json    -> a/data.json.md
//	/a/c%23.html    -> a/c#.md
func ArtifactPath(identity string) string {
	id := site.Identity(identity)
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}
	if strings.HasSuffix(id, "/") {
		return strings.TrimPrefix(id+"index.md", "/")
	}
	rel := strings.TrimPrefix(id, "/")
	if ext := path.Ext(rel); ext == ".html" {
		rel = strings.TrimSuffix(rel, ext)
	}
	return rel + ".md"
}
