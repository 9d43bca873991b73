package convert

import (
	"fmt"
	"strings"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/docexport/internal/frontmatter"
)

// volatileFields change between builds without a content change and are
// left out of the fingerprint.
var volatileFields = map[string]bool{
	mdfp.FingerprintField: true,
	"last_updated":        true,
	"exported_at":         true,
}

// Render produces the exported artifact: YAML front matter carrying the
// given fields plus a content fingerprint, followed by the Markdown body.
func Render(doc *Document, fields map[string]any) ([]byte, error) {
	body := doc.Markdown()

	fp, err := Fingerprint(fields, body)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[mdfp.FingerprintField] = fp

	fm, err := frontmatter.Serialize(out)
	if err != nil {
		return nil, fmt.Errorf("serialize front matter: %w", err)
	}
	return frontmatter.Join(fm, []byte(body)), nil
}

// Fingerprint hashes the stable front matter fields together with body.
func Fingerprint(fields map[string]any, body string) (string, error) {
	stable := make(map[string]any, len(fields))
	for k, v := range fields {
		if !volatileFields[k] {
			stable[k] = v
		}
	}
	fm := ""
	if len(stable) > 0 {
		serialized, err := frontmatter.Serialize(stable)
		if err != nil {
			return "", fmt.Errorf("serialize front matter: %w", err)
		}
		fm = strings.TrimSuffix(string(serialized), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(fm, body), nil
}
