// Package frontmatter reads YAML front matter from page sources and writes the
// deterministic front matter block of exported artifacts.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// front matter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml front matter start delimiter found but closing delimiter is missing")

// Split separates `---` delimited YAML front matter from the body. CRLF
// sources are accepted. had is false when content has no front matter.
func Split(content []byte) (fm []byte, body []byte, had bool, err error) {
	nl := "\n"
	if bytes.HasPrefix(content, []byte("---\r\n")) {
		nl = "\r\n"
	} else if !bytes.HasPrefix(content, []byte("---\n")) {
		return nil, content, false, nil
	}

	start := 3 + len(nl)
	rest := content[start:]
	if bytes.HasPrefix(rest, []byte("---"+nl)) {
		return []byte{}, rest[3+len(nl):], true, nil
	}

	closing := []byte(nl + "---" + nl)
	idx := bytes.Index(rest, closing)
	if idx < 0 {
		// A closing delimiter at EOF without trailing newline.
		if bytes.HasSuffix(rest, []byte(nl+"---")) {
			return rest[:len(rest)-3], nil, true, nil
		}
		return nil, nil, false, ErrMissingClosingDelimiter
	}
	return rest[:idx+len(nl)], rest[idx+len(closing):], true, nil
}

// ParseAttributes parses front matter into string-valued page attributes.
// Scalars keep their YAML text, timestamps are RFC3339, sequences are joined
// with ", " and nested maps are flattened with dotted keys.
func ParseAttributes(fm []byte) (map[string]string, error) {
	attrs := map[string]string{}
	if len(bytes.TrimSpace(fm)) == 0 {
		return attrs, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(fm, &fields); err != nil {
		return nil, fmt.Errorf("parse front matter: %w", err)
	}
	flatten("", fields, attrs)
	return attrs, nil
}

func flatten(prefix string, fields map[string]any, out map[string]string) {
	for k, v := range fields {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch vv := v.(type) {
		case map[string]any:
			flatten(key, vv, out)
		default:
			out[key] = scalarString(vv)
		}
	}
}

func scalarString(v any) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return vv
	case time.Time:
		return vv.UTC().Format(time.RFC3339)
	case []any:
		parts := make([]string, 0, len(vv))
		for _, item := range vv {
			parts = append(parts, scalarString(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(vv)
	}
}

// Serialize renders fields as YAML (without delimiters). Keys are sorted
// recursively so identical input always yields identical bytes.
func Serialize(fields map[string]any) ([]byte, error) {
	if len(fields) == 0 {
		return []byte{}, nil
	}
	node, err := mappingNode(fields)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Join emits `---` delimited front matter followed by body. Empty front
// matter yields body unchanged.
func Join(fm, body []byte) []byte {
	if len(fm) == 0 {
		return body
	}
	out := make([]byte, 0, len(fm)+len(body)+8)
	out = append(out, "---\n"...)
	out = append(out, fm...)
	if !bytes.HasSuffix(fm, []byte("\n")) {
		out = append(out, '\n')
	}
	out = append(out, "---\n"...)
	out = append(out, body...)
	return out
}

func mappingNode(m map[string]any) (*yaml.Node, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		val, err := valueNode(m[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, val)
	}
	return n, nil
}

func valueNode(v any) (*yaml.Node, error) {
	switch vv := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: vv}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(vv)}, nil
	case int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(vv)}, nil
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(vv, 10)}, nil
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(vv, 'g', -1, 64)}, nil
	case time.Time:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: vv.UTC().Format(time.RFC3339)}, nil
	case map[string]string:
		m := make(map[string]any, len(vv))
		for k, s := range vv {
			m[k] = s
		}
		return mappingNode(m)
	case map[string]any:
		return mappingNode(vv)
	case []string:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range vv {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: item})
		}
		return seq, nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range vv {
			node, err := valueNode(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, node)
		}
		return seq, nil
	default:
		return nil, fmt.Errorf("unsupported front matter value of type %T", v)
	}
}
