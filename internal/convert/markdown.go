package convert

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Markdown serializes the document as CommonMark with GFM tables.
func (d *Document) Markdown() string {
	body := renderBlocks(d.Blocks)
	if body == "" {
		return ""
	}
	return body + "\n"
}

func renderBlocks(blocks []Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if s := renderBlock(b); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func renderBlock(b Block) string {
	switch v := b.(type) {
	case *Heading:
		level := min(max(v.Level, 1), 6)
		return strings.Repeat("#", level) + " " + renderInlines(v.Inlines, true)
	case *Paragraph:
		return escapeLineStart(renderInlines(v.Inlines, false))
	case *CodeBlock:
		return renderCode(v)
	case *List:
		return renderList(v)
	case *Table:
		return renderTable(v)
	case *Image:
		return "![" + escapeText(v.Alt) + "](" + destination(v.Src) + ")"
	case *Quote:
		return prefixLines(renderBlocks(v.Blocks), "> ", ">")
	case *Rule:
		return "---"
	case *Fallback:
		return escapeLineStart(escapeText(v.Text))
	default:
		return ""
	}
}

// renderCode fences text with a backtick run longer than any inside it so
// the content survives unchanged.
func renderCode(c *CodeBlock) string {
	fence := strings.Repeat("`", max(3, longestRun(c.Text, '`')+1))
	lang := strings.Map(func(r rune) rune {
		if r == '`' || r == ' ' || r == '\t' || r == '\n' {
			return -1
		}
		return r
	}, c.Language)

	var b strings.Builder
	b.WriteString(fence)
	b.WriteString(lang)
	b.WriteByte('\n')
	b.WriteString(c.Text)
	if c.Text != "" && !strings.HasSuffix(c.Text, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(fence)
	return b.String()
}

func renderList(l *List) string {
	items := make([]string, 0, len(l.Items))
	for i, it := range l.Items {
		marker := "- "
		if l.Ordered {
			marker = strconv.Itoa(l.Start+i) + ". "
		}
		content := renderBlocks(it.Blocks)
		if content == "" {
			items = append(items, strings.TrimSpace(marker))
			continue
		}
		indent := strings.Repeat(" ", len(marker))
		lines := strings.Split(content, "\n")
		for j := range lines {
			switch {
			case j == 0:
				lines[j] = marker + lines[j]
			case lines[j] != "":
				lines[j] = indent + lines[j]
			}
		}
		items = append(items, strings.Join(lines, "\n"))
	}
	return strings.Join(items, "\n")
}

func renderTable(t *Table) string {
	cols := len(t.Header)
	for _, r := range t.Rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return ""
	}

	cell := func(row []string, i int) string {
		if i >= len(row) {
			return ""
		}
		return strings.ReplaceAll(escapeText(row[i]), "|", `\|`)
	}

	widths := make([]int, cols)
	for i := range widths {
		widths[i] = max(3, runewidth.StringWidth(cell(t.Header, i)))
		for _, r := range t.Rows {
			widths[i] = max(widths[i], runewidth.StringWidth(cell(r, i)))
		}
	}

	line := func(row []string) string {
		var b strings.Builder
		b.WriteString("|")
		for i := range cols {
			c := cell(row, i)
			b.WriteString(" ")
			b.WriteString(c)
			b.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(c)))
			b.WriteString(" |")
		}
		return b.String()
	}

	rows := make([]string, 0, len(t.Rows)+2)
	rows = append(rows, line(t.Header))
	var sep strings.Builder
	sep.WriteString("|")
	for _, w := range widths {
		sep.WriteString(" " + strings.Repeat("-", w) + " |")
	}
	rows = append(rows, sep.String())
	for _, r := range t.Rows {
		rows = append(rows, line(r))
	}
	return strings.Join(rows, "\n")
}

// renderInlines writes inline runs. A break becomes a hard line break whose
// following line is escaped like a paragraph start; a heading must stay on
// one line, so there it becomes a space.
func renderInlines(runs []Inline, heading bool) string {
	var b strings.Builder
	lineStart := false
	for _, r := range runs {
		atLineStart := lineStart
		lineStart = false
		switch r.Kind {
		case InlineText:
			text := escapeText(r.Text)
			if atLineStart {
				text = escapeLineStart(text)
			}
			b.WriteString(text)
		case InlineLink:
			b.WriteString("[" + escapeText(r.Text) + "](" + destination(r.URL) + ")")
		case InlineImage:
			b.WriteString("![" + escapeText(r.Text) + "](" + destination(r.URL) + ")")
		case InlineCode:
			b.WriteString(codeSpan(r.Text))
		case InlineStrong:
			b.WriteString("**" + escapeText(r.Text) + "**")
		case InlineEmphasis:
			b.WriteString("*" + escapeText(r.Text) + "*")
		case InlineBreak:
			if heading {
				b.WriteByte(' ')
				continue
			}
			b.WriteString("\\\n")
			lineStart = true
		}
	}
	return b.String()
}

func codeSpan(text string) string {
	ticks := strings.Repeat("`", longestRun(text, '`')+1)
	if strings.HasPrefix(text, "`") || strings.HasSuffix(text, "`") {
		return ticks + " " + text + " " + ticks
	}
	return ticks + text + ticks
}

func destination(u string) string {
	if strings.ContainsAny(u, " ()<>") {
		return "<" + strings.NewReplacer("<", "%3C", ">", "%3E").Replace(u) + ">"
	}
	return u
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`,
)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

// escapeLineStart neutralizes text that would otherwise open a heading,
// list, quote, fence or break at the start of a line.
func escapeLineStart(s string) string {
	switch {
	case s == "":
		return s
	case strings.HasPrefix(s, "#"), strings.HasPrefix(s, "+ "), s == "+",
		strings.HasPrefix(s, "- "), strings.HasPrefix(s, "="),
		strings.HasPrefix(s, "~~~"), isDashLine(s):
		return `\` + s
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		return s[:i] + `\` + s[i:]
	}
	return s
}

// isDashLine reports a line of dashes and spaces, which would read as a
// setext underline or a thematic break.
func isDashLine(s string) bool {
	return strings.HasPrefix(s, "-") && strings.Trim(s, "- ") == ""
}

func prefixLines(s, prefix, emptyPrefix string) string {
	if s == "" {
		return emptyPrefix
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = emptyPrefix
		} else {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

func longestRun(s string, ch byte) int {
	longest, cur := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == ch {
			cur++
			longest = max(longest, cur)
		} else {
			cur = 0
		}
	}
	return longest
}
