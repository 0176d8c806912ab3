package fulltext

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// Title returns the text of the first level-1 heading in content,
// or the file name without its extension when there is none.
func Title(content []byte, filename string) string {
	doc := markdown.Parser().Parse(text.NewReader(content))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok && heading.Level == 1 {
			title = strings.TrimSpace(nodeText(heading, content))
			if title != "" {
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	if title != "" {
		return title
	}

	name := filepath.Base(filename)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// nodeText concatenates the inline text below n.
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// StripFrontmatter drops a leading YAML frontmatter block delimited by --- lines.
// Content without a closed block is returned unchanged.
func StripFrontmatter(content []byte) []byte {
	lines := bytes.SplitAfter(content, []byte("\n"))
	if len(lines) == 0 || string(bytes.TrimSpace(lines[0])) != "---" {
		return content
	}
	offset := len(lines[0])
	for _, line := range lines[1:] {
		offset += len(line)
		if string(bytes.TrimSpace(line)) == "---" {
			return content[offset:]
		}
	}
	return content
}
