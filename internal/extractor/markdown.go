package extractor

import (
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// extractMarkdown parses a markdown file and returns its plain text, one
// line per block-level node.
func extractMarkdown(path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var out strings.Builder
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := n.(*ast.Text); ok {
				out.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					out.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil
		}
		if n.Type() == ast.TypeBlock && out.Len() > 0 {
			out.WriteByte('\n')
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}
