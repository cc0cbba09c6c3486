package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/quartermill/finsight/internal/filing"
)

// MarkdownParser handles markdown sources, typically earnings-call
// transcripts exported as .md. Every top-level block (including headings)
// becomes one paragraph block; markdown carries no page structure.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string, meta filing.Metadata) (*filing.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	root := md.Parser().Parse(reader)

	doc := &filing.Document{Metadata: meta}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		t := collapseWhitespace(extractText(n, src))
		if t == "" {
			continue
		}
		doc.Blocks = append(doc.Blocks, &filing.Block{
			ID:   paragraphID(0, len(doc.Blocks)),
			Type: filing.BlockParagraph,
			Text: t,
		})
	}
	return doc, nil
}

// extractText gets the text content of a goldmark AST node. Blocks carrying
// raw source lines use those; container blocks (lists, quotes) recurse.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			part := extractText(c, src)
			if part != "" {
				if buf.Len() > 0 {
					buf.WriteByte('\n')
				}
				buf.WriteString(part)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
