package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/quartermill/finsight/internal/filing"
)

// TextParser handles plain-text sources (raw transcript dumps). Blank lines
// separate paragraphs; each paragraph becomes one block.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string, meta filing.Metadata) (*filing.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &filing.Document{Metadata: meta}
	var current strings.Builder

	flush := func() {
		text := collapseWhitespace(current.String())
		current.Reset()
		if text == "" {
			return
		}
		doc.Blocks = append(doc.Blocks, &filing.Block{
			ID:   paragraphID(0, len(doc.Blocks)),
			Type: filing.BlockParagraph,
			Text: text,
		})
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return doc, nil
}
