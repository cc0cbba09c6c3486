package parser

import (
	"fmt"
	"io"
	"os"

	"github.com/fumiama/go-docx"

	"github.com/quartermill/finsight/internal/filing"
)

// DOCXParser handles .docx sources (investor letters, prepared remarks).
// Paragraphs map to paragraph blocks; docx has no page information at the
// XML level, so blocks are unpaginated.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string, meta filing.Metadata) (*filing.Document, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "finsight-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	parsed, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	doc := &filing.Document{Metadata: meta}
	for _, item := range parsed.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := collapseWhitespace(docxParagraphText(para))
		if text == "" {
			continue
		}
		doc.Blocks = append(doc.Blocks, &filing.Block{
			ID:   paragraphID(0, len(doc.Blocks)),
			Type: filing.BlockParagraph,
			Text: text,
		})
	}
	return doc, nil
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf []byte
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf = append(buf, t.Text...)
			}
		}
	}
	return string(buf)
}
