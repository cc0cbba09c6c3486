// Package parser converts raw filing bytes (PDF, HTML, and a few secondary
// formats) into the filing.Document structural model.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/quartermill/finsight/internal/filing"
)

// Parser converts raw document bytes into a structural Document. A source
// with zero extractable content yields a Document with no blocks, not an
// error, so batch ingestion can decide whether to skip it.
type Parser interface {
	Parse(r io.Reader, filename string, meta filing.Metadata) (*filing.Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".html": true,
	".htm":  true,
	".md":   true,
	".txt":  true,
	".docx": true,
	".csv":  true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFParser{FallbackPdftotext: true}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".txt":
		return &TextParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// paragraphID and tableID build block ids that encode origin. Page 0 means
// an unpaginated source; those ids omit the page component.
func paragraphID(page, n int) string {
	if page > 0 {
		return fmt.Sprintf("p_%d_%d", page, n)
	}
	return fmt.Sprintf("p_%d", n)
}

func tableID(page, n int) string {
	if page > 0 {
		return fmt.Sprintf("t_%d_%d", page, n)
	}
	return fmt.Sprintf("t_%d", n)
}

// collapseWhitespace folds all whitespace runs (including newlines) into
// single spaces. Used for sources with no meaningful line structure.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
