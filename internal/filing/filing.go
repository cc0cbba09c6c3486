// Package filing defines the structural model for a parsed source document:
// pages of blocks (paragraphs and tables) with line-level provenance, plus the
// chunk record that gets embedded and stored.
package filing

import (
	"fmt"
	"strings"
)

// BlockType distinguishes prose from tabular blocks.
type BlockType string

const (
	BlockParagraph BlockType = "paragraph"
	BlockTable     BlockType = "table"
)

// Line is one source line of a block. Numbers are 1-based; for PDF sources
// they reset on every page, so a line number is only meaningful together
// with the block's page number.
type Line struct {
	Number int
	Text   string
}

// TableCell is a single cell with explicit coordinates. Tables are stored as
// a flat cell list rather than a 2-D array so ragged rows need no padding.
type TableCell struct {
	Row  int
	Col  int
	Text string
}

// Block is the atomic structural unit of a document. Blocks are immutable
// after creation except for Section, which the section tagger writes once.
type Block struct {
	ID      string // p_<page>_<n> for paragraphs, t_<page>_<n> for tables
	Type    BlockType
	Page    int // 0 for unpaginated sources (HTML, markdown)
	Text    string
	Lines   []Line
	Section string
	Cells   []TableCell // only for table blocks
}

// Derive returns a sub-block carrying the given text. It enumerates exactly
// which fields propagate: page and section are inherited, line provenance is
// not (the caller re-attaches estimated line bounds if it has them).
func (b *Block) Derive(text string) *Block {
	return &Block{
		ID:      b.ID,
		Type:    b.Type,
		Page:    b.Page,
		Text:    text,
		Section: b.Section,
	}
}

// LineStart returns the first line number of the block, or 0 when unknown.
func (b *Block) LineStart() int {
	if len(b.Lines) == 0 {
		return 0
	}
	return b.Lines[0].Number
}

// LineEnd returns the last line number of the block, or 0 when unknown.
func (b *Block) LineEnd() int {
	if len(b.Lines) == 0 {
		return 0
	}
	return b.Lines[len(b.Lines)-1].Number
}

// Metadata identifies a source document. Ticker is held in canonical
// uppercase; StorageTicker lowercases it at the store boundary.
type Metadata struct {
	DocID      string
	Ticker     string
	FilingType string
	Period     string
	SourceURL  string
	Title      string
	LocalPath  string
}

// NewMetadata validates and canonicalizes document identity fields.
func NewMetadata(docID, ticker, filingType, period string) (Metadata, error) {
	if docID == "" {
		return Metadata{}, fmt.Errorf("doc_id is required")
	}
	if ticker == "" {
		return Metadata{}, fmt.Errorf("ticker is required")
	}
	if period == "" {
		return Metadata{}, fmt.Errorf("period is required")
	}
	return Metadata{
		DocID:      docID,
		Ticker:     NormalizeTicker(ticker),
		FilingType: filingType,
		Period:     period,
	}, nil
}

// Document owns its blocks for the span of one parse-and-chunk pass; only
// chunk-level metadata outlives it.
type Document struct {
	Metadata Metadata
	Blocks   []*Block
}

// ChunkMeta is the closed set of scalar fields persisted alongside a chunk.
// The vector store's filter language only supports scalar equality, so every
// field is a string or int.
type ChunkMeta struct {
	DocID      string
	Ticker     string // lowercase, the storage-side convention
	FilingType string
	Period     string
	SourceURL  string
	Title      string
	LocalPath  string
	Section    string
	BlockIDs   string // comma-joined contributing block ids
	PageStart  int    // 0 = unknown
	PageEnd    int
	LineStart  int // page-scoped, 0 = unknown
	LineEnd    int
}

// Chunk is the unit stored in the index.
type Chunk struct {
	ID   string
	Text string
	Meta ChunkMeta
}

// NormalizeTicker is the canonical (request-side) ticker form.
func NormalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// StorageTicker is the form chunks are stored and filtered with. Write-time
// and query-time must agree or filters silently match nothing, so both paths
// go through this one function.
func StorageTicker(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
