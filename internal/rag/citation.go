package rag

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/quartermill/finsight/internal/filing"
	"github.com/quartermill/finsight/internal/store"
)

const (
	// searchPhraseWords caps the highlight phrase; PDF viewers choke on
	// long search fragments.
	searchPhraseWords = 24

	snippetMaxChars = 500
)

// Citation points a reader at the exact place an answer came from.
type Citation struct {
	ChunkID    string  `json:"chunk_id"`
	DocID      string  `json:"doc_id"`
	Ticker     string  `json:"ticker"`
	FilingType string  `json:"filing_type,omitempty"`
	Period     string  `json:"period"`
	Section    string  `json:"section,omitempty"`
	PageStart  int     `json:"page_start,omitempty"` // 0 = unpaginated source
	PageEnd    int     `json:"page_end,omitempty"`
	LineStart  int     `json:"line_start,omitempty"` // page-scoped, 0 = unknown
	LineEnd    int     `json:"line_end,omitempty"`
	Score      float64 `json:"score"` // similarity in [0, 1]
	Snippet    string  `json:"snippet"`
	URL        string  `json:"url,omitempty"`
}

// NewCitation builds a citation from a scored chunk. Cosine distance in
// [0, 2] maps to similarity via 1 - d/2, clamped against drift from float
// rounding.
func NewCitation(s store.Scored) Citation {
	meta := s.Chunk.Meta
	return Citation{
		ChunkID:    s.Chunk.ID,
		DocID:      meta.DocID,
		Ticker:     filing.NormalizeTicker(meta.Ticker),
		FilingType: meta.FilingType,
		Period:     meta.Period,
		Section:    meta.Section,
		PageStart:  meta.PageStart,
		PageEnd:    meta.PageEnd,
		LineStart:  meta.LineStart,
		LineEnd:    meta.LineEnd,
		Score:      similarity(s.Distance),
		Snippet:    Snippet(s.Chunk.Text),
		URL:        HighlightURL(&s.Chunk),
	}
}

func similarity(distance float64) float64 {
	score := 1 - distance/2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Snippet returns the leading portion of a chunk's text for display.
func Snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetMaxChars {
		return text
	}
	return string(runes[:snippetMaxChars])
}

// BuildSearchPhrase returns the chunk's opening words, the fragment a PDF
// viewer can jump to.
func BuildSearchPhrase(text string) string {
	words := strings.Fields(text)
	if len(words) > searchPhraseWords {
		words = words[:searchPhraseWords]
	}
	return strings.Join(words, " ")
}

// HighlightURL builds the best available locator for a chunk, in order of
// preference: the local file viewer route, a PDF source URL with a page and
// search fragment, the bare source URL, or nothing.
func HighlightURL(c *filing.Chunk) string {
	meta := c.Meta
	if meta.LocalPath != "" {
		return fmt.Sprintf("/documents/%s/chunks/%s/file", meta.DocID, c.ID)
	}
	if meta.SourceURL == "" {
		return ""
	}
	if strings.HasSuffix(strings.ToLower(meta.SourceURL), ".pdf") && meta.PageStart > 0 {
		phrase := BuildSearchPhrase(c.Text)
		return fmt.Sprintf("%s#page=%d&search=%s", meta.SourceURL, meta.PageStart, url.QueryEscape(phrase))
	}
	return meta.SourceURL
}
