// Package section annotates blocks with a coarse financial-statement
// section label. Tagging is best-effort: blocks matching nothing stay
// unlabeled, and the label is advisory metadata only.
package section

import (
	"regexp"

	"github.com/quartermill/finsight/internal/filing"
)

// Tagger assigns section labels to blocks in place. It is an interface so
// the pattern table can be swapped or extended without touching the chunker.
type Tagger interface {
	Tag(blocks []*filing.Block)
}

// pattern pairs a section name with its matcher. Order matters: the first
// match wins, so the statement headers come before the broad revenue and
// segment catch-alls.
type pattern struct {
	name string
	re   *regexp.Regexp
}

// RegexTagger is the default heuristic tagger.
type RegexTagger struct {
	patterns []pattern
}

// NewRegexTagger builds a tagger with the standard financial-statement
// pattern table.
func NewRegexTagger() *RegexTagger {
	return &RegexTagger{
		patterns: []pattern{
			{"income_statement", regexp.MustCompile(`(?i)consolidated statements? of income`)},
			{"balance_sheet", regexp.MustCompile(`(?i)consolidated balance sheets?`)},
			{"cash_flow", regexp.MustCompile(`(?i)consolidated statements? of cash flows`)},
			{"revenue", regexp.MustCompile(`(?i)\brevenue\b|\bsales\b`)},
			{"segment_information", regexp.MustCompile(`(?i)\bsegment\b`)},
		},
	}
}

// Tag writes Section on each matching block. A block already carrying a
// section is left alone; the field is written at most once.
func (t *RegexTagger) Tag(blocks []*filing.Block) {
	for _, block := range blocks {
		if block.Section != "" {
			continue
		}
		for _, p := range t.patterns {
			if p.re.MatchString(block.Text) {
				block.Section = p.name
				break
			}
		}
	}
}
