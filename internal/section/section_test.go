package section

import (
	"testing"

	"github.com/quartermill/finsight/internal/filing"
)

func TestRegexTagger(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"income statement", "CONSOLIDATED STATEMENTS OF INCOME (in millions)", "income_statement"},
		{"income statement singular", "Consolidated Statement of Income", "income_statement"},
		{"balance sheet", "Consolidated Balance Sheets as of September 30", "balance_sheet"},
		{"cash flow", "consolidated statements of cash flows", "cash_flow"},
		{"revenue keyword", "Revenue by geography was as follows", "revenue"},
		{"sales keyword", "Net sales increased 11%", "revenue"},
		{"segment", "Our reportable segment results follow", "segment_information"},
		{"no match", "Forward-looking statements disclaimer", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := []*filing.Block{{Text: tt.text}}
			NewRegexTagger().Tag(blocks)
			if blocks[0].Section != tt.want {
				t.Errorf("section = %q, want %q", blocks[0].Section, tt.want)
			}
		})
	}
}

func TestRegexTaggerPrecedence(t *testing.T) {
	// A statement header mentioning sales must still tag as the statement;
	// the first matching pattern wins.
	blocks := []*filing.Block{{Text: "Consolidated Statements of Income: net sales and revenue"}}
	NewRegexTagger().Tag(blocks)
	if blocks[0].Section != "income_statement" {
		t.Errorf("section = %q, want income_statement", blocks[0].Section)
	}
}

func TestRegexTaggerKeepsExisting(t *testing.T) {
	blocks := []*filing.Block{{Text: "Revenue grew", Section: "balance_sheet"}}
	NewRegexTagger().Tag(blocks)
	if blocks[0].Section != "balance_sheet" {
		t.Error("tagger must not overwrite an existing section")
	}
}
