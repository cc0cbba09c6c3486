package parser

import (
	"strings"
	"testing"

	"github.com/quartermill/finsight/internal/filing"
)

func TestCSVParser(t *testing.T) {
	input := "Segment,Q3 2025,Q3 2024\nAWS,27452,23059\nTotal,158877\n"
	doc, err := (&CSVParser{}).Parse(strings.NewReader(input), "segments.csv", filing.Metadata{DocID: "d"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(doc.Blocks) != 1 {
		t.Fatalf("got %d blocks, want one table block", len(doc.Blocks))
	}
	table := doc.Blocks[0]
	if table.Type != filing.BlockTable {
		t.Fatalf("block type = %s", table.Type)
	}
	if len(table.Lines) != 3 {
		t.Fatalf("lines = %d, want one per row", len(table.Lines))
	}
	if table.Lines[1].Text != "AWS | 27452 | 23059" {
		t.Errorf("row line = %q", table.Lines[1].Text)
	}
	// Ragged third row still parses with its own cell count.
	if len(table.Cells) != 8 {
		t.Errorf("cells = %d, want 8", len(table.Cells))
	}
	last := table.Cells[len(table.Cells)-1]
	if last.Row != 2 || last.Col != 1 || last.Text != "158877" {
		t.Errorf("last cell = %+v", last)
	}
}

func TestCSVParserEmpty(t *testing.T) {
	doc, err := (&CSVParser{}).Parse(strings.NewReader(""), "empty.csv", filing.Metadata{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Blocks) != 0 {
		t.Errorf("empty csv produced %d blocks", len(doc.Blocks))
	}
}
