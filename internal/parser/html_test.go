package parser

import (
	"strings"
	"testing"

	"github.com/quartermill/finsight/internal/filing"
)

const sampleHTML = `<!DOCTYPE html>
<html>
<head><title>Amazon Q3 2025 Earnings</title><script>var x = 1;</script></head>
<body>
<nav><p>Home | Investors</p></nav>
<p>Net sales increased 11% to $158.9 billion in the third quarter.</p>
<div>
  <p>Operating income increased to $17.4 billion.</p>
</div>
<div>Standalone summary text.</div>
<table>
  <tr><th>Segment</th><th>Revenue</th></tr>
  <tr><td>AWS</td><td>$27.5B</td></tr>
</table>
<footer><p>Copyright</p></footer>
</body>
</html>`

func TestHTMLParser(t *testing.T) {
	meta := filing.Metadata{DocID: "amzn_Q3-2025_earnings", Ticker: "AMZN", Period: "Q3-2025"}
	doc, err := (&HTMLParser{}).Parse(strings.NewReader(sampleHTML), "earnings.html", meta)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if doc.Metadata.Title != "Amazon Q3 2025 Earnings" {
		t.Errorf("title = %q", doc.Metadata.Title)
	}

	if len(doc.Blocks) != 4 {
		for _, b := range doc.Blocks {
			t.Logf("block %s (%s): %q", b.ID, b.Type, b.Text)
		}
		t.Fatalf("got %d blocks, want 4 (nav/footer/script skipped)", len(doc.Blocks))
	}

	first := doc.Blocks[0]
	if first.Type != filing.BlockParagraph {
		t.Errorf("first block type = %s", first.Type)
	}
	if first.Page != 0 {
		t.Error("html blocks are unpaginated")
	}
	if len(first.Lines) != 0 {
		t.Error("html paragraph blocks carry no lines")
	}
	if !strings.Contains(first.Text, "$158.9 billion") {
		t.Errorf("first block text = %q", first.Text)
	}

	table := doc.Blocks[3]
	if table.Type != filing.BlockTable {
		t.Fatalf("last block type = %s, want table", table.Type)
	}
	if len(table.Lines) != 2 {
		t.Fatalf("table lines = %d, want one per row", len(table.Lines))
	}
	if table.Lines[0].Text != "Segment | Revenue" {
		t.Errorf("table row line = %q", table.Lines[0].Text)
	}
	if len(table.Cells) != 4 {
		t.Errorf("table cells = %d, want 4", len(table.Cells))
	}
	if table.Cells[2] != (filing.TableCell{Row: 1, Col: 0, Text: "AWS"}) {
		t.Errorf("cell coordinates wrong: %+v", table.Cells[2])
	}
}

func TestHTMLParserTitleNotOverwritten(t *testing.T) {
	meta := filing.Metadata{DocID: "d", Ticker: "AMZN", Period: "Q3-2025", Title: "Provided"}
	doc, err := (&HTMLParser{}).Parse(strings.NewReader(sampleHTML), "earnings.html", meta)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Metadata.Title != "Provided" {
		t.Errorf("title = %q, caller-provided title must win", doc.Metadata.Title)
	}
}
