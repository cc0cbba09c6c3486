package parser

import "testing"

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		wantErr  bool
	}{
		{"report.pdf", false},
		{"page.HTML", false},
		{"notes.md", false},
		{"dump.txt", false},
		{"deck.docx", false},
		{"table.csv", false},
		{"image.png", true},
		{"noext", true},
	}
	for _, tt := range tests {
		_, err := ForFile(tt.filename)
		if (err != nil) != tt.wantErr {
			t.Errorf("ForFile(%q) error = %v, wantErr %v", tt.filename, err, tt.wantErr)
		}
	}
}

func TestIsSupportedExtension(t *testing.T) {
	if !IsSupportedExtension("AMZN_Q3_2025.PDF") {
		t.Error("extension check must be case-insensitive")
	}
	if IsSupportedExtension("report.xlsx") {
		t.Error("xlsx is not supported")
	}
}

func TestBlockIDs(t *testing.T) {
	if got := paragraphID(2, 5); got != "p_2_5" {
		t.Errorf("paragraphID = %q", got)
	}
	if got := paragraphID(0, 5); got != "p_5" {
		t.Errorf("unpaginated paragraphID = %q", got)
	}
	if got := tableID(3, 0); got != "t_3_0" {
		t.Errorf("tableID = %q", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	if got := collapseWhitespace("  net \n sales\t grew  "); got != "net sales grew" {
		t.Errorf("collapseWhitespace = %q", got)
	}
}
