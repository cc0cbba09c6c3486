package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/quartermill/finsight/internal/filing"
)

// CSVParser handles CSV exports of financial data tables. The whole file
// becomes a single table block: one line per row, cells pipe-joined, with
// the flat cell list in row-major order.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string, meta filing.Metadata) (*filing.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // ragged rows are fine, cells carry coordinates

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &filing.Document{Metadata: meta}
	if len(records) == 0 {
		return doc, nil
	}

	var cells []filing.TableCell
	var lines []filing.Line
	for rIdx, row := range records {
		rowTexts := make([]string, 0, len(row))
		for cIdx, cell := range row {
			text := strings.TrimSpace(cell)
			cells = append(cells, filing.TableCell{Row: rIdx, Col: cIdx, Text: text})
			rowTexts = append(rowTexts, text)
		}
		lines = append(lines, filing.Line{
			Number: len(lines) + 1,
			Text:   strings.Join(rowTexts, " | "),
		})
	}

	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	doc.Blocks = append(doc.Blocks, &filing.Block{
		ID:    tableID(0, 0),
		Type:  filing.BlockTable,
		Text:  strings.Join(texts, "\n"),
		Lines: lines,
		Cells: cells,
	})
	return doc, nil
}
