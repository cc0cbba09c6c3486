package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/quartermill/finsight/internal/filing"
)

// PDFParser handles PDF filings. It tries the Go library first, then falls
// back to pdftotext if available. Each page yields paragraph blocks plus
// table blocks lifted from column-aligned line runs, with per-page line
// numbers starting at 1, so a citation reads "page 5, lines 10-25" rather
// than a document-wide offset.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string, meta filing.Metadata) (*filing.Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "finsight-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	pages, err := extractPDFPages(tmpPath)
	if err != nil && p.FallbackPdftotext {
		pages, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	doc := &filing.Document{Metadata: meta}
	for i, pageText := range pages {
		pageNum := i + 1
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		doc.Blocks = append(doc.Blocks, pageBlocks(pageText, pageNum, len(doc.Blocks))...)
	}
	return doc, nil
}

// pageBlocks splits one PDF page into paragraph and table blocks. Text
// extraction carries no table markup, so rows are recovered from the column
// alignment pdftotext -layout preserves: two or more consecutive lines whose
// cells are separated by wide gaps become a table block with pipe-joined
// rows; everything else stays prose. Line numbers count raw page lines,
// resetting per page.
func pageBlocks(text string, page, n int) []*filing.Block {
	var blocks []*filing.Block
	lines := strings.Split(text, "\n")

	var para []filing.Line
	flushPara := func() {
		if len(para) == 0 {
			return
		}
		texts := make([]string, len(para))
		for i, l := range para {
			texts[i] = l.Text
		}
		blocks = append(blocks, &filing.Block{
			ID:    paragraphID(page, n+len(blocks)),
			Type:  filing.BlockParagraph,
			Page:  page,
			Text:  strings.Join(texts, "\n"),
			Lines: para,
		})
		para = nil
	}

	i := 0
	for i < len(lines) {
		trimmed := strings.TrimRight(lines[i], " \t")
		if strings.TrimSpace(trimmed) == "" {
			i++
			continue
		}
		if tableRowCells(trimmed) != nil {
			var rows [][]string
			var rowNums []int
			j := i
			for j < len(lines) {
				cells := tableRowCells(strings.TrimRight(lines[j], " \t"))
				if cells == nil {
					break
				}
				rows = append(rows, cells)
				rowNums = append(rowNums, j+1)
				j++
			}
			// A lone aligned line is prose; headings and page footers often
			// carry incidental wide gaps.
			if len(rows) >= 2 {
				flushPara()
				blocks = append(blocks, tableBlock(page, n+len(blocks), rows, rowNums))
				i = j
				continue
			}
		}
		para = append(para, filing.Line{Number: i + 1, Text: trimmed})
		i++
	}
	flushPara()
	return blocks
}

// columnGap matches the separators between layout-preserved table cells.
var columnGap = regexp.MustCompile(`\t+| {2,}`)

// tableRowCells splits a line on column gaps. Lines with fewer than three
// cells read as prose and return nil.
func tableRowCells(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	cells := columnGap.Split(trimmed, -1)
	if len(cells) < 3 {
		return nil
	}
	return cells
}

func tableBlock(page, n int, rows [][]string, rowNums []int) *filing.Block {
	var cells []filing.TableCell
	lines := make([]filing.Line, len(rows))
	texts := make([]string, len(rows))
	for r, row := range rows {
		for c, cell := range row {
			cells = append(cells, filing.TableCell{Row: r, Col: c, Text: cell})
		}
		texts[r] = strings.Join(row, " | ")
		lines[r] = filing.Line{Number: rowNums[r], Text: texts[r]}
	}
	return &filing.Block{
		ID:    tableID(page, n),
		Type:  filing.BlockTable,
		Page:  page,
		Text:  strings.Join(texts, "\n"),
		Lines: lines,
		Cells: cells,
	}
}

// extractPDFPages returns the plain text of every page, in order.
func extractPDFPages(path string) ([]string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(text) == "" {
			// Extraction backends are inconsistent: when the plain-text pass
			// comes back empty, join the page's raw text fragments with
			// single spaces instead.
			text = joinFragments(page.Content().Text)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func joinFragments(frags []pdflib.Text) string {
	parts := make([]string, 0, len(frags))
	for _, t := range frags {
		s := strings.TrimSpace(t.S)
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// extractPdftotext shells out to pdftotext; form feeds separate pages.
func extractPdftotext(path string) ([]string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return strings.Split(string(out), "\f"), nil
}
