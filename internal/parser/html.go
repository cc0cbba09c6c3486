package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/quartermill/finsight/internal/filing"
)

// HTMLParser handles HTML filings (EDGAR pages, IR releases). HTML has no
// pagination and no meaningful line structure, so paragraph blocks carry no
// page number and no lines, and all whitespace runs collapse to single
// spaces.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string, meta filing.Metadata) (*filing.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := &filing.Document{Metadata: meta}
	if doc.Metadata.Title == "" {
		doc.Metadata.Title = findTitle(root)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "p":
				appendParagraph(doc, textContent(n))
				return
			case "div":
				// Only divs that don't wrap further block elements count as
				// paragraphs; container divs are recursed into instead.
				if !containsBlockElement(n) {
					appendParagraph(doc, textContent(n))
					return
				}
			case "table":
				appendTable(doc, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(root); body != nil {
		walk(body)
	} else {
		walk(root)
	}
	return doc, nil
}

func appendParagraph(doc *filing.Document, text string) {
	text = collapseWhitespace(text)
	if text == "" {
		return
	}
	doc.Blocks = append(doc.Blocks, &filing.Block{
		ID:   paragraphID(0, len(doc.Blocks)),
		Type: filing.BlockParagraph,
		Text: text,
	})
}

// appendTable renders a <table> as a table block: one line per <tr>, cells
// pipe-joined, with the flat cell list in row-major order.
func appendTable(doc *filing.Document, table *html.Node) {
	var cells []filing.TableCell
	var lines []filing.Line

	row := 0
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var rowTexts []string
			col := 0
			var visitCell func(*html.Node)
			visitCell = func(c *html.Node) {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					text := collapseWhitespace(textContent(c))
					cells = append(cells, filing.TableCell{Row: row, Col: col, Text: text})
					rowTexts = append(rowTexts, text)
					col++
					return
				}
				for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
					visitCell(cc)
				}
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				visitCell(c)
			}
			if len(rowTexts) > 0 {
				lines = append(lines, filing.Line{
					Number: len(lines) + 1,
					Text:   strings.Join(rowTexts, " | "),
				})
			}
			row++
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	for c := table.FirstChild; c != nil; c = c.NextSibling {
		visit(c)
	}

	if len(lines) == 0 {
		return
	}
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	doc.Blocks = append(doc.Blocks, &filing.Block{
		ID:    tableID(0, len(doc.Blocks)),
		Type:  filing.BlockTable,
		Text:  strings.Join(texts, "\n"),
		Lines: lines,
		Cells: cells,
	})
}

func containsBlockElement(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			switch c.Data {
			case "p", "div", "table":
				return true
			}
		}
		if containsBlockElement(c) {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return collapseWhitespace(textContent(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
