package rag

import (
	"fmt"
	"strings"

	"github.com/quartermill/finsight/internal/filing"
	"github.com/quartermill/finsight/internal/store"
)

// BuildContext formats retrieved chunks into the prompt context block. Each
// chunk gets a bracketed header the model can cite by number.
func BuildContext(results []store.Scored) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(contextHeader(i+1, &r.Chunk))
		sb.WriteString("\n")
		sb.WriteString(r.Chunk.Text)
	}
	return sb.String()
}

func contextHeader(n int, c *filing.Chunk) string {
	meta := c.Meta
	pages := "Page unknown"
	switch {
	case meta.PageStart > 0 && meta.PageEnd > meta.PageStart:
		pages = fmt.Sprintf("Page %d-%d", meta.PageStart, meta.PageEnd)
	case meta.PageStart > 0:
		pages = fmt.Sprintf("Page %d", meta.PageStart)
	}
	return fmt.Sprintf("[Chunk %d | %s | %s | %s | %s]",
		n, filing.NormalizeTicker(meta.Ticker), meta.FilingType, meta.Period, pages)
}
