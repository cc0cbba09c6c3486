package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/quartermill/finsight/internal/filing"
	"github.com/quartermill/finsight/internal/store"
)

// returnFields lists every hash field fetched on search. The vector itself is
// deliberately excluded; it is dead weight on the response.
var returnFields = []string{
	"doc_id", "ticker", "filing_type", "period", "source_url", "title",
	"local_path", "section", "block_ids", "page_start", "page_end",
	"line_start", "line_end", "text", distanceField,
}

const distanceField = "__vector_score"

// Query runs a KNN search with optional tag filters and returns results
// sorted by ascending cosine distance.
func (s *Store) Query(ctx context.Context, vector []float32, k int, f store.Filter) ([]store.Scored, error) {
	if k <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf("%s=>[KNN %d @vector $vec AS %s]", buildFilter(f), k, distanceField)

	args := []string{s.cfg.IndexName, query, "PARAMS", "2", "vec", vectorToBytes(vector)}
	args = append(args, "RETURN", strconv.Itoa(len(returnFields)))
	args = append(args, returnFields...)
	args = append(args, "SORTBY", distanceField, "ASC", "LIMIT", "0", strconv.Itoa(k), "DIALECT", "2")

	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &store.Error{Op: store.OpSearch, Err: err}
	}

	// RESP2 layout: [total, key1, fields1, key2, fields2, ...].
	if len(raw) < 1 {
		return nil, &store.Error{Op: store.OpSearch, Err: fmt.Errorf("empty reply")}
	}
	out := make([]store.Scored, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			return nil, &store.Error{Op: store.OpSearch, Err: fmt.Errorf("result key at %d: %w", i, err)}
		}
		fields, err := raw[i+1].AsStrMap()
		if err != nil {
			return nil, &store.Error{Op: store.OpSearch, Err: fmt.Errorf("result fields for %s: %w", key, err)}
		}

		chunkID := strings.TrimPrefix(key, s.cfg.KeyPrefix+"chunk:")
		dist, err := strconv.ParseFloat(fields[distanceField], 64)
		if err != nil {
			return nil, &store.Error{Op: store.OpSearch, Err: fmt.Errorf("distance for %s: %w", key, err)}
		}
		out = append(out, store.Scored{
			Chunk:    chunkFromFields(chunkID, fields),
			Distance: dist,
		})
	}
	return out, nil
}

// tagEscaper escapes RediSearch TAG syntax characters in filter values.
var tagEscaper = strings.NewReplacer(
	",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>", "{", "\\{", "}", "\\}",
	"[", "\\[", "]", "\\]", "\"", "\\\"", "'", "\\'", ":", "\\:", ";", "\\;",
	"!", "\\!", "@", "\\@", "#", "\\#", "$", "\\$", "%", "\\%", "^", "\\^",
	"&", "\\&", "*", "\\*", "(", "\\(", ")", "\\)", "-", "\\-", "+", "\\+",
	"=", "\\=", "~", "\\~", "|", "\\|", "/", "\\/", " ", "\\ ",
)

// buildFilter renders a Filter as a RediSearch pre-filter expression.
// Tickers are OR'd inside one TAG clause; conditions are AND'd by
// juxtaposition. An empty filter matches everything ("*").
func buildFilter(f store.Filter) string {
	var conds []string

	if len(f.Tickers) > 0 {
		escaped := make([]string, 0, len(f.Tickers))
		for _, t := range f.Tickers {
			st := filing.StorageTicker(t)
			if st == "" {
				continue
			}
			escaped = append(escaped, tagEscaper.Replace(st))
		}
		if len(escaped) > 0 {
			conds = append(conds, "@ticker:{"+strings.Join(escaped, "|")+"}")
		}
	}
	if f.Period != "" {
		conds = append(conds, "@period:{"+tagEscaper.Replace(f.Period)+"}")
	}

	switch len(conds) {
	case 0:
		return "*"
	case 1:
		return conds[0]
	default:
		return "(" + strings.Join(conds, " ") + ")"
	}
}

// vectorToBytes encodes float32s in little-endian byte order, the layout
// RediSearch expects for FLOAT32 vector fields.
func vectorToBytes(vec []float32) string {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return string(buf)
}

// chunkFields flattens a chunk into its hash representation. Zero-valued
// numeric fields are written as "0" so reads never distinguish missing from
// unknown.
func chunkFields(c *filing.Chunk) map[string]string {
	return map[string]string{
		"doc_id":      c.Meta.DocID,
		"ticker":      c.Meta.Ticker,
		"filing_type": c.Meta.FilingType,
		"period":      c.Meta.Period,
		"source_url":  c.Meta.SourceURL,
		"title":       c.Meta.Title,
		"local_path":  c.Meta.LocalPath,
		"section":     c.Meta.Section,
		"block_ids":   c.Meta.BlockIDs,
		"page_start":  strconv.Itoa(c.Meta.PageStart),
		"page_end":    strconv.Itoa(c.Meta.PageEnd),
		"line_start":  strconv.Itoa(c.Meta.LineStart),
		"line_end":    strconv.Itoa(c.Meta.LineEnd),
		"text":        c.Text,
	}
}

// chunkFromFields rebuilds a chunk from its hash fields. Unparseable
// numerics degrade to 0 (unknown) rather than failing the read.
func chunkFromFields(chunkID string, fields map[string]string) filing.Chunk {
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	return filing.Chunk{
		ID:   chunkID,
		Text: fields["text"],
		Meta: filing.ChunkMeta{
			DocID:      fields["doc_id"],
			Ticker:     fields["ticker"],
			FilingType: fields["filing_type"],
			Period:     fields["period"],
			SourceURL:  fields["source_url"],
			Title:      fields["title"],
			LocalPath:  fields["local_path"],
			Section:    fields["section"],
			BlockIDs:   fields["block_ids"],
			PageStart:  atoi(fields["page_start"]),
			PageEnd:    atoi(fields["page_end"]),
			LineStart:  atoi(fields["line_start"]),
			LineEnd:    atoi(fields["line_end"]),
		},
	}
}
