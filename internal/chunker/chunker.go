// Package chunker turns a parsed document's blocks into overlapping,
// token-bounded chunks that keep page and line provenance, the record the
// vector index stores and citations are rebuilt from.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/quartermill/finsight/internal/filing"
)

// ErrInvalidConfig signals an unusable chunking configuration. It is
// returned before any document is processed.
var ErrInvalidConfig = errors.New("invalid chunking config")

// Config controls chunking behavior.
type Config struct {
	MaxTokens         int  // chunk size ceiling, in Length units
	OverlapTokens     int  // trailing words carried into the next chunk
	MaxBlockTokens    int  // blocks above this are pre-split before packing
	KeepTablesIntact  bool // tables pass through as one chunk each
	AddSectionHeaders bool // prefix chunk text with its section label

	// Length measures token counts; nil means WordCount.
	Length LengthFunc
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:        400,
		OverlapTokens:    50,
		MaxBlockTokens:   800,
		KeepTablesIntact: true,
	}
}

// Validate rejects configurations that would loop or lose content.
func (c Config) Validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: max_tokens must be positive, got %d", ErrInvalidConfig, c.MaxTokens)
	}
	if c.OverlapTokens < 0 {
		return fmt.Errorf("%w: overlap_tokens must not be negative, got %d", ErrInvalidConfig, c.OverlapTokens)
	}
	if c.OverlapTokens >= c.MaxTokens {
		return fmt.Errorf("%w: overlap_tokens (%d) must be smaller than max_tokens (%d)",
			ErrInvalidConfig, c.OverlapTokens, c.MaxTokens)
	}
	if c.MaxBlockTokens <= 0 {
		return fmt.Errorf("%w: max_block_tokens must be positive, got %d", ErrInvalidConfig, c.MaxBlockTokens)
	}
	return nil
}

// Chunker is a validated, reusable chunking pass. Chunking is deterministic:
// the same document and config always produce byte-identical chunks.
type Chunker struct {
	cfg    Config
	length LengthFunc
	log    *zap.Logger
}

// New validates the config and builds a Chunker.
func New(cfg Config, log *zap.Logger) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Length == nil {
		cfg.Length = WordCount
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Chunker{cfg: cfg, length: cfg.Length, log: log}, nil
}

// piece is one packable unit: a block, or a word-bounded slice of an
// oversized block, with its (possibly interpolated) line bounds.
type piece struct {
	block     *filing.Block
	lineStart int
	lineEnd   int
}

// passage is a boundary-split fragment of a piece's text, small enough to
// fit a window.
type passage struct {
	text string
	src  *piece
}

// Chunk converts a document into chunks. A document with zero blocks yields
// zero chunks.
func (c *Chunker) Chunk(doc *filing.Document) []filing.Chunk {
	var chunks []filing.Chunk
	seq := 0
	w := newWindow(c, doc.Metadata, &chunks, &seq)

	for _, block := range doc.Blocks {
		if block.Type == filing.BlockTable && c.cfg.KeepTablesIntact {
			// Splitting a table mid-row destroys its meaning, so an intact
			// table is always exactly one chunk, however long.
			w.flush()
			w.add(passage{text: block.Text, src: &piece{block, block.LineStart(), block.LineEnd()}})
			w.flush()
			continue
		}
		if block.Type == filing.BlockTable {
			c.log.Warn("splitting table block; row structure will be lost",
				zap.String("block_id", block.ID))
		}
		for _, p := range c.preSplit(block) {
			for _, text := range splitRecursive(p.block.Text, c.cfg.MaxTokens, c.length, 0) {
				w.add(passage{text: text, src: p})
			}
		}
	}
	w.flush()
	return chunks
}

// preSplit breaks blocks above MaxBlockTokens into consecutive word-bounded
// sub-blocks. Sub-block line bounds are estimated by linear interpolation
// over the word-to-line ratio; exact attribution would require re-locating
// every word in the parent's line list.
func (c *Chunker) preSplit(block *filing.Block) []*piece {
	total := c.length(block.Text)
	if total <= c.cfg.MaxBlockTokens {
		return []*piece{{block, block.LineStart(), block.LineEnd()}}
	}

	words := strings.Fields(block.Text)
	ls, le := block.LineStart(), block.LineEnd()
	lineSpan := le - ls + 1

	var pieces []*piece
	for start := 0; start < len(words); start += c.cfg.MaxBlockTokens {
		end := min(start+c.cfg.MaxBlockTokens, len(words))
		sub := block.Derive(strings.Join(words[start:end], " "))

		subLS, subLE := 0, 0
		if ls > 0 {
			subLS = ls + start*lineSpan/len(words)
			subLE = ls + (end*lineSpan-1)/len(words)
			if subLE > le {
				subLE = le
			}
		}
		pieces = append(pieces, &piece{sub, subLS, subLE})
	}
	return pieces
}

// separators from coarsest to finest; splitRecursive falls back to a
// character boundary when even single spaces leave a fragment too large.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " "}

func splitRecursive(text string, maxTokens int, length LengthFunc, depth int) []string {
	if length(text) <= maxTokens {
		return []string{text}
	}
	if depth >= len(separators) {
		return splitHalves(text, maxTokens, length)
	}
	// SplitAfter keeps separators attached so rejoined windows reproduce the
	// source text exactly.
	parts := strings.SplitAfter(text, separators[depth])
	if len(parts) == 1 {
		return splitRecursive(text, maxTokens, length, depth+1)
	}
	var out []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		out = append(out, splitRecursive(part, maxTokens, length, depth+1)...)
	}
	return out
}

func splitHalves(text string, maxTokens int, length LengthFunc) []string {
	runes := []rune(text)
	if length(text) <= maxTokens || len(runes) <= 1 {
		return []string{text}
	}
	mid := len(runes) / 2
	out := splitHalves(string(runes[:mid]), maxTokens, length)
	return append(out, splitHalves(string(runes[mid:]), maxTokens, length)...)
}

// window greedily packs passages up to MaxTokens, emitting a chunk on every
// close and carrying the trailing OverlapTokens words into the next window.
type window struct {
	c      *Chunker
	meta   filing.Metadata
	chunks *[]filing.Chunk
	seq    *int

	buf      strings.Builder
	tokens   int
	overlap  string // carried tail, not part of provenance
	lastText string // previous window's text, for overlap extraction
	sources  []*piece
}

func newWindow(c *Chunker, meta filing.Metadata, chunks *[]filing.Chunk, seq *int) *window {
	return &window{c: c, meta: meta, chunks: chunks, seq: seq}
}

func (w *window) add(p passage) {
	pTokens := w.c.length(p.text)
	if w.tokens+pTokens > w.c.cfg.MaxTokens && w.tokens > 0 {
		w.emit()
		w.overlap = lastWords(w.lastText, w.c.cfg.OverlapTokens)
	}
	if w.buf.Len() == 0 && w.overlap != "" {
		// The carried tail counts toward MaxTokens, so trim it to the room
		// left next to the incoming passage.
		seed := w.overlap
		if room := w.c.cfg.MaxTokens - pTokens; w.c.length(seed) > room {
			seed = lastWords(seed, room)
		}
		if seed != "" {
			w.buf.WriteString(seed)
			w.buf.WriteString(" ")
			w.tokens = w.c.length(seed)
		}
		w.overlap = ""
	}
	if w.buf.Len() > 0 && len(w.sources) > 0 && w.sources[len(w.sources)-1] != p.src {
		// New source block within the same window: paragraph separator.
		w.buf.WriteString("\n\n")
	}
	w.buf.WriteString(p.text)
	w.tokens += pTokens
	if len(w.sources) == 0 || w.sources[len(w.sources)-1] != p.src {
		w.sources = append(w.sources, p.src)
	}
}

// flush emits whatever is buffered and drops any pending overlap, so text
// never bleeds across a table boundary.
func (w *window) flush() {
	if w.tokens > 0 {
		w.emit()
	}
	w.overlap = ""
}

func (w *window) emit() {
	text := w.buf.String()
	w.lastText = text
	w.buf.Reset()
	sources := w.sources
	w.sources = nil
	w.tokens = 0

	*w.seq++
	if strings.TrimSpace(text) == "" {
		// Dropped chunks leave gaps in the sequence; ids must be unique,
		// not contiguous.
		return
	}

	meta := filing.ChunkMeta{
		DocID:      w.meta.DocID,
		Ticker:     filing.StorageTicker(w.meta.Ticker),
		FilingType: w.meta.FilingType,
		Period:     w.meta.Period,
		SourceURL:  w.meta.SourceURL,
		Title:      w.meta.Title,
		LocalPath:  w.meta.LocalPath,
	}

	ids := make([]string, 0, len(sources))
	for _, src := range sources {
		ids = append(ids, src.block.ID)
		if src.block.Page > 0 {
			if meta.PageStart == 0 || src.block.Page < meta.PageStart {
				meta.PageStart = src.block.Page
			}
			if src.block.Page > meta.PageEnd {
				meta.PageEnd = src.block.Page
			}
		}
		if src.lineStart > 0 && meta.LineStart == 0 {
			meta.LineStart = src.lineStart
		}
		if src.lineEnd > 0 {
			meta.LineEnd = src.lineEnd
		}
		if src.block.Section != "" && meta.Section == "" {
			meta.Section = src.block.Section
		}
	}
	meta.BlockIDs = strings.Join(ids, ",")

	// Line numbers are page-scoped; bounds taken from different pages do
	// not form a range, so a chunk spanning pages carries none.
	if meta.PageStart != meta.PageEnd {
		meta.LineStart, meta.LineEnd = 0, 0
	}

	if w.c.cfg.AddSectionHeaders && meta.Section != "" {
		text = "Section: " + meta.Section + "\n\n" + text
	}

	*w.chunks = append(*w.chunks, filing.Chunk{
		ID:   fmt.Sprintf("%s_chunk_%d", w.meta.DocID, *w.seq),
		Text: text,
		Meta: meta,
	})
}
