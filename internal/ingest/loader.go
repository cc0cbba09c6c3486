package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/quartermill/finsight/internal/filing"
	"github.com/quartermill/finsight/internal/llm"
	"github.com/quartermill/finsight/internal/parser"
	"github.com/quartermill/finsight/internal/store"
)

// Loader batch-indexes the filings already on disk, laid out as
// <root>/<TICKER>/<files>.
type Loader struct {
	indexer *Indexer
	root    string
	log     *zap.Logger
}

// NewLoader creates a directory loader rooted at the filings directory.
func NewLoader(indexer *Indexer, root string, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{indexer: indexer, root: root, log: log}
}

// LoadSummary aggregates a batch run.
type LoadSummary struct {
	Documents int
	Chunks    int
	Skipped   []string
}

// LoadTicker indexes every supported file in the ticker's directory. The
// directory is looked up by uppercase name first, then lowercase. Files that
// fail to parse or carry no recognizable period are skipped and logged; an
// embedding or store failure aborts the run.
func (l *Loader) LoadTicker(ctx context.Context, ticker string) (LoadSummary, error) {
	dir, err := l.tickerDir(ticker)
	if err != nil {
		return LoadSummary{}, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return LoadSummary{}, fmt.Errorf("read %s: %w", dir, err)
	}

	var summary LoadSummary
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !parser.IsSupportedExtension(name) {
			continue
		}
		path := filepath.Join(dir, name)

		res, err := l.loadFile(ctx, ticker, path)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			if isAbortErr(err) {
				return summary, fmt.Errorf("index %s: %w", name, err)
			}
			l.log.Warn("skipping filing", zap.String("file", name), zap.Error(err))
			summary.Skipped = append(summary.Skipped, name)
			continue
		}
		summary.Documents++
		summary.Chunks += res.Chunks
		l.log.Info("indexed filing",
			zap.String("doc_id", res.DocID),
			zap.Int("chunks", res.Chunks),
			zap.Int("pages", res.Pages))
	}
	return summary, nil
}

// LoadAll indexes every ticker directory under the root.
func (l *Loader) LoadAll(ctx context.Context) (LoadSummary, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return LoadSummary{}, fmt.Errorf("read %s: %w", l.root, err)
	}

	var summary LoadSummary
	seen := map[string]bool{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ticker := filing.NormalizeTicker(entry.Name())
		if seen[ticker] {
			continue
		}
		seen[ticker] = true

		s, err := l.LoadTicker(ctx, ticker)
		summary.Documents += s.Documents
		summary.Chunks += s.Chunks
		summary.Skipped = append(summary.Skipped, s.Skipped...)
		if err != nil {
			return summary, err
		}
	}
	return summary, nil
}

func (l *Loader) loadFile(ctx context.Context, ticker, path string) (Result, error) {
	name := filepath.Base(path)

	period, err := PeriodFromFilename(name)
	if err != nil {
		return Result{}, err
	}

	meta, err := filing.NewMetadata(DocIDFor(ticker, period, name), ticker, filingTypeFor(period), period)
	if err != nil {
		return Result{}, err
	}
	meta.LocalPath = path
	meta.Title = titleFromFilename(name)

	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	return l.indexer.IndexDocument(ctx, f, name, meta, nil)
}

// tickerDir resolves the ticker's directory, trying the uppercase name and
// falling back to lowercase.
func (l *Loader) tickerDir(ticker string) (string, error) {
	upper := filepath.Join(l.root, filing.NormalizeTicker(ticker))
	if info, err := os.Stat(upper); err == nil && info.IsDir() {
		return upper, nil
	}
	lower := filepath.Join(l.root, filing.StorageTicker(ticker))
	if info, err := os.Stat(lower); err == nil && info.IsDir() {
		return lower, nil
	}
	return "", fmt.Errorf("no filings directory for ticker %s under %s", ticker, l.root)
}

// filingTypeFor maps a period form to its usual SEC filing type.
func filingTypeFor(period string) string {
	if strings.HasPrefix(period, "FY-") {
		return "10-K"
	}
	return "10-Q"
}

func titleFromFilename(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.Join(strings.FieldsFunc(stem, func(r rune) bool {
		return r == '_' || r == '-'
	}), " ")
}

// isAbortErr reports whether the error should stop the whole batch rather
// than skip one file. Embedding and store failures are systemic; parse and
// period errors are per-file.
func isAbortErr(err error) bool {
	var se *store.Error
	return errors.Is(err, llm.ErrEmbeddingService) || errors.As(err, &se)
}
