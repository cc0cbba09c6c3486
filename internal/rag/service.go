package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/quartermill/finsight/internal/store"
)

// systemPrompt frames the model as a filings analyst and forbids answers
// not grounded in the provided excerpts.
const systemPrompt = `You are a financial analysis assistant. Answer questions using ONLY the provided excerpts from company filings. Each excerpt is labeled [Chunk N | ticker | filing | period | pages].

Rules:
- Cite the chunks you used, e.g. "revenue grew 11% [Chunk 2]".
- Quote figures exactly as they appear; never compute new numbers unless asked.
- If the excerpts do not contain the answer, say so plainly.
- Keep answers concise and factual.`

// Completer is the slice of the LLM client the service needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Answer is a grounded response with its supporting citations.
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// Service ties retrieval and generation together.
type Service struct {
	retriever *Retriever
	chat      Completer
	store     store.Store
	log       *zap.Logger
}

// NewService wires the QA service.
func NewService(retriever *Retriever, chat Completer, st store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{retriever: retriever, chat: chat, store: st, log: log}
}

// Ask retrieves supporting chunks and generates a cited answer. When nothing
// matches the filters, the answer lists what IS indexed instead of guessing.
func (s *Service) Ask(ctx context.Context, question string, k int, f Filters) (Answer, error) {
	results, err := s.retriever.Retrieve(ctx, question, k, f)
	if err != nil {
		return Answer{}, err
	}
	if len(results) == 0 {
		msg, err := s.availabilityMessage(ctx, f)
		if err != nil {
			return Answer{}, err
		}
		return Answer{Text: msg, Citations: []Citation{}}, nil
	}

	// Citations and context go out most similar first.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	prompt := fmt.Sprintf("Excerpts:\n\n%s\n\nQuestion: %s", BuildContext(results), question)
	text, err := s.chat.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return Answer{}, err
	}

	citations := make([]Citation, 0, len(results))
	for _, r := range results {
		citations = append(citations, NewCitation(r))
	}
	return Answer{Text: text, Citations: citations}, nil
}

// availabilityMessage describes the indexed corpus when a query matched
// nothing, so the caller learns which tickers and periods exist.
func (s *Service) availabilityMessage(ctx context.Context, f Filters) (string, error) {
	available, err := s.store.TickerPeriods(ctx)
	if err != nil {
		return "", fmt.Errorf("list availability: %w", err)
	}
	if len(available) == 0 {
		return "No filings are indexed yet. Ingest documents before asking questions.", nil
	}

	tickers := make([]string, 0, len(available))
	for t := range available {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	var sb strings.Builder
	sb.WriteString("No matching filings were found")
	if len(f.Tickers) > 0 || f.Period != "" {
		sb.WriteString(" for the requested filters")
	}
	sb.WriteString(". Available filings:\n")
	for _, t := range tickers {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", t, strings.Join(available[t], ", ")))
	}
	return sb.String(), nil
}
