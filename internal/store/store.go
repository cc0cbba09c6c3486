// Package store defines the chunk store boundary: a keyed vector index with
// upsert/query/get semantics. The pipeline only talks to the external vector
// database through this interface.
package store

import (
	"context"
	"errors"

	"github.com/quartermill/finsight/internal/filing"
)

// ErrNotFound signals a missing chunk.
var ErrNotFound = errors.New("store: chunk not found")

// Command names for error context.
const (
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpHSet        = "HSET"
	OpHGetAll     = "HGETALL"
	OpSAdd        = "SADD"
	OpSMembers    = "SMEMBERS"
)

// Error wraps an underlying store error with the failed command name. Store
// errors are surfaced verbatim; the pipeline never retries them itself.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Entry is a chunk paired with its embedding vector.
type Entry struct {
	Chunk  filing.Chunk
	Vector []float32
}

// Scored is a retrieved chunk with its cosine distance (lower = more
// similar).
type Scored struct {
	Chunk    filing.Chunk
	Distance float64
}

// Filter is a conjunction of equality/membership conditions. The adapter
// owns case normalization: tickers may arrive in any case and are matched
// against the lowercase storage convention.
type Filter struct {
	Tickers []string
	Period  string
}

// Store is the chunk store adapter contract.
type Store interface {
	// EnsureIndex creates the search index if it does not exist yet.
	EnsureIndex(ctx context.Context) error

	// Upsert writes entries keyed by chunk id; re-indexing the same doc_id
	// overwrites prior chunks with colliding ids, making indexing idempotent.
	Upsert(ctx context.Context, entries []Entry) error

	// Query returns up to k chunks ranked by ascending distance. A query
	// matching nothing returns an empty slice, not an error.
	Query(ctx context.Context, vector []float32, k int, f Filter) ([]Scored, error)

	// Get fetches one chunk by id, or ErrNotFound.
	Get(ctx context.Context, chunkID string) (*filing.Chunk, error)

	// TickerPeriods maps every indexed ticker (canonical uppercase) to its
	// sorted list of periods, for availability reporting.
	TickerPeriods(ctx context.Context) (map[string][]string, error)

	Close()
}
