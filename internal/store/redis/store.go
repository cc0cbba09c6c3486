// Package redis implements the chunk store on Redis 8 / RediSearch via
// rueidis: one hash per chunk, an HNSW vector index over the hash prefix,
// and plain sets for ticker/period availability.
package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/quartermill/finsight/internal/filing"
	"github.com/quartermill/finsight/internal/store"
)

// Compile-time check: Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Config holds connection and index parameters.
type Config struct {
	Addrs      []string
	Username   string
	Password   string
	DB         int
	KeyPrefix  string // defaults to "finsight:"
	IndexName  string // defaults to "finsight-chunks"
	VectorDim  int    // embedding dimensionality, required
	HNSWM      int
	HNSWEFCons int
}

// Store is the rueidis-backed chunk store.
type Store struct {
	client rueidis.Client
	cfg    Config
}

// NewStore connects to Redis and returns the store.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if cfg.VectorDim <= 0 {
		return nil, fmt.Errorf("vector dimension is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "finsight:"
	}
	if cfg.IndexName == "" {
		cfg.IndexName = "finsight-chunks"
	}
	if cfg.HNSWM <= 0 {
		cfg.HNSWM = 32
	}
	if cfg.HNSWEFCons <= 0 {
		cfg.HNSWEFCons = 400
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &Store{client: client, cfg: cfg}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the store responds or the timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for store: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

func (s *Store) chunkKey(chunkID string) string {
	return s.cfg.KeyPrefix + "chunk:" + chunkID
}

func (s *Store) tickersKey() string {
	return s.cfg.KeyPrefix + "tickers"
}

func (s *Store) periodsKey(ticker string) string {
	return s.cfg.KeyPrefix + "periods:" + filing.NormalizeTicker(ticker)
}

// EnsureIndex creates the chunk index if absent.
func (s *Store) EnsureIndex(ctx context.Context) error {
	probe := s.client.B().Arbitrary("FT.INFO").Args(s.cfg.IndexName).Build()
	if err := s.client.Do(ctx, probe).Error(); err == nil {
		return nil
	} else if !isRedisErr(err, "unknown index name") && !isRedisErr(err, "no such index") {
		return &store.Error{Op: store.OpIndexInfo, Err: err}
	}

	args := []string{
		s.cfg.IndexName,
		"ON", "HASH",
		"PREFIX", "1", s.cfg.KeyPrefix + "chunk:",
		"SCHEMA",
		"ticker", "TAG",
		"period", "TAG",
		"doc_id", "TAG",
		"section", "TAG",
		"text", "TEXT",
		"page_start", "NUMERIC",
		"vector", "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.cfg.VectorDim),
		"DISTANCE_METRIC", "COSINE",
		"M", strconv.Itoa(s.cfg.HNSWM),
		"EF_CONSTRUCTION", strconv.Itoa(s.cfg.HNSWEFCons),
	}
	cmd := s.client.B().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return &store.Error{Op: store.OpCreateIndex, Err: err}
	}
	return nil
}

// Upsert writes chunk hashes and availability sets in one DoMulti
// round-trip. HSET by chunk key makes re-indexing overwrite in place.
func (s *Store) Upsert(ctx context.Context, entries []store.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, len(entries)*3)
	for i := range entries {
		e := &entries[i]
		hset := s.client.B().Hset().Key(s.chunkKey(e.Chunk.ID)).FieldValue()
		for k, v := range chunkFields(&e.Chunk) {
			hset = hset.FieldValue(k, v)
		}
		hset = hset.FieldValue("vector", vectorToBytes(e.Vector))
		cmds = append(cmds, hset.Build())

		ticker := filing.NormalizeTicker(e.Chunk.Meta.Ticker)
		cmds = append(cmds,
			s.client.B().Sadd().Key(s.tickersKey()).Member(ticker).Build(),
			s.client.B().Sadd().Key(s.periodsKey(ticker)).Member(e.Chunk.Meta.Period).Build(),
		)
	}

	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &store.Error{Op: store.OpHSet, Err: fmt.Errorf("command %d: %w", i, err)}
		}
	}
	return nil
}

// Get fetches a chunk hash by id.
func (s *Store) Get(ctx context.Context, chunkID string) (*filing.Chunk, error) {
	cmd := s.client.B().Hgetall().Key(s.chunkKey(chunkID)).Build()
	fields, err := s.client.Do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, &store.Error{Op: store.OpHGetAll, Err: err}
	}
	if len(fields) == 0 {
		return nil, store.ErrNotFound
	}
	chunk := chunkFromFields(chunkID, fields)
	return &chunk, nil
}

// TickerPeriods returns every indexed ticker with its sorted periods.
func (s *Store) TickerPeriods(ctx context.Context) (map[string][]string, error) {
	cmd := s.client.B().Smembers().Key(s.tickersKey()).Build()
	tickers, err := s.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &store.Error{Op: store.OpSMembers, Err: err}
	}

	out := make(map[string][]string, len(tickers))
	for _, ticker := range tickers {
		cmd := s.client.B().Smembers().Key(s.periodsKey(ticker)).Build()
		periods, err := s.client.Do(ctx, cmd).AsStrSlice()
		if err != nil {
			return nil, &store.Error{Op: store.OpSMembers, Err: err}
		}
		sort.Strings(periods)
		out[ticker] = periods
	}
	return out, nil
}

// isRedisErr checks if err is a Redis server error containing substr
// (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), substr)
}
