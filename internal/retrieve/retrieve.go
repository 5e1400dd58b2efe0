// Package retrieve finds the document chunks most similar to a question
// using pgvector cosine search, scoped to an explicit set of documents.
package retrieve

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/paperstack/paperstack/internal/log"
	"github.com/paperstack/paperstack/internal/sqlc"
)

// Querier defines the database operations the Retriever needs.
type Querier interface {
	MatchChunks(ctx context.Context, arg sqlc.MatchChunksParams) ([]sqlc.MatchChunksRow, error)
}

// QueryEmbedder embeds a question into the same vector space as stored
// chunks. *embed.Client satisfies this.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Result is one retrieved chunk with its similarity to the query.
type Result struct {
	ChunkID    uuid.UUID
	DocID      uuid.UUID
	Content    string
	PageStart  int
	PageEnd    int
	Section    string
	TokenCount int
	Similarity float64
}

// Config holds retrieval defaults. Per-call options override them.
type Config struct {
	// TopK is the maximum number of chunks returned.
	TopK int
	// Threshold is the minimum cosine similarity for a chunk to count.
	Threshold float64
	// FallbackThreshold, when positive and lower than Threshold, is
	// retried once if the primary threshold returns nothing. Zero
	// disables the fallback.
	FallbackThreshold float64
}

// Option overrides retrieval defaults for a single call.
type Option func(*Config)

// WithTopK caps the number of returned chunks for this call.
func WithTopK(k int) Option {
	return func(c *Config) { c.TopK = k }
}

// WithThreshold sets the minimum similarity for this call.
func WithThreshold(t float64) Option {
	return func(c *Config) { c.Threshold = t }
}

// Retriever performs similarity search over chunks of ready documents.
//
// Retriever is safe for concurrent use.
type Retriever struct {
	querier  Querier
	embedder QueryEmbedder
	cfg      Config
	logger   log.Logger
}

// New creates a Retriever.
func New(querier Querier, embedder QueryEmbedder, cfg Config, logger log.Logger) (*Retriever, error) {
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("retrieve: top-k must be positive, got %d", cfg.TopK)
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("retrieve: threshold %v must be in [0, 1]", cfg.Threshold)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Retriever{querier: querier, embedder: embedder, cfg: cfg, logger: logger}, nil
}

// Retrieve embeds the query and returns the most similar chunks drawn only
// from the given documents, ordered by descending similarity.
//
// An empty docIDs slice returns no results without touching the embedding
// provider: with nothing to search there is nothing to spend.
func (r *Retriever) Retrieve(ctx context.Context, query string, docIDs []uuid.UUID, opts ...Option) ([]Result, error) {
	if len(docIDs) == 0 {
		return nil, nil
	}

	cfg := r.cfg
	for _, opt := range opts {
		opt(&cfg)
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.search(ctx, vector, docIDs, cfg.Threshold, cfg.TopK)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 && cfg.FallbackThreshold > 0 && cfg.FallbackThreshold < cfg.Threshold {
		r.logger.Debug("no chunks above threshold, retrying with fallback",
			"threshold", cfg.Threshold, "fallback", cfg.FallbackThreshold)
		results, err = r.search(ctx, vector, docIDs, cfg.FallbackThreshold, cfg.TopK)
		if err != nil {
			return nil, err
		}
	}

	r.logger.Debug("retrieved chunks",
		"query_len", len(query), "docs", len(docIDs), "results", len(results))
	return results, nil
}

func (r *Retriever) search(ctx context.Context, vector []float32, docIDs []uuid.UUID, threshold float64, topK int) ([]Result, error) {
	filter := make([]pgtype.UUID, len(docIDs))
	for i, id := range docIDs {
		filter[i] = pgtype.UUID{Bytes: id, Valid: true}
	}

	vec := pgvector.NewVector(vector)
	rows, err := r.querier.MatchChunks(ctx, sqlc.MatchChunksParams{
		QueryEmbedding: &vec,
		FilterDocIds:   filter,
		MatchThreshold: threshold,
		MatchCount:     int32(topK),
	})
	if err != nil {
		return nil, fmt.Errorf("match chunks: %w", err)
	}

	allowed := make(map[uuid.UUID]bool, len(docIDs))
	for _, id := range docIDs {
		allowed[id] = true
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		docID := uuid.UUID(row.DocID.Bytes)
		// The SQL function already filters by document. Verify anyway:
		// a chunk from outside the requested set must never reach the
		// prompt.
		if !allowed[docID] {
			return nil, fmt.Errorf("match chunks: chunk %x outside requested documents", row.ID.Bytes)
		}
		r := Result{
			ChunkID:    uuid.UUID(row.ID.Bytes),
			DocID:      docID,
			Content:    row.Content,
			TokenCount: int(row.TokenCount),
			Similarity: row.Similarity,
		}
		if row.PageStart != nil {
			r.PageStart = int(*row.PageStart)
		}
		if row.PageEnd != nil {
			r.PageEnd = int(*row.PageEnd)
		}
		if row.Section != nil {
			r.Section = *row.Section
		}
		results = append(results, r)
	}
	return results, nil
}
