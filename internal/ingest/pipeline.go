// Package ingest runs uploaded PDFs through extraction, chunking, and
// embedding, then commits chunks and the ready status in one transaction.
//
// A document is visible to retrieval only after every one of its chunks is
// stored. Failures leave the document in the failed state with the stage
// that broke recorded, and never leave partial chunks behind.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/paperstack/paperstack/internal/chunker"
	"github.com/paperstack/paperstack/internal/document"
	"github.com/paperstack/paperstack/internal/log"
	"github.com/paperstack/paperstack/internal/pdf"
	"github.com/paperstack/paperstack/internal/sqlc"
)

// DocumentStore drives status transitions during processing.
type DocumentStore interface {
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, stage string) error
}

// Embedder turns chunk text into vectors. *embed.Client satisfies this.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Querier holds the chunk write operations the pipeline commits.
type Querier interface {
	DeleteDocumentChunks(ctx context.Context, docID pgtype.UUID) error
	InsertChunk(ctx context.Context, arg sqlc.InsertChunkParams) error
	SetDocumentReady(ctx context.Context, arg sqlc.SetDocumentReadyParams) (int64, error)
}

// Pipeline processes one document at a time. Multiple workers may share a
// Pipeline; it keeps no per-document state.
type Pipeline struct {
	docs     DocumentStore
	querier  Querier
	pool     *pgxpool.Pool
	chunker  *chunker.Chunker
	embedder Embedder
	logger   log.Logger

	// extract is swapped in tests to avoid crafting real PDFs.
	extract func(path string) (*pdf.Document, error)
}

// NewPipeline creates a Pipeline. pool may be nil in tests, which commits
// chunks through querier without a transaction.
func NewPipeline(docs DocumentStore, querier Querier, pool *pgxpool.Pool, ch *chunker.Chunker, embedder Embedder, logger log.Logger) *Pipeline {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{
		docs:     docs,
		querier:  querier,
		pool:     pool,
		chunker:  ch,
		embedder: embedder,
		logger:   logger,
		extract:  pdf.Extract,
	}
}

// Process ingests one document from its stored PDF. On failure the document
// is marked failed with the broken stage; the error is also returned for
// logging by the caller.
func (p *Pipeline) Process(ctx context.Context, docID uuid.UUID, storagePath string) error {
	start := time.Now()
	if err := p.docs.MarkProcessing(ctx, docID); err != nil {
		// Already claimed by another worker or in a terminal state.
		return err
	}

	doc, err := p.extract(storagePath)
	if err != nil {
		return p.fail(ctx, docID, document.StageExtract, err)
	}

	chunks := p.chunker.Split(doc)
	if len(chunks) == 0 {
		return p.fail(ctx, docID, document.StageChunk, errors.New("document produced no chunks"))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return p.fail(ctx, docID, document.StageEmbed, err)
	}

	if err := p.store(ctx, docID, doc.PageCount, chunks, vectors); err != nil {
		return p.fail(ctx, docID, document.StageStore, err)
	}

	p.logger.Info("document ingested",
		"id", docID,
		"pages", doc.PageCount,
		"chunks", len(chunks),
		"elapsed", time.Since(start),
	)
	return nil
}

// store commits all chunks and the ready flip atomically.
func (p *Pipeline) store(ctx context.Context, docID uuid.UUID, pageCount int, chunks []chunker.Chunk, vectors [][]float32) error {
	if p.pool == nil {
		return p.storeWith(ctx, p.querier, docID, pageCount, chunks, vectors)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			p.logger.Error("rollback failed", "error", rbErr)
		}
	}()

	if err := p.storeWith(ctx, sqlc.New(tx), docID, pageCount, chunks, vectors); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks: %w", err)
	}
	return nil
}

func (p *Pipeline) storeWith(ctx context.Context, q Querier, docID uuid.UUID, pageCount int, chunks []chunker.Chunk, vectors [][]float32) error {
	id := pgtype.UUID{Bytes: docID, Valid: true}

	// A failed earlier attempt of this version may have been interrupted
	// before its rollback; clear any leftovers first.
	if err := q.DeleteDocumentChunks(ctx, id); err != nil {
		return fmt.Errorf("clear existing chunks: %w", err)
	}

	for i, c := range chunks {
		vec := pgvector.NewVector(vectors[i])
		pageStart := int32(c.PageStart)
		pageEnd := int32(c.PageEnd)
		var section *string
		if c.Section != "" {
			section = &c.Section
		}
		if err := q.InsertChunk(ctx, sqlc.InsertChunkParams{
			DocID:      id,
			Content:    c.Content,
			Embedding:  &vec,
			PageStart:  &pageStart,
			PageEnd:    &pageEnd,
			Section:    section,
			TokenCount: int32(c.TokenCount),
		}); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	pages := int32(pageCount)
	affected, err := q.SetDocumentReady(ctx, sqlc.SetDocumentReadyParams{
		ID:        id,
		PageCount: &pages,
	})
	if err != nil {
		return fmt.Errorf("mark ready: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("document %s: %w", docID, document.ErrInvalidTransition)
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, docID uuid.UUID, stage string, cause error) error {
	if err := p.docs.MarkFailed(ctx, docID, stage); err != nil {
		p.logger.Error("could not mark document failed",
			"id", docID, "stage", stage, "error", err)
	}
	return fmt.Errorf("ingest %s stage: %w", stage, cause)
}
