// Package document manages the lifecycle of uploaded PDFs: versioned
// creation, the pending/processing/ready/failed state machine, and
// ownership-scoped lookups.
package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/paperstack/paperstack/internal/log"
	"github.com/paperstack/paperstack/internal/sqlc"
)

// Querier defines the database operations the Store needs. Interfaces are
// defined by the consumer, which keeps the Store testable with a mock.
type Querier interface {
	CreateDocument(ctx context.Context, arg sqlc.CreateDocumentParams) (sqlc.Document, error)
	GetUserDocument(ctx context.Context, arg sqlc.GetUserDocumentParams) (sqlc.Document, error)
	GetLatestDocumentByHash(ctx context.Context, arg sqlc.GetLatestDocumentByHashParams) (sqlc.Document, error)
	ListDocuments(ctx context.Context, arg sqlc.ListDocumentsParams) ([]sqlc.Document, error)
	ListDocumentsByStatus(ctx context.Context, arg sqlc.ListDocumentsByStatusParams) ([]sqlc.Document, error)
	CountDocuments(ctx context.Context, userID pgtype.UUID) (int64, error)
	SetDocumentProcessing(ctx context.Context, id pgtype.UUID) (int64, error)
	SetDocumentFailed(ctx context.Context, arg sqlc.SetDocumentFailedParams) (int64, error)
	DeleteDocument(ctx context.Context, arg sqlc.DeleteDocumentParams) error
}

// Store persists document metadata in PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	querier Querier
	logger  log.Logger
}

// New creates a document Store.
func New(querier Querier, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{querier: querier, logger: logger}
}

// Create inserts a new document row in the pending state. If the same user
// already uploaded content with the same digest, the new row gets the next
// version number; otherwise version 1.
func (s *Store) Create(ctx context.Context, userID uuid.UUID, digest, filename, storagePath string) (*Document, error) {
	version := int32(1)
	prev, err := s.querier.GetLatestDocumentByHash(ctx, sqlc.GetLatestDocumentByHashParams{
		UserID: uuidToPg(userID),
		Sha256: digest,
	})
	switch {
	case err == nil:
		version = prev.Version + 1
	case errors.Is(err, pgx.ErrNoRows):
		// First upload of this content.
	default:
		return nil, fmt.Errorf("look up previous version: %w", err)
	}

	row, err := s.querier.CreateDocument(ctx, sqlc.CreateDocumentParams{
		UserID:      uuidToPg(userID),
		Sha256:      digest,
		Filename:    filename,
		StoragePath: storagePath,
		Version:     version,
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	doc := fromRow(row)
	s.logger.Debug("created document",
		"id", doc.ID, "filename", filename, "version", version)
	return doc, nil
}

// LatestByHash returns the most recent version of the user's document with
// the given content digest, or ErrNotFound.
func (s *Store) LatestByHash(ctx context.Context, userID uuid.UUID, digest string) (*Document, error) {
	row, err := s.querier.GetLatestDocumentByHash(ctx, sqlc.GetLatestDocumentByHashParams{
		UserID: uuidToPg(userID),
		Sha256: digest,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document by hash: %w", err)
	}
	return fromRow(row), nil
}

// Get returns the user's document with the given ID, or ErrNotFound when the
// document does not exist or belongs to someone else.
func (s *Store) Get(ctx context.Context, userID, id uuid.UUID) (*Document, error) {
	row, err := s.querier.GetUserDocument(ctx, sqlc.GetUserDocumentParams{
		ID:     uuidToPg(id),
		UserID: uuidToPg(userID),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return fromRow(row), nil
}

// List returns the user's documents ordered newest first.
func (s *Store) List(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]*Document, error) {
	rows, err := s.querier.ListDocuments(ctx, sqlc.ListDocumentsParams{
		UserID:       uuidToPg(userID),
		ResultLimit:  limit,
		ResultOffset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	docs := make([]*Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, fromRow(row))
	}
	return docs, nil
}

// ListByStatus returns the user's documents in the given status, newest
// first.
func (s *Store) ListByStatus(ctx context.Context, userID uuid.UUID, status string, limit, offset int32) ([]*Document, error) {
	rows, err := s.querier.ListDocumentsByStatus(ctx, sqlc.ListDocumentsByStatusParams{
		UserID:       uuidToPg(userID),
		Status:       status,
		ResultLimit:  limit,
		ResultOffset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list documents by status: %w", err)
	}
	docs := make([]*Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, fromRow(row))
	}
	return docs, nil
}

// Count returns how many documents the user has across all statuses.
func (s *Store) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.querier.CountDocuments(ctx, uuidToPg(userID))
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// MarkProcessing transitions a pending document to processing. Returns
// ErrInvalidTransition if the document was not pending, which also covers
// the case of two workers racing for the same document.
func (s *Store) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	affected, err := s.querier.SetDocumentProcessing(ctx, uuidToPg(id))
	if err != nil {
		return fmt.Errorf("mark document %s processing: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("document %s to processing: %w", id, ErrInvalidTransition)
	}
	return nil
}

// MarkFailed transitions a pending or processing document to failed,
// recording the ingestion stage that broke. Failed and ready documents are
// left untouched.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, stage string) error {
	affected, err := s.querier.SetDocumentFailed(ctx, sqlc.SetDocumentFailedParams{
		ID:           uuidToPg(id),
		FailureStage: &stage,
	})
	if err != nil {
		return fmt.Errorf("mark document %s failed: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("document %s to failed: %w", id, ErrInvalidTransition)
	}
	s.logger.Warn("document ingestion failed", "id", id, "stage", stage)
	return nil
}

// Delete removes the user's document. Chunks go with it via ON DELETE
// CASCADE. Returns ErrNotFound for unknown or foreign documents.
func (s *Store) Delete(ctx context.Context, userID, id uuid.UUID) error {
	// Ownership check first so a foreign ID reports not found rather
	// than silently succeeding.
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.querier.DeleteDocument(ctx, sqlc.DeleteDocumentParams{
		ID:     uuidToPg(id),
		UserID: uuidToPg(userID),
	}); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	s.logger.Debug("deleted document", "id", id)
	return nil
}

func fromRow(row sqlc.Document) *Document {
	doc := &Document{
		ID:          pgToUUID(row.ID),
		UserID:      pgToUUID(row.UserID),
		SHA256:      row.Sha256,
		Filename:    row.Filename,
		StoragePath: row.StoragePath,
		Status:      row.Status,
		Version:     int(row.Version),
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
	if row.FailureStage != nil {
		doc.FailureStage = *row.FailureStage
	}
	if row.PageCount != nil {
		doc.PageCount = int(*row.PageCount)
	}
	return doc
}

func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgToUUID(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return id.Bytes
}
