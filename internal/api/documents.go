package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/paperstack/paperstack/internal/document"
	"github.com/paperstack/paperstack/internal/log"
)

// Document list pagination bounds.
const (
	DefaultDocumentLimit = 50
	MaxDocumentLimit     = 200
	MaxDocumentOffset    = 100000
)

// documentService is the slice of document.Store the handler needs.
type documentService interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*document.Document, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]*document.Document, error)
	ListByStatus(ctx context.Context, userID uuid.UUID, status string, limit, offset int32) ([]*document.Document, error)
	Count(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// DocumentHandler handles document-related HTTP endpoints.
type DocumentHandler struct {
	docs   documentService
	logger log.Logger
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(docs documentService, logger log.Logger) *DocumentHandler {
	return &DocumentHandler{docs: docs, logger: logger}
}

// RegisterRoutes registers document routes on the given mux.
func (h *DocumentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/documents", h.list)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.get)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.delete)
}

// DocumentResponse is the JSON shape of a document.
type DocumentResponse struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Status       string    `json:"status"`
	FailureStage string    `json:"failure_stage,omitempty"`
	PageCount    int       `json:"page_count"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toDocumentResponse(d *document.Document) DocumentResponse {
	return DocumentResponse{
		ID:           d.ID.String(),
		Filename:     d.Filename,
		Status:       d.Status,
		FailureStage: d.FailureStage,
		PageCount:    d.PageCount,
		Version:      d.Version,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// list returns the user's documents, newest first.
// Query parameters:
//   - user_id: Caller identity (default: the anonymous user)
//   - status: Filter by status (pending, processing, ready, failed)
//   - limit: Maximum number of documents to return (default: 50, max: 200)
//   - offset: Number of documents to skip (default: 0)
func (h *DocumentHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	limit := parseIntParam(r, "limit", DefaultDocumentLimit, 1, MaxDocumentLimit)
	offset := parseIntParam(r, "offset", 0, 0, MaxDocumentOffset)

	status := r.URL.Query().Get("status")
	switch status {
	case "", document.StatusPending, document.StatusProcessing, document.StatusReady, document.StatusFailed:
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown status filter")
		return
	}

	var docs []*document.Document
	// #nosec G115 -- limit and offset are bounded by parseIntParam
	if status == "" {
		docs, err = h.docs.List(r.Context(), userID, int32(limit), int32(offset))
	} else {
		docs, err = h.docs.ListByStatus(r.Context(), userID, status, int32(limit), int32(offset))
	}
	if err != nil {
		h.logger.Error("failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list documents")
		return
	}

	total, err := h.docs.Count(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to count documents", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list documents")
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents": out,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// get returns a single document by ID.
func (h *DocumentHandler) get(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	doc, err := h.docs.Get(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		h.logger.Error("failed to get document", "error", err, "doc_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get document")
		return
	}

	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// delete removes a document and its chunks.
func (h *DocumentHandler) delete(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.docs.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, document.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		h.logger.Error("failed to delete document", "error", err, "doc_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete document")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
