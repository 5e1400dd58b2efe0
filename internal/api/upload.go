package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/paperstack/paperstack/internal/ingest"
	"github.com/paperstack/paperstack/internal/log"
)

// maxMultipartMemory bounds the in-memory portion of multipart parsing.
// Larger file parts spill to temp files.
const maxMultipartMemory = 8 << 20

// uploadService is the slice of ingest.Uploader the handler needs.
type uploadService interface {
	Upload(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (*ingest.Result, error)
}

// UploadHandler accepts PDF uploads and registers them for ingestion.
type UploadHandler struct {
	uploader uploadService
	logger   log.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(uploader uploadService, logger log.Logger) *UploadHandler {
	return &UploadHandler{uploader: uploader, logger: logger}
}

// RegisterRoutes registers upload routes on the given mux.
func (h *UploadHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/upload", h.upload)
}

// UploadResponse is the response body for an accepted upload.
type UploadResponse struct {
	DocID    string `json:"doc_id"`
	Status   string `json:"status"`
	Filename string `json:"filename"`
	Version  int    `json:"version"`
	Message  string `json:"message"`
}

// upload handles POST /api/v1/upload.
//
// Expects a multipart form with a "file" part and an optional "user_id"
// field. Returns 202 Accepted with the pending document; processing
// happens asynchronously. An identical file already ingested for the same
// user returns 200 with the existing document instead.
func (h *UploadHandler) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "expected multipart form data")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Debug("removing multipart temp files", "error", err)
		}
	}()

	userID, err := parseUserID(r.FormValue("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing file field")
		return
	}
	defer file.Close()

	result, err := h.uploader.Upload(r.Context(), userID, header.Filename, file)
	if err != nil {
		h.writeUploadError(w, r, err)
		return
	}

	doc := result.Document
	if result.Deduplicated {
		writeJSON(w, http.StatusOK, UploadResponse{
			DocID:    doc.ID.String(),
			Status:   doc.Status,
			Filename: doc.Filename,
			Version:  doc.Version,
			Message:  "Document already exists and is ready",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, UploadResponse{
		DocID:    doc.ID.String(),
		Status:   doc.Status,
		Filename: doc.Filename,
		Version:  doc.Version,
		Message:  "Document accepted for processing",
	})
}

func (h *UploadHandler) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ingest.ErrNotPDF), errors.Is(err, ingest.ErrEmpty):
		writeError(w, http.StatusUnprocessableEntity, "invalid_file", "only non-empty PDF files are accepted")
	case errors.Is(err, ingest.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload size limit")
	case errors.Is(err, ingest.ErrQueueFull):
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, "busy", "ingestion queue is full, retry later")
	default:
		h.logger.Error("upload failed", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal_error", "upload failed")
	}
}
