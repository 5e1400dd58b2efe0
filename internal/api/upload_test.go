package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/paperstack/paperstack/internal/document"
	"github.com/paperstack/paperstack/internal/ingest"
	"github.com/paperstack/paperstack/internal/log"
)

type mockUploadService struct {
	uploadFn func(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (*ingest.Result, error)
}

func (m *mockUploadService) Upload(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (*ingest.Result, error) {
	return m.uploadFn(ctx, userID, filename, r)
}

// multipartUpload builds a multipart request body with a file part and
// optional user_id field.
func multipartUpload(t *testing.T, filename, userID string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	if userID != "" {
		if err := mw.WriteField("user_id", userID); err != nil {
			t.Fatal(err)
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf, mw.FormDataContentType()
}

func uploadMux(t *testing.T, svc uploadService) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewUploadHandler(svc, log.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestUpload_Accepted(t *testing.T) {
	docID := uuid.New()
	customUser := uuid.New()
	svc := &mockUploadService{
		uploadFn: func(_ context.Context, userID uuid.UUID, filename string, r io.Reader) (*ingest.Result, error) {
			if userID != customUser {
				t.Errorf("Upload() userID = %s, want %s", userID, customUser)
			}
			if filename != "paper.pdf" {
				t.Errorf("Upload() filename = %q, want %q", filename, "paper.pdf")
			}
			data, _ := io.ReadAll(r)
			if !bytes.HasPrefix(data, []byte("%PDF-")) {
				t.Errorf("Upload() stream = %q, want PDF content", data)
			}
			return &ingest.Result{Document: &document.Document{
				ID:       docID,
				UserID:   userID,
				Filename: filename,
				Status:   document.StatusPending,
				Version:  1,
			}}, nil
		},
	}

	body, contentType := multipartUpload(t, "paper.pdf", customUser.String(), []byte("%PDF-1.4 fake"))
	r := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	r.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	uploadMux(t, svc).ServeHTTP(w, r)

	if w.Code != http.StatusAccepted {
		t.Fatalf("upload status = %d, want %d: %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	var resp UploadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.DocID != docID.String() || resp.Status != document.StatusPending {
		t.Errorf("upload response = %+v", resp)
	}
}

func TestUpload_Deduplicated(t *testing.T) {
	svc := &mockUploadService{
		uploadFn: func(_ context.Context, userID uuid.UUID, filename string, _ io.Reader) (*ingest.Result, error) {
			return &ingest.Result{
				Document: &document.Document{
					ID:       uuid.New(),
					UserID:   userID,
					Filename: filename,
					Status:   document.StatusReady,
					Version:  1,
				},
				Deduplicated: true,
			}, nil
		},
	}

	body, contentType := multipartUpload(t, "paper.pdf", "", []byte("%PDF-1.4 fake"))
	r := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	r.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	uploadMux(t, svc).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("dedup upload status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp UploadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.Status != document.StatusReady {
		t.Errorf("dedup status = %q, want %q", resp.Status, document.StatusReady)
	}
}

func TestUpload_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not pdf", ingest.ErrNotPDF, http.StatusUnprocessableEntity, "invalid_file"},
		{"empty", ingest.ErrEmpty, http.StatusUnprocessableEntity, "invalid_file"},
		{"too large", ingest.ErrTooLarge, http.StatusRequestEntityTooLarge, "file_too_large"},
		{"queue full", ingest.ErrQueueFull, http.StatusServiceUnavailable, "busy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockUploadService{
				uploadFn: func(context.Context, uuid.UUID, string, io.Reader) (*ingest.Result, error) {
					return nil, tt.err
				},
			}

			body, contentType := multipartUpload(t, "paper.pdf", "", []byte("%PDF-1.4 fake"))
			r := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
			r.Header.Set("Content-Type", contentType)

			w := httptest.NewRecorder()
			uploadMux(t, svc).ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("upload status = %d, want %d", w.Code, tt.wantStatus)
			}
			if resp := decodeErrorResponse(t, w); resp.Error != tt.wantCode {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestUpload_MissingFile(t *testing.T) {
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	if err := mw.WriteField("user_id", DefaultUserID); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/v1/upload", buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	uploadMux(t, &mockUploadService{}).ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("upload status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUpload_NotMultipart(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/upload", bytes.NewBufferString(`{"file":"nope"}`))
	r.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	uploadMux(t, &mockUploadService{}).ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("upload status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
