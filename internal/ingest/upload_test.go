package ingest

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/paperstack/paperstack/internal/blob"
	"github.com/paperstack/paperstack/internal/document"
	"github.com/paperstack/paperstack/internal/log"
)

type mockUploadStore struct {
	latest    *document.Document
	latestErr error
	created   []*document.Document
	deleted   []uuid.UUID
}

func (m *mockUploadStore) Create(ctx context.Context, userID uuid.UUID, digest, filename, storagePath string) (*document.Document, error) {
	doc := &document.Document{
		ID:          uuid.New(),
		UserID:      userID,
		SHA256:      digest,
		Filename:    filename,
		StoragePath: storagePath,
		Status:      document.StatusPending,
		Version:     1,
	}
	m.created = append(m.created, doc)
	return doc, nil
}

func (m *mockUploadStore) LatestByHash(ctx context.Context, userID uuid.UUID, digest string) (*document.Document, error) {
	if m.latestErr != nil {
		return nil, m.latestErr
	}
	if m.latest == nil {
		return nil, document.ErrNotFound
	}
	return m.latest, nil
}

func (m *mockUploadStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func pdfBytes(body string) []byte {
	return []byte("%PDF-1.4\n" + body)
}

func testUploader(t *testing.T, store *mockUploadStore, queueSize int) (*Uploader, *Queue) {
	t.Helper()
	blobs, err := blob.New(t.TempDir())
	if err != nil {
		t.Fatalf("blob.New() error = %v", err)
	}
	queue := NewQueue(&countingProcessor{}, 1, queueSize, log.NewNop())
	return NewUploader(blobs, store, queue, 1<<20, log.NewNop()), queue
}

func TestUploadRegistersAndQueues(t *testing.T) {
	store := &mockUploadStore{}
	uploader, queue := testUploader(t, store, 4)

	res, err := uploader.Upload(context.Background(), uuid.New(), "report.pdf", bytes.NewReader(pdfBytes("content")))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if res.Deduplicated {
		t.Error("Deduplicated = true for a first upload")
	}
	if res.Document.Status != document.StatusPending {
		t.Errorf("Status = %s, want pending", res.Document.Status)
	}
	if len(store.created) != 1 {
		t.Errorf("documents created = %d, want 1", len(store.created))
	}
	if queue.Depth() != 1 {
		t.Errorf("queue depth = %d, want 1", queue.Depth())
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	store := &mockUploadStore{}
	uploader, _ := testUploader(t, store, 4)

	tests := []struct {
		name     string
		filename string
		content  []byte
	}{
		{"wrong extension", "notes.txt", pdfBytes("x")},
		{"wrong magic", "fake.pdf", []byte("MZ not a pdf")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uploader.Upload(context.Background(), uuid.New(), tt.filename, bytes.NewReader(tt.content))
			if !errors.Is(err, ErrNotPDF) {
				t.Errorf("Upload() error = %v, want ErrNotPDF", err)
			}
		})
	}
	if len(store.created) != 0 {
		t.Errorf("documents created = %d, want 0", len(store.created))
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	uploader, _ := testUploader(t, &mockUploadStore{}, 4)

	_, err := uploader.Upload(context.Background(), uuid.New(), "empty.pdf", strings.NewReader(""))
	if !errors.Is(err, ErrEmpty) {
		t.Errorf("Upload() error = %v, want ErrEmpty", err)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	store := &mockUploadStore{}
	blobs, err := blob.New(t.TempDir())
	if err != nil {
		t.Fatalf("blob.New() error = %v", err)
	}
	queue := NewQueue(&countingProcessor{}, 1, 4, log.NewNop())
	uploader := NewUploader(blobs, store, queue, 64, log.NewNop())

	big := append(pdfBytes(""), bytes.Repeat([]byte("a"), 200)...)
	_, err = uploader.Upload(context.Background(), uuid.New(), "big.pdf", bytes.NewReader(big))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Upload() error = %v, want ErrTooLarge", err)
	}
	if len(store.created) != 0 {
		t.Errorf("documents created = %d, want 0", len(store.created))
	}
}

func TestUploadDeduplicatesReadyDocument(t *testing.T) {
	existing := &document.Document{
		ID:     uuid.New(),
		Status: document.StatusReady,
	}
	store := &mockUploadStore{latest: existing}
	uploader, queue := testUploader(t, store, 4)

	res, err := uploader.Upload(context.Background(), uuid.New(), "same.pdf", bytes.NewReader(pdfBytes("same content")))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !res.Deduplicated {
		t.Error("Deduplicated = false for identical ready content")
	}
	if res.Document.ID != existing.ID {
		t.Errorf("Document.ID = %s, want existing %s", res.Document.ID, existing.ID)
	}
	if len(store.created) != 0 {
		t.Errorf("documents created = %d, want 0", len(store.created))
	}
	if queue.Depth() != 0 {
		t.Errorf("queue depth = %d, want 0", queue.Depth())
	}
}

func TestUploadRetriesFailedDocument(t *testing.T) {
	store := &mockUploadStore{latest: &document.Document{
		ID:     uuid.New(),
		Status: document.StatusFailed,
	}}
	uploader, queue := testUploader(t, store, 4)

	res, err := uploader.Upload(context.Background(), uuid.New(), "retry.pdf", bytes.NewReader(pdfBytes("content")))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if res.Deduplicated {
		t.Error("Deduplicated = true for previously failed content")
	}
	if len(store.created) != 1 {
		t.Errorf("documents created = %d, want 1 (new version)", len(store.created))
	}
	if queue.Depth() != 1 {
		t.Errorf("queue depth = %d, want 1", queue.Depth())
	}
}

func TestUploadQueueFullRollsBack(t *testing.T) {
	store := &mockUploadStore{}
	uploader, queue := testUploader(t, store, 1)

	// Fill the backlog; the queue is not started so nothing drains.
	if err := queue.Enqueue(Job{DocID: uuid.New()}); err != nil {
		t.Fatalf("priming Enqueue() error = %v", err)
	}

	_, err := uploader.Upload(context.Background(), uuid.New(), "busy.pdf", bytes.NewReader(pdfBytes("content")))
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Upload() error = %v, want ErrQueueFull", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("documents created = %d, want 1", len(store.created))
	}
	if len(store.deleted) != 1 || store.deleted[0] != store.created[0].ID {
		t.Errorf("created document was not rolled back: deleted = %v", store.deleted)
	}
}
