package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/paperstack/paperstack/internal/blob"
	"github.com/paperstack/paperstack/internal/document"
	"github.com/paperstack/paperstack/internal/log"
)

// Upload validation errors.
var (
	ErrNotPDF   = errors.New("ingest: file is not a PDF")
	ErrTooLarge = errors.New("ingest: file exceeds size limit")
	ErrEmpty    = errors.New("ingest: file is empty")
)

var pdfMagic = []byte("%PDF-")

// UploadStore is the slice of document.Store the Uploader needs.
type UploadStore interface {
	Create(ctx context.Context, userID uuid.UUID, digest, filename, storagePath string) (*document.Document, error)
	LatestByHash(ctx context.Context, userID uuid.UUID, digest string) (*document.Document, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Uploader accepts a PDF, stores its bytes, registers the document, and
// queues it for ingestion. It backs both the HTTP upload endpoint and the
// add_doc agent tool.
type Uploader struct {
	blobs    *blob.Store
	docs     UploadStore
	queue    *Queue
	maxBytes int64
	logger   log.Logger
}

// NewUploader creates an Uploader. maxBytes caps accepted file size.
func NewUploader(blobs *blob.Store, docs UploadStore, queue *Queue, maxBytes int64, logger log.Logger) *Uploader {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Uploader{blobs: blobs, docs: docs, queue: queue, maxBytes: maxBytes, logger: logger}
}

// Result reports what an upload did.
type Result struct {
	Document *document.Document
	// Deduplicated is true when an identical upload was already ready
	// and no new processing was started.
	Deduplicated bool
}

// Upload validates and stores an incoming PDF.
//
// Identical content already ingested for this user short-circuits: the
// existing ready document is returned and nothing is reprocessed. Identical
// content whose previous ingestion failed gets a fresh version and another
// attempt. When the ingestion queue is full the document is not registered
// and ErrQueueFull is returned; the client may retry later.
func (u *Uploader) Upload(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (*Result, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return nil, fmt.Errorf("%w: %s", ErrNotPDF, filename)
	}

	br := bufio.NewReader(io.LimitReader(r, u.maxBytes+1))
	head, err := br.Peek(len(pdfMagic))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if !bytes.Equal(head, pdfMagic) {
		return nil, fmt.Errorf("%w: missing %%PDF header", ErrNotPDF)
	}

	counter := &countingReader{r: br}
	digest, path, err := u.blobs.Put(counter)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if counter.n > u.maxBytes {
		// Over limit; the partial blob is content-addressed garbage for
		// truncated bytes, drop it.
		if rmErr := u.blobs.Remove(digest); rmErr != nil {
			u.logger.Warn("could not remove oversized blob", "digest", digest, "error", rmErr)
		}
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, u.maxBytes)
	}

	// Same bytes, same user: reuse the ready document instead of paying
	// for extraction and embedding again.
	existing, err := u.docs.LatestByHash(ctx, userID, digest)
	if err == nil && existing.Ready() {
		u.logger.Debug("upload deduplicated", "id", existing.ID, "digest", digest)
		return &Result{Document: existing, Deduplicated: true}, nil
	}
	if err != nil && !errors.Is(err, document.ErrNotFound) {
		return nil, err
	}

	doc, err := u.docs.Create(ctx, userID, digest, filename, path)
	if err != nil {
		return nil, err
	}

	if err := u.queue.Enqueue(Job{DocID: doc.ID, StoragePath: path}); err != nil {
		// Roll the registration back so a retry is not blocked by a
		// stuck pending row.
		if delErr := u.docs.Delete(ctx, userID, doc.ID); delErr != nil {
			u.logger.Error("could not remove unqueued document", "id", doc.ID, "error", delErr)
		}
		return nil, err
	}

	u.logger.Info("document queued",
		"id", doc.ID, "filename", filename, "version", doc.Version, "bytes", counter.n)
	return &Result{Document: doc}, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
