package document

import (
	"time"

	"github.com/google/uuid"
)

// Document status values. A document moves pending -> processing and then
// to exactly one of ready or failed. Terminal states never change; a
// re-upload creates a new version instead.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Ingestion stages recorded on failure so the API can report where
// processing stopped.
const (
	StageExtract = "extract"
	StageChunk   = "chunk"
	StageEmbed   = "embed"
	StageStore   = "store"
)

// Document is the domain view of an uploaded PDF.
type Document struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	SHA256       string
	Filename     string
	StoragePath  string
	Status       string
	FailureStage string
	PageCount    int
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ready reports whether the document has finished ingestion successfully
// and is available for retrieval.
func (d *Document) Ready() bool {
	return d.Status == StatusReady
}
