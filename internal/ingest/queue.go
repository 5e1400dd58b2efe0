package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/paperstack/paperstack/internal/log"
)

// ErrQueueFull signals that the ingestion backlog is at capacity. Callers
// should surface backpressure to the client rather than block an upload
// request on it.
var ErrQueueFull = errors.New("ingest: queue full")

// Job identifies one document to process.
type Job struct {
	DocID       uuid.UUID
	StoragePath string
}

// Processor handles one job. *Pipeline satisfies this.
type Processor interface {
	Process(ctx context.Context, docID uuid.UUID, storagePath string) error
}

// Queue feeds jobs to a fixed pool of workers over a bounded channel.
type Queue struct {
	jobs      chan Job
	processor Processor
	workers   int
	logger    log.Logger

	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewQueue creates a Queue with the given worker count and backlog size.
func NewQueue(processor Processor, workers, size int, logger log.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Queue{
		jobs:      make(chan Job, size),
		processor: processor,
		workers:   workers,
		logger:    logger,
	}
}

// Start launches the workers. They run until Stop is called and then drain
// the remaining backlog. ctx bounds individual job processing.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.worker(ctx, i)
		}
		q.logger.Info("ingest workers started", "workers", q.workers, "queue_size", cap(q.jobs))
	})
}

// Enqueue submits a job without blocking. Returns ErrQueueFull when the
// backlog is at capacity.
func (q *Queue) Enqueue(job Job) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Depth returns the current backlog length.
func (q *Queue) Depth() int {
	return len(q.jobs)
}

// Stop closes the queue and waits for workers to finish the backlog.
// Enqueue must not be called after Stop.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.jobs)
		q.wg.Wait()
		q.logger.Info("ingest workers stopped")
	})
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		if err := q.processor.Process(ctx, job.DocID, job.StoragePath); err != nil {
			q.logger.Error("ingestion failed",
				"worker", id, "doc", job.DocID, "error", err)
		}
	}
}
