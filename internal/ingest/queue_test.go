package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/paperstack/paperstack/internal/log"
)

type countingProcessor struct {
	count atomic.Int64
	block chan struct{} // when non-nil, Process waits on it
	mu    sync.Mutex
	seen  []uuid.UUID
}

func (p *countingProcessor) Process(ctx context.Context, docID uuid.UUID, storagePath string) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	p.seen = append(p.seen, docID)
	p.mu.Unlock()
	p.count.Add(1)
	return nil
}

func TestQueueProcessesAllJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	proc := &countingProcessor{}
	q := NewQueue(proc, 2, 16, log.NewNop())
	q.Start(context.Background())

	const jobs = 10
	for i := 0; i < jobs; i++ {
		if err := q.Enqueue(Job{DocID: uuid.New(), StoragePath: "/p"}); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	q.Stop()

	if got := proc.count.Load(); got != jobs {
		t.Errorf("processed = %d, want %d", got, jobs)
	}
}

func TestQueueBackpressure(t *testing.T) {
	defer goleak.VerifyNone(t)

	block := make(chan struct{})
	proc := &countingProcessor{block: block}
	q := NewQueue(proc, 1, 2, log.NewNop())
	q.Start(context.Background())

	// One job occupies the worker, two fill the backlog. Keep enqueueing
	// until the channel is full; the worker may or may not have picked
	// the first job up yet.
	full := false
	for i := 0; i < 4; i++ {
		if err := q.Enqueue(Job{DocID: uuid.New()}); err == ErrQueueFull {
			full = true
			break
		}
	}
	if !full {
		t.Error("queue never reported ErrQueueFull")
	}

	close(block)
	q.Stop()
}

func TestQueueStopDrainsBacklog(t *testing.T) {
	defer goleak.VerifyNone(t)

	proc := &countingProcessor{}
	q := NewQueue(proc, 1, 8, log.NewNop())

	// Enqueue before starting; jobs wait in the channel.
	for i := 0; i < 5; i++ {
		if err := q.Enqueue(Job{DocID: uuid.New()}); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	if q.Depth() != 5 {
		t.Errorf("Depth() = %d, want 5", q.Depth())
	}

	q.Start(context.Background())
	q.Stop()

	if got := proc.count.Load(); got != 5 {
		t.Errorf("processed = %d, want 5 (backlog drained on Stop)", got)
	}
}

func TestQueueStopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewQueue(&countingProcessor{}, 1, 1, log.NewNop())
	q.Start(context.Background())
	q.Stop()
	q.Stop()
}

func TestQueueConcurrentEnqueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	proc := &countingProcessor{}
	q := NewQueue(proc, 4, 128, log.NewNop())
	q.Start(context.Background())

	var wg sync.WaitGroup
	var accepted atomic.Int64
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if err := q.Enqueue(Job{DocID: uuid.New()}); err == nil {
					accepted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	deadline := time.After(5 * time.Second)
	for proc.count.Load() < accepted.Load() {
		select {
		case <-deadline:
			t.Fatalf("processed %d of %d accepted jobs", proc.count.Load(), accepted.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
	q.Stop()
}
