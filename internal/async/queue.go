package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/avelis/receiptlens/internal/common"
	"github.com/avelis/receiptlens/internal/entity"
	"github.com/avelis/receiptlens/internal/repository"
)

// ErrQueueFull reports that Enqueue would have to block.
var ErrQueueFull = errors.New("extraction queue is full")

// Job is one pending extraction. RecordID is assigned by the producer,
// so callers can poll for the record before a worker finishes it.
type Job struct {
	RecordID    uuid.UUID
	RawText     string
	ManualLabel string
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Extractor turns raw receipt text into a record.
type Extractor interface {
	Extract(rawText, manualLabel string) (*entity.Record, error)
}

// ExtractQueue fans jobs out to a fixed worker pool that extracts and
// stores records.
type ExtractQueue struct {
	extractor Extractor
	store     repository.RecordStore
	logger    *slog.Logger
	workers   int
	timeout   time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ExtractQueue)

func WithWorkers(n int) Option {
	return func(q *ExtractQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ExtractQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithJobTimeout(d time.Duration) Option {
	return func(q *ExtractQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewExtractQueue(extractor Extractor, store repository.RecordStore, logger *slog.Logger, opts ...Option) *ExtractQueue {
	q := &ExtractQueue{
		extractor: extractor,
		store:     store,
		logger:    logger,
		workers:   4,
		timeout:   30 * time.Second,
		ch:        make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ExtractQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := common.WithTimeout(context.Background(), q.timeout)
					err := q.process(ctx, job)
					cancel()

					if err != nil {
						q.logger.Error("extraction failed", "worker_id", workerID, "record_id", job.RecordID, "error", err)
					} else {
						q.logger.Info("extraction complete", "worker_id", workerID, "record_id", job.RecordID)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ExtractQueue) process(ctx context.Context, job Job) error {
	rec, err := q.extractor.Extract(job.RawText, job.ManualLabel)
	if err != nil {
		return err
	}
	// Keep the id the producer handed out.
	rec.ID = job.RecordID
	return q.store.Create(ctx, rec)
}

func (q *ExtractQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "record_id", job.RecordID)
		return common.NewAppError("QUEUE_CLOSED", "queue is shutting down", common.ErrInvalidInput)
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued extraction", "record_id", job.RecordID)
		return nil
	default:
		q.logger.Warn("queue full, rejecting job", "record_id", job.RecordID)
		return ErrQueueFull
	}
}

func (q *ExtractQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
