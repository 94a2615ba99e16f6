// Package postcommit runs side effects of committed transactions in the background.
package postcommit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/infra/metrics"
)

type queuedJob struct {
	run  domain.Job
	name string
}

// Queue is a bounded job queue drained by a fixed worker pool.
// Submit never blocks: when the buffer is full the job is dropped.
// Fields are ordered to minimize memory padding.
type Queue struct {
	ctx    context.Context
	logger *slog.Logger
	jobs   chan queuedJob
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// Ensure Queue implements domain.JobQueue.
var _ domain.JobQueue = (*Queue)(nil)

// New creates a queue and starts its workers.
func New(cfg domain.QueueConfig, logger *slog.Logger) *Queue {
	workers := cfg.Workers
	if workers <= 0 {
		workers = domain.DefaultQueueWorkers
	}
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = domain.DefaultQueueBuffer
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		jobs:   make(chan queuedJob, buffer),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Submit enqueues a job.
func (q *Queue) Submit(name string, job domain.Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return domain.ErrQueueClosed
	}

	select {
	case q.jobs <- queuedJob{name: name, run: job}:
		return nil
	default:
		metrics.RecordJob(name, metrics.JobDropped)
		q.logger.Warn("post-commit queue full, job dropped", "job", name)
		return fmt.Errorf("post-commit queue full: %s dropped", name)
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.run(j)
	}
}

func (q *Queue) run(j queuedJob) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordJob(j.name, metrics.JobPanic)
			q.logger.Error("post-commit job panicked", "job", j.name, "panic", r)
		}
	}()

	if err := j.run(q.ctx); err != nil {
		metrics.RecordJob(j.name, metrics.JobError)
		q.logger.Warn("post-commit job failed", "job", j.name, "error", err)
		return
	}
	metrics.RecordJob(j.name, metrics.JobOK)
}

// Close stops accepting jobs and waits for queued ones to finish.
// If ctx expires first, running jobs see their context cancelled.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return fmt.Errorf("drain post-commit queue: %w", ctx.Err())
	}
}
