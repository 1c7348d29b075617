package service

import (
	"context"
	"errors"
	"time"

	"github.com/okhta/vidlink/internal/domain"
	"github.com/okhta/vidlink/internal/infrastructure/logger"
	"github.com/okhta/vidlink/internal/port"
)

// WorkerPool is a fixed-size set of executors pulling tasks from the job
// queue. Each task runs: mark processing -> extract -> normalize -> mark
// ready, with any failure recorded as a terminal failed status. Metadata
// extraction is light per job, so the pool can be wide; bounding it caps
// concurrent external-process spawning.
type WorkerPool struct {
	queue         port.JobQueue
	store         port.JobStore
	extractor     port.Extractor
	eventBus      EventPublisher
	premiumCutoff int
	workers       int
}

func NewWorkerPool(
	queue port.JobQueue,
	store port.JobStore,
	extractor port.Extractor,
	eventBus EventPublisher,
	premiumCutoff int,
	workers int,
) *WorkerPool {
	if workers <= 0 {
		workers = 10
	}
	return &WorkerPool{
		queue:         queue,
		store:         store,
		extractor:     extractor,
		eventBus:      eventBus,
		premiumCutoff: premiumCutoff,
		workers:       workers,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.workers; i++ {
		go wp.runWorker(ctx, i)
	}
	logger.Info.Printf("started %d workers", wp.workers)
}

func (wp *WorkerPool) runWorker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			logger.Info.Printf("worker %d shutting down", id)
			return
		default:
		}

		task, err := wp.queue.Claim(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error.Printf("worker %d: failed to claim task: %v", id, err)
			sleep(ctx, 2*time.Second)
			continue
		}

		if task == nil {
			// No visible tasks, wait before polling again
			sleep(ctx, 500*time.Millisecond)
			continue
		}

		logger.Info.Printf("worker %d: processing job %s (attempt %d)", id, task.JobID, task.Attempts)
		wp.processTask(ctx, task)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (wp *WorkerPool) processTask(ctx context.Context, task *port.Task) {
	err := wp.store.MarkProcessing(ctx, task.JobID)
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		// Redelivered after another worker already finished it.
		_ = wp.queue.Ack(ctx, task.JobID)
		return
	case errors.Is(err, domain.ErrNotFound):
		logger.Warn.Printf("job %s vanished, dropping task", task.JobID)
		_ = wp.queue.Ack(ctx, task.JobID)
		return
	case err != nil:
		logger.Error.Printf("job %s: mark processing: %v", task.JobID, err)
		_ = wp.queue.Nack(ctx, task.JobID)
		// A persistent store error would otherwise re-claim in a hot loop.
		sleep(ctx, 2*time.Second)
		return
	}
	wp.publish(task.JobID, domain.JobStatusProcessing, "")

	raw, err := wp.extractor.Extract(ctx, task.SourceURL)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			// Shutdown mid-extraction: leave the task for redelivery
			// instead of recording a spurious failure.
			_ = wp.queue.Nack(ctx, task.JobID)
			return
		}
		wp.fail(ctx, task.JobID, err)
		return
	}

	meta := domain.Normalize(raw, wp.premiumCutoff)
	if err := wp.store.MarkReady(ctx, task.JobID, meta); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			_ = wp.queue.Ack(ctx, task.JobID)
			return
		}
		logger.Error.Printf("job %s: mark ready: %v", task.JobID, err)
		_ = wp.queue.Nack(ctx, task.JobID)
		sleep(ctx, 2*time.Second)
		return
	}

	_ = wp.queue.Ack(ctx, task.JobID)
	wp.publish(task.JobID, domain.JobStatusReady, "")
	logger.Info.Printf("job %s ready: %s (%d formats)", task.JobID, logger.SanitizeForLog(meta.Title), len(meta.Formats))
}

// fail records a terminal failure and acks the task. Failed jobs are not
// retried by the pool; a retry is a fresh submission.
func (wp *WorkerPool) fail(ctx context.Context, jobID string, cause error) {
	logger.Error.Printf("job %s failed: %v", jobID, cause)
	if err := wp.store.MarkFailed(ctx, jobID, cause.Error()); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
		logger.Error.Printf("job %s: mark failed: %v", jobID, err)
		_ = wp.queue.Nack(ctx, jobID)
		sleep(ctx, 2*time.Second)
		return
	}
	_ = wp.queue.Ack(ctx, jobID)
	wp.publish(jobID, domain.JobStatusFailed, cause.Error())
}

func (wp *WorkerPool) publish(jobID string, status domain.JobStatus, message string) {
	if wp.eventBus != nil {
		wp.eventBus.Publish(jobID, Event{Type: "status", Status: status, Message: message})
	}
}
