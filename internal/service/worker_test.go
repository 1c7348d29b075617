package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okhta/vidlink/internal/domain"
	"github.com/okhta/vidlink/internal/port"
)

func newTestPool(store *fakeStore, queue *fakeQueue, ext *fakeExtractor, bus *fakeBus) *WorkerPool {
	return NewWorkerPool(queue, store, ext, bus, domain.DefaultPremiumCutoff, 1)
}

func pendingTask(store *fakeStore) *port.Task {
	job := domain.NewJob("alice", "https://example.com/v/ok")
	store.put(job)
	return &port.Task{JobID: job.ID, SourceURL: job.SourceURL, OwnerID: job.OwnerID, Attempts: 1}
}

func TestProcessTask_Success(t *testing.T) {
	store := newFakeStore()
	queue := &fakeQueue{}
	bus := newFakeBus()
	ext := &fakeExtractor{raw: &domain.RawMetadata{
		Title:     "Clip",
		Extractor: "youtube",
		Formats: []domain.RawFormat{
			{FormatID: "22", Ext: "mp4", ACodec: "mp4a", VCodec: "avc1", Height: 720, URL: "https://cdn.example.com/v"},
			{FormatID: "137", Ext: "mp4", ACodec: "none", VCodec: "avc1", Height: 1080},
		},
	}}
	pool := newTestPool(store, queue, ext, bus)

	task := pendingTask(store)
	pool.processTask(context.Background(), task)

	job, err := store.Get(context.Background(), task.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusReady, job.Status)
	require.NotNil(t, job.Metadata)
	assert.Equal(t, "Clip", job.Metadata.Title)
	// The video-only rendition was filtered out.
	require.Len(t, job.Metadata.Formats, 1)
	assert.Equal(t, "720p", job.Metadata.Formats[0].Quality)

	assert.Equal(t, []string{task.JobID}, queue.acked)
	assert.Empty(t, queue.nacked)
	assert.Equal(t, []string{"processing", "ready"}, bus.statuses(task.JobID))
}

func TestProcessTask_ExtractionErrorFailsJob(t *testing.T) {
	store := newFakeStore()
	queue := &fakeQueue{}
	bus := newFakeBus()
	ext := &fakeExtractor{err: errors.New("extraction timed out after 45s")}
	pool := newTestPool(store, queue, ext, bus)

	task := pendingTask(store)
	pool.processTask(context.Background(), task)

	job, err := store.Get(context.Background(), task.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Equal(t, "extraction timed out after 45s", job.Error)
	assert.Nil(t, job.Metadata)

	// A terminal failure is acked, not retried.
	assert.Equal(t, []string{task.JobID}, queue.acked)
	assert.Equal(t, []string{"processing", "failed"}, bus.statuses(task.JobID))
}

func TestProcessTask_ShutdownMidExtractionNacks(t *testing.T) {
	store := newFakeStore()
	queue := &fakeQueue{}
	ext := &fakeExtractor{err: context.Canceled}
	pool := newTestPool(store, queue, ext, newFakeBus())

	task := pendingTask(store)
	pool.processTask(context.Background(), task)

	job, err := store.Get(context.Background(), task.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, job.Status)

	assert.Equal(t, []string{task.JobID}, queue.nacked)
	assert.Empty(t, queue.acked)
}

func TestProcessTask_RedeliveredTerminalJobAckedWithoutExtraction(t *testing.T) {
	store := newFakeStore()
	queue := &fakeQueue{}
	ext := &fakeExtractor{raw: &domain.RawMetadata{}}
	pool := newTestPool(store, queue, ext, newFakeBus())

	job := readyJob("alice")
	store.put(job)
	task := &port.Task{JobID: job.ID, SourceURL: job.SourceURL, Attempts: 2}

	pool.processTask(context.Background(), task)

	assert.Equal(t, 0, ext.calls)
	assert.Equal(t, []string{job.ID}, queue.acked)

	got, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusReady, got.Status)
}

func TestProcessTask_VanishedJobAcked(t *testing.T) {
	store := newFakeStore()
	queue := &fakeQueue{}
	ext := &fakeExtractor{raw: &domain.RawMetadata{}}
	pool := newTestPool(store, queue, ext, newFakeBus())

	task := &port.Task{JobID: "gone", SourceURL: "https://example.com/v/gone"}
	pool.processTask(context.Background(), task)

	assert.Equal(t, 0, ext.calls)
	assert.Equal(t, []string{"gone"}, queue.acked)
}

func TestProcessTask_StoreErrorNacksAndBacksOff(t *testing.T) {
	store := newFakeStore()
	store.markProcessingErr = errors.New("database is locked")
	queue := &fakeQueue{}
	ext := &fakeExtractor{raw: &domain.RawMetadata{}}
	pool := newTestPool(store, queue, ext, newFakeBus())

	task := pendingTask(store)

	// The deadline bounds the backoff sleep so the test stays fast.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	pool.processTask(ctx, task)
	elapsed := time.Since(start)

	assert.Equal(t, 0, ext.calls)
	assert.Equal(t, []string{task.JobID}, queue.nacked)
	assert.Empty(t, queue.acked)
	// It pauses instead of handing the task straight back for re-claim.
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
}

func TestProcessTask_RedeliveredProcessingJobRetries(t *testing.T) {
	store := newFakeStore()
	queue := &fakeQueue{}
	ext := &fakeExtractor{raw: &domain.RawMetadata{Title: "Clip"}}
	pool := newTestPool(store, queue, ext, newFakeBus())

	// A task redelivered while its job is still processing (prior worker
	// died mid-extraction) runs the pipeline again.
	job := domain.NewJob("alice", "https://example.com/v/stuck")
	job.Status = domain.JobStatusProcessing
	store.put(job)
	task := &port.Task{JobID: job.ID, SourceURL: job.SourceURL, Attempts: 2}

	pool.processTask(context.Background(), task)

	assert.Equal(t, 1, ext.calls)
	got, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusReady, got.Status)
}
