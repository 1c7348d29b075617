package service

import (
	"context"
	"sync"
	"time"

	"github.com/okhta/vidlink/internal/domain"
	"github.com/okhta/vidlink/internal/port"
)

type fakeStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job

	createErr         error
	markProcessingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]*domain.Job)}
}

func (f *fakeStore) Create(_ context.Context, job *domain.Job) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *fakeStore) MarkProcessing(_ context.Context, id string) error {
	if f.markProcessingErr != nil {
		return f.markProcessingErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status != domain.JobStatusPending && job.Status != domain.JobStatusProcessing {
		return domain.ErrInvalidTransition
	}
	job.MarkProcessing()
	return nil
}

func (f *fakeStore) MarkReady(_ context.Context, id string, meta *domain.Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !job.CanTransition(domain.JobStatusReady) {
		return domain.ErrInvalidTransition
	}
	job.MarkReady(meta)
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id string, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !job.CanTransition(domain.JobStatusFailed) {
		return domain.ErrInvalidTransition
	}
	job.Status = domain.JobStatusFailed
	job.Metadata = nil
	job.Error = reason
	return nil
}

func (f *fakeStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, job := range f.jobs {
		if now.After(job.ExpiresAt) {
			delete(f.jobs, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListReadyByOwner(_ context.Context, ownerID string, page, limit int) ([]*domain.Job, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ready []*domain.Job
	for _, job := range f.jobs {
		if job.OwnerID == ownerID && job.Status == domain.JobStatusReady {
			cp := *job
			ready = append(ready, &cp)
		}
	}
	total := len(ready)
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := min(start+limit, total)
	return ready[start:end], total, nil
}

// put seeds a job directly, bypassing the state machine.
func (f *fakeStore) put(job *domain.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.jobs[job.ID] = &cp
}

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []port.Task
	acked    []string
	nacked   []string

	enqueueErr error
}

func (f *fakeQueue) Enqueue(_ context.Context, task port.Task) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, task)
	return nil
}

func (f *fakeQueue) Claim(_ context.Context) (*port.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.enqueued) == 0 {
		return nil, nil
	}
	task := f.enqueued[0]
	f.enqueued = f.enqueued[1:]
	task.Attempts++
	return &task, nil
}

func (f *fakeQueue) Ack(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, jobID)
	return nil
}

func (f *fakeQueue) Nack(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked = append(f.nacked, jobID)
	return nil
}

type fakeDedup struct {
	mu      sync.Mutex
	entries map[string]string
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{entries: make(map[string]string)}
}

func (f *fakeDedup) Lookup(fingerprint string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	jobID, ok := f.entries[fingerprint]
	return jobID, ok
}

func (f *fakeDedup) Record(fingerprint, jobID string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[fingerprint] = jobID
}

type fakeGate struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newFakeGate() *fakeGate {
	return &fakeGate{tokens: make(map[string]string)}
}

func (f *fakeGate) Put(ownerIdentity, jobID, token string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[ownerIdentity+":"+jobID] = token
}

func (f *fakeGate) Token(ownerIdentity, jobID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[ownerIdentity+":"+jobID]
	return token, ok
}

type fakePlans struct {
	privileged map[string]bool
	err        error
}

func (f *fakePlans) Privileged(_ context.Context, ownerID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.privileged[ownerID], nil
}

type fakeExtractor struct {
	raw *domain.RawMetadata
	err error

	mu    sync.Mutex
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) (*domain.RawMetadata, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

type fakeBus struct {
	mu     sync.Mutex
	events map[string][]Event
}

func newFakeBus() *fakeBus {
	return &fakeBus{events: make(map[string][]Event)}
}

func (f *fakeBus) Publish(jobID string, event Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[jobID] = append(f.events[jobID], event)
}

func (f *fakeBus) statuses(jobID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events[jobID] {
		out = append(out, string(e.Status))
	}
	return out
}

var (
	_ port.JobStore     = (*fakeStore)(nil)
	_ port.JobQueue     = (*fakeQueue)(nil)
	_ port.DedupCache   = (*fakeDedup)(nil)
	_ port.GateStore    = (*fakeGate)(nil)
	_ port.PlanResolver = (*fakePlans)(nil)
	_ port.Extractor    = (*fakeExtractor)(nil)
	_ EventPublisher    = (*fakeBus)(nil)
)
