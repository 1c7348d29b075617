package service

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"time"

	"github.com/okhta/vidlink/internal/domain"
	"github.com/okhta/vidlink/internal/infrastructure/logger"
	"github.com/okhta/vidlink/internal/port"
)

// GuestIdentity is the gate identity shared by all anonymous callers.
const GuestIdentity = "guest"

type JobService struct {
	store    port.JobStore
	queue    port.JobQueue
	dedup    port.DedupCache
	gate     port.GateStore
	plans    port.PlanResolver
	dedupTTL time.Duration
	gateTTL  time.Duration
}

func NewJobService(
	store port.JobStore,
	queue port.JobQueue,
	dedup port.DedupCache,
	gate port.GateStore,
	plans port.PlanResolver,
	dedupTTL, gateTTL time.Duration,
) *JobService {
	if dedupTTL <= 0 {
		dedupTTL = 10 * time.Minute
	}
	if gateTTL <= 0 {
		gateTTL = 5 * time.Minute
	}
	return &JobService{
		store:    store,
		queue:    queue,
		dedup:    dedup,
		gate:     gate,
		plans:    plans,
		dedupTTL: dedupTTL,
		gateTTL:  gateTTL,
	}
}

type SubmitResult struct {
	JobID  string
	Cached bool
}

// Submit validates the URL, short-circuits duplicates through the dedup
// cache, and otherwise creates and enqueues a job. The cache entry is
// recorded after create+enqueue succeed; the narrow window where two
// concurrent submissions of the same URL both create a job is accepted
// rather than closed with extra locking.
func (s *JobService) Submit(ctx context.Context, ownerID, sourceURL string) (*SubmitResult, error) {
	if err := domain.ValidateSourceURL(sourceURL); err != nil {
		return nil, err
	}

	fingerprint := domain.Fingerprint(sourceURL)
	if jobID, ok := s.dedup.Lookup(fingerprint); ok {
		logger.Info.Printf("dedup hit for %s -> job %s", logger.SanitizeForLog(sourceURL), jobID)
		return &SubmitResult{JobID: jobID, Cached: true}, nil
	}

	job := domain.NewJob(ownerID, sourceURL)
	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := s.queue.Enqueue(ctx, port.Task{JobID: job.ID, SourceURL: sourceURL, OwnerID: ownerID}); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	s.dedup.Record(fingerprint, job.ID, s.dedupTTL)

	logger.Info.Printf("job %s created for %s", job.ID, logger.SanitizeForLog(sourceURL))
	return &SubmitResult{JobID: job.ID}, nil
}

// JobView is what a status query returns. RequiresAd is set when the job
// is ready but the caller has to clear the ad gate first; the job inside
// is then a masked copy with the download link and format list withheld.
type JobView struct {
	Job        *domain.Job
	RequiresAd bool
}

func (s *JobService) Status(ctx context.Context, ownerID, jobID string) (*JobView, error) {
	job, err := s.getLive(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != domain.JobStatusReady {
		return &JobView{Job: job}, nil
	}

	privileged, err := s.plans.Privileged(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("resolve plan: %w", err)
	}
	if privileged {
		return &JobView{Job: job}, nil
	}
	return &JobView{Job: maskJob(job), RequiresAd: true}, nil
}

// maskJob withholds the resolved links from an unprivileged caller while
// leaving descriptive metadata visible.
func maskJob(job *domain.Job) *domain.Job {
	masked := *job
	masked.DownloadURL = nil
	if job.Metadata != nil {
		meta := *job.Metadata
		meta.Formats = nil
		masked.Metadata = &meta
	}
	return &masked
}

type UnlockResult struct {
	DownloadURL *string
	Metadata    *domain.Metadata
}

// Unlock verifies the presented ad token and returns the unmasked result.
// A missing token and a wrong token are indistinguishable to the caller:
// both are domain.ErrVerificationFailed with no further detail.
func (s *JobService) Unlock(ctx context.Context, ownerID, jobID, presentedToken string) (*UnlockResult, error) {
	identity := ownerID
	if identity == "" {
		identity = GuestIdentity
	}

	expected, ok := s.gate.Token(identity, jobID)
	if !ok || presentedToken == "" || expected != presentedToken {
		return nil, domain.ErrVerificationFailed
	}

	job, err := s.getLive(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &UnlockResult{DownloadURL: job.DownloadURL, Metadata: job.Metadata}, nil
}

// getLive fetches a job and refuses records past their retention horizon.
// The sweep deletes them eventually; this keeps the window between expiry
// and deletion from serving stale links.
func (s *JobService) getLive(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsExpired() {
		return nil, domain.ErrExpired
	}
	return job, nil
}

// IssueGateToken mints an unlock token for the caller and job. In
// production this sits behind the ad-delivery flow; the token only becomes
// useful once the ad step completes and hands it to the client.
func (s *JobService) IssueGateToken(ctx context.Context, ownerID, jobID string) (string, error) {
	if _, err := s.getLive(ctx, jobID); err != nil {
		return "", err
	}
	identity := ownerID
	if identity == "" {
		identity = GuestIdentity
	}
	token := newGateToken()
	s.gate.Put(identity, jobID, token, s.gateTTL)
	return token, nil
}

func newGateToken() string {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)
}

// History lists the owner's ready jobs, newest first. In-flight and failed
// jobs are not part of history.
func (s *JobService) History(ctx context.Context, ownerID string, page, limit int) ([]*domain.Job, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	return s.store.ListReadyByOwner(ctx, ownerID, page, limit)
}
