package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusReady      JobStatus = "ready"
	JobStatusFailed     JobStatus = "failed"
)

// RetentionPeriod is how long a job record is kept after creation. Cleanup
// of expired rows happens out of band; creation only stamps the horizon.
const RetentionPeriod = 24 * time.Hour

type Job struct {
	ID          string    `json:"jobId"`
	OwnerID     string    `json:"ownerId,omitempty"`
	SourceURL   string    `json:"url"`
	Fingerprint string    `json:"-"`
	Status      JobStatus `json:"status"`
	Metadata    *Metadata `json:"metadata,omitempty"`
	DownloadURL *string   `json:"downloadUrl"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// NewJob creates a pending job for the given source URL. OwnerID may be
// empty for anonymous submissions.
func NewJob(ownerID, sourceURL string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		SourceURL:   sourceURL,
		Fingerprint: Fingerprint(sourceURL),
		Status:      JobStatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(RetentionPeriod),
	}
}

// Fingerprint is the deduplication key for a source URL.
func Fingerprint(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return hex.EncodeToString(sum[:])
}

// ValidateSourceURL rejects anything that is not an absolute http(s) URL.
func ValidateSourceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

func (j *Job) IsExpired() bool {
	return time.Now().After(j.ExpiresAt)
}

// IsTerminal reports whether the job reached a final state. Terminal jobs
// never transition again.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusReady || j.Status == JobStatusFailed
}

// CanTransition reports whether moving to next respects the forward-only
// progression pending -> processing -> {ready | failed}.
func (j *Job) CanTransition(next JobStatus) bool {
	switch j.Status {
	case JobStatusPending:
		return next == JobStatusProcessing
	case JobStatusProcessing:
		return next == JobStatusReady || next == JobStatusFailed
	default:
		return false
	}
}

func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
}

func (j *Job) MarkReady(meta *Metadata) {
	j.Status = JobStatusReady
	j.Metadata = meta
	j.Error = ""
}

func (j *Job) MarkFailed(err error) {
	j.Status = JobStatusFailed
	j.Metadata = nil
	j.Error = err.Error()
}
