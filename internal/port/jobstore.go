package port

import (
	"context"
	"time"

	"github.com/okhta/vidlink/internal/domain"
)

// JobStore is the single source of truth for job records. Status mutations
// go through the Mark* methods, which enforce the forward-only progression
// pending -> processing -> {ready | failed} and apply status together with
// its payload atomically.
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error
	Get(ctx context.Context, id string) (*domain.Job, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkReady(ctx context.Context, id string, meta *domain.Metadata) error
	MarkFailed(ctx context.Context, id string, reason string) error

	// ListReadyByOwner returns the owner's ready jobs, newest first, with
	// the total count of matching rows for pagination. Page starts at 1.
	ListReadyByOwner(ctx context.Context, ownerID string, page, limit int) ([]*domain.Job, int, error)

	// DeleteExpired removes jobs whose retention horizon passed, together
	// with any queue tasks still referencing them.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
