package port

import (
	"context"
	"time"
)

// DedupCache short-circuits duplicate submissions by mapping a URL
// fingerprint to the job already created for it. Entries expire on their
// own horizon, independent of job retention.
type DedupCache interface {
	Lookup(fingerprint string) (jobID string, ok bool)
	Record(fingerprint, jobID string, ttl time.Duration)
}

// GateStore holds short-lived ad-unlock tokens keyed by owner identity and
// job. Anonymous callers share the "guest" identity.
type GateStore interface {
	Put(ownerIdentity, jobID, token string, ttl time.Duration)
	Token(ownerIdentity, jobID string) (token string, ok bool)
}

// PlanResolver decides whether an owner's plan tier bypasses the ad gate.
// Tier names stay inside the adapter; the core only sees the boolean.
type PlanResolver interface {
	Privileged(ctx context.Context, ownerID string) (bool, error)
}
