// Package userplan resolves a user's plan tier. The static resolver reads
// its assignments from configuration; a real deployment would swap in a
// billing-service client behind the same port.
package userplan

import (
	"context"
	"strings"

	"github.com/okhta/vidlink/internal/port"
)

// StaticResolver maps user ids to plan names and decides privilege from a
// fixed set of gate-exempt plans. Unknown users and anonymous callers are
// never privileged.
type StaticResolver struct {
	plans      map[string]string
	privileged map[string]bool
}

// NewStaticResolver parses assignments like "u1:premium,u2:free" and a
// privileged-plan list like "premium,enterprise".
func NewStaticResolver(assignments, privilegedPlans string) *StaticResolver {
	r := &StaticResolver{
		plans:      make(map[string]string),
		privileged: make(map[string]bool),
	}
	for _, pair := range strings.Split(assignments, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			continue
		}
		r.plans[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	for _, plan := range strings.Split(privilegedPlans, ",") {
		plan = strings.TrimSpace(plan)
		if plan != "" {
			r.privileged[plan] = true
		}
	}
	return r
}

func (r *StaticResolver) Privileged(_ context.Context, ownerID string) (bool, error) {
	if ownerID == "" {
		return false, nil
	}
	return r.privileged[r.plans[ownerID]], nil
}

var _ port.PlanResolver = (*StaticResolver)(nil)
