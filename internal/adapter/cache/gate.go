package cache

import (
	"time"

	"github.com/okhta/vidlink/internal/port"
)

// GateStore keeps short-lived ad-unlock tokens keyed by owner identity and
// job id. Tokens are minted by the ad-delivery flow and read (not deleted)
// during unlock verification.
type GateStore struct {
	m *ttlMap
}

func NewGateStore() *GateStore {
	return &GateStore{m: newTTLMap(time.Minute)}
}

func (g *GateStore) Put(ownerIdentity, jobID, token string, ttl time.Duration) {
	g.m.set(gateKey(ownerIdentity, jobID), token, ttl)
}

func (g *GateStore) Token(ownerIdentity, jobID string) (string, bool) {
	return g.m.get(gateKey(ownerIdentity, jobID))
}

func gateKey(ownerIdentity, jobID string) string {
	return ownerIdentity + ":" + jobID
}

var _ port.GateStore = (*GateStore)(nil)
