package cache

import (
	"time"

	"github.com/okhta/vidlink/internal/port"
)

// DedupCache maps URL fingerprints to the job id already created for them.
// A live entry short-circuits duplicate submissions; failed jobs are not
// specially cached, so a retry after expiry creates fresh work.
type DedupCache struct {
	m *ttlMap
}

func NewDedupCache() *DedupCache {
	return &DedupCache{m: newTTLMap(time.Minute)}
}

func (c *DedupCache) Lookup(fingerprint string) (string, bool) {
	return c.m.get(fingerprint)
}

func (c *DedupCache) Record(fingerprint, jobID string, ttl time.Duration) {
	c.m.set(fingerprint, jobID, ttl)
}

var _ port.DedupCache = (*DedupCache)(nil)
