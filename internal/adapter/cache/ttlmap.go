// Package cache provides the in-process ephemeral key/value stores backing
// submission deduplication and ad-unlock tokens. Both are TTL maps with a
// janitor goroutine; nothing here is authoritative state, so process
// restart simply forgets entries and callers fall back to the slow path.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// ttlMap is a mutex-guarded string map whose entries expire individually.
type ttlMap struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func newTTLMap(janitorInterval time.Duration) *ttlMap {
	m := &ttlMap{entries: make(map[string]entry)}
	go m.janitor(janitorInterval)
	return m
}

func (m *ttlMap) get(key string) (string, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

func (m *ttlMap) set(key, value string, ttl time.Duration) {
	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
}

func (m *ttlMap) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		m.mu.Lock()
		for key, e := range m.entries {
			if now.After(e.expiresAt) {
				delete(m.entries, key)
			}
		}
		m.mu.Unlock()
	}
}
