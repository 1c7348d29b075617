// Package ratelimit throttles job submissions per client so a single
// caller cannot flood the extraction queue.
package ratelimit

import (
	"sync"
	"time"
)

type record struct {
	count        int
	lastAttempt  time.Time
	blockedUntil time.Time
}

// SubmitLimiter allows maxRequests submissions per client within window;
// exceeding it blocks the client for blockDuration.
type SubmitLimiter struct {
	mu            sync.Mutex
	clients       map[string]*record
	maxRequests   int
	window        time.Duration
	blockDuration time.Duration
}

func NewSubmitLimiter(maxRequests int, window, blockDuration time.Duration) *SubmitLimiter {
	l := &SubmitLimiter{
		clients:       make(map[string]*record),
		maxRequests:   maxRequests,
		window:        window,
		blockDuration: blockDuration,
	}

	go l.cleanup()

	return l
}

// Allow records one submission attempt for clientID and reports whether it
// may proceed. When blocked, the second return value is the wait time.
func (l *SubmitLimiter) Allow(clientID string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	rec, exists := l.clients[clientID]
	if !exists {
		rec = &record{lastAttempt: now}
		l.clients[clientID] = rec
	}

	if now.Before(rec.blockedUntil) {
		return false, rec.blockedUntil.Sub(now)
	}

	if now.Sub(rec.lastAttempt) > l.window {
		rec.count = 0
	}

	rec.count++
	rec.lastAttempt = now

	if rec.count > l.maxRequests {
		rec.blockedUntil = now.Add(l.blockDuration)
		return false, l.blockDuration
	}

	return true, 0
}

func (l *SubmitLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for clientID, rec := range l.clients {
			if now.Sub(rec.lastAttempt) > l.window*2 && now.After(rec.blockedUntil) {
				delete(l.clients, clientID)
			}
		}
		l.mu.Unlock()
	}
}
