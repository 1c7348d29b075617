package service

import (
	"sync"

	"github.com/okhta/vidlink/internal/domain"
)

// Event is a point-in-time notification about a job's status.
type Event struct {
	Type    string // "status"
	Status  domain.JobStatus
	Message string
}

// Terminal reports whether the event describes a finished job. No further
// events follow a terminal one.
func (e Event) Terminal() bool {
	return e.Status == domain.JobStatusReady || e.Status == domain.JobStatusFailed
}

type EventPublisher interface {
	Publish(jobID string, event Event)
}

// EventBus fans job status events out to per-job subscribers. The worker
// pool publishes through it; the SSE endpoint listens. After a terminal
// event is delivered the job's subscriber channels are closed, so a
// listener can simply range until its channel ends.
type EventBus struct {
	subscribers map[string][]chan Event
	mu          sync.Mutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan Event),
	}
}

func (eb *EventBus) Subscribe(jobID string) chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, 16)
	eb.subscribers[jobID] = append(eb.subscribers[jobID], ch)
	return ch
}

// Unsubscribe is a no-op if the channel was already closed by a terminal
// publish.
func (eb *EventBus) Unsubscribe(jobID string, ch chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[jobID]
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[jobID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}

	if len(eb.subscribers[jobID]) == 0 {
		delete(eb.subscribers, jobID)
	}
}

func (eb *EventBus) Publish(jobID string, event Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for _, ch := range eb.subscribers[jobID] {
		select {
		case ch <- event:
		default:
			// Drop event if subscriber is slow
		}
	}

	if event.Terminal() {
		for _, ch := range eb.subscribers[jobID] {
			close(ch)
		}
		delete(eb.subscribers, jobID)
	}
}
