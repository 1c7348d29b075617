package port

import "context"

// Task is the unit of work handed from intake to the worker pool.
type Task struct {
	JobID     string `json:"jobId"`
	SourceURL string `json:"url"`
	OwnerID   string `json:"ownerId,omitempty"`
	Attempts  int    `json:"-"`
}

// JobQueue hands accepted jobs to workers in FIFO order with
// visibility-timeout semantics: a claimed task that is not acked within the
// queue's visibility window becomes claimable again, so a crashed worker
// cannot strand a job.
type JobQueue interface {
	Enqueue(ctx context.Context, task Task) error

	// Claim returns the oldest visible task, or nil when the queue is
	// empty. Claiming hides the task for the visibility window.
	Claim(ctx context.Context) (*Task, error)

	// Ack removes a finished task. Terminal job failures are acked too;
	// redelivery is only for workers that died mid-task.
	Ack(ctx context.Context, jobID string) error

	// Nack makes a claimed task immediately visible again.
	Nack(ctx context.Context, jobID string) error
}
