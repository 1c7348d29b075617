package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okhta/vidlink/internal/port"
)

// JobQueue is a FIFO queue over the shared SQLite database with visibility
// timeout semantics: claiming a task hides it for the visibility window,
// and a task whose holder never acks reappears automatically. That is the
// requeue policy that keeps a crashed worker from stranding a job in
// processing.
type JobQueue struct {
	db         *sql.DB
	visibility time.Duration
}

func NewJobQueue(store *Store, visibility time.Duration) *JobQueue {
	if visibility <= 0 {
		visibility = 2 * time.Minute
	}
	return &JobQueue{db: store.db, visibility: visibility}
}

func (q *JobQueue) Enqueue(ctx context.Context, task port.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	now := time.Now().UnixMilli()
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO queue_tasks (job_id, payload, visible_at, created_at) VALUES (?, ?, ?, ?)`,
		task.JobID, string(payload), now, now,
	)
	if err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// Claim atomically picks the oldest visible task, pushes its visibility
// forward, and returns it. Returns nil when nothing is claimable.
func (q *JobQueue) Claim(ctx context.Context) (*port.Task, error) {
	now := time.Now()
	hideUntil := now.Add(q.visibility).UnixMilli()

	row := q.db.QueryRowContext(ctx, `
		UPDATE queue_tasks
		SET visible_at = ?, attempts = attempts + 1
		WHERE job_id = (
			SELECT job_id FROM queue_tasks
			WHERE visible_at <= ?
			ORDER BY created_at ASC
			LIMIT 1
		)
		RETURNING payload, attempts`,
		hideUntil, now.UnixMilli(),
	)

	var payload string
	var attempts int
	err := row.Scan(&payload, &attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}

	var task port.Task
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	task.Attempts = attempts
	return &task, nil
}

func (q *JobQueue) Ack(ctx context.Context, jobID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM queue_tasks WHERE job_id = ?`, jobID)
	return err
}

func (q *JobQueue) Nack(ctx context.Context, jobID string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE queue_tasks SET visible_at = 0 WHERE job_id = ?`, jobID)
	return err
}

// Len reports visible plus hidden tasks, for observability.
func (q *JobQueue) Len(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue_tasks`).Scan(&n)
	return n, err
}

var _ port.JobQueue = (*JobQueue)(nil)
