package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"

	"github.com/okhta/vidlink/internal/domain"
	"github.com/okhta/vidlink/internal/port"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
				"PRAGMA foreign_keys = ON",
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

func NewStore(dataDir string) (*Store, error) {
	registerHook()

	dbPath := filepath.Join(dataDir, "vidlink.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection for SQLite (WAL allows concurrent reads but only one writer)
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Create(ctx context.Context, job *domain.Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, owner_id, source_url, fingerprint, status, download_url, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.OwnerID, job.SourceURL, job.Fingerprint, string(job.Status),
		job.DownloadURL, job.CreatedAt.UTC().Format(time.RFC3339Nano), job.ExpiresAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, source_url, fingerprint, status, metadata_json, download_url, error_message, created_at, expires_at
		 FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// MarkProcessing claims a pending job. Re-claiming an already processing
// job (queue redelivery) is a no-op success; terminal jobs are refused.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ? WHERE id = ? AND status IN (?, ?)`,
		string(domain.JobStatusProcessing), id,
		string(domain.JobStatusPending), string(domain.JobStatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return s.checkTransition(ctx, res, id)
}

// MarkReady stores the metadata and flips the status in a single statement
// so no reader ever observes a ready job without metadata.
func (s *Store) MarkReady(ctx context.Context, id string, meta *domain.Metadata) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, metadata_json = ?, error_message = '' WHERE id = ? AND status = ?`,
		string(domain.JobStatusReady), string(payload), id, string(domain.JobStatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("mark ready: %w", err)
	}
	return s.checkTransition(ctx, res, id)
}

func (s *Store) MarkFailed(ctx context.Context, id string, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, metadata_json = NULL, error_message = ? WHERE id = ? AND status = ?`,
		string(domain.JobStatusFailed), reason, id, string(domain.JobStatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return s.checkTransition(ctx, res, id)
}

// checkTransition distinguishes "row missing" from "guard refused the
// update" after a conditional status change.
func (s *Store) checkTransition(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrInvalidTransition
}

// DeleteExpired sweeps jobs past their retention horizon and drops any
// queue tasks that still reference them.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM queue_tasks WHERE job_id IN
			(SELECT id FROM jobs WHERE datetime(expires_at) <= datetime(?))`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired tasks: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE datetime(expires_at) <= datetime(?)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) ListReadyByOwner(ctx context.Context, ownerID string, page, limit int) ([]*domain.Job, int, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs WHERE owner_id = ? AND status = ?`,
		ownerID, string(domain.JobStatusReady),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count ready jobs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, source_url, fingerprint, status, metadata_json, download_url, error_message, created_at, expires_at
		 FROM jobs WHERE owner_id = ? AND status = ?
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		ownerID, string(domain.JobStatusReady), limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list ready jobs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var status string
	var metaJSON, downloadURL sql.NullString
	var created, expires string

	err := row.Scan(
		&job.ID, &job.OwnerID, &job.SourceURL, &job.Fingerprint, &status,
		&metaJSON, &downloadURL, &job.Error, &created, &expires,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	job.Status = domain.JobStatus(status)
	if metaJSON.Valid && metaJSON.String != "" {
		var meta domain.Metadata
		if err := json.Unmarshal([]byte(metaJSON.String), &meta); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		job.Metadata = &meta
	}
	if downloadURL.Valid {
		v := downloadURL.String
		job.DownloadURL = &v
	}
	// A zero ExpiresAt would make the job read as already expired, so a
	// corrupt timestamp is an error rather than a silent default.
	job.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	job.ExpiresAt, err = time.Parse(time.RFC3339Nano, expires)
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	return &job, nil
}

var _ port.JobStore = (*Store)(nil)
