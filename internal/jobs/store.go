package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"scribe/internal/logging"
	"scribe/internal/services"
)

// Store manages job persistence backed by an in-memory SQLite database.
// Job state is deliberately scoped to the daemon process: a restart
// starts with an empty registry.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates the in-memory database and applies the schema.
func Open(ctx context.Context, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	db, err := sql.Open("sqlite", "file::memory:?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	// A single connection keeps the in-memory database alive and
	// serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, logger: logger.With(logging.String(logging.FieldComponent, "jobstore"))}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database. All job state is discarded.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const jobColumns = `id, source_path, source_name, status, progress, current_chunk, total_chunks,
accumulated_text, segments_json, language, duration_seconds, chunk_seconds, overlap_seconds,
options_json, error_message, cancel_requested, created_at, updated_at`

// Create inserts a new job row. CreatedAt and UpdatedAt are stamped here.
func (s *Store) Create(ctx context.Context, job *Job) error {
	if job.ID == "" {
		return services.Wrap(services.ErrInvalidParameters, "jobstore", "create", "job id is required", nil)
	}
	if job.Status == "" {
		job.Status = StatusQueued
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
INSERT INTO jobs (`+jobColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.SourcePath, nullableString(job.SourceName), string(job.Status),
		job.Progress, job.CurrentChunk, job.TotalChunks,
		nullableString(job.AccumulatedText), nullableString(job.SegmentsJSON), nullableString(job.Language),
		job.DurationSeconds, job.ChunkSeconds, job.OverlapSeconds, nullableString(job.OptionsJSON),
		nullableString(job.ErrorMessage), boolToInt(job.CancelRequested),
		job.CreatedAt.Format(time.RFC3339Nano), job.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

// GetByID returns the job with the given id, or services.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "jobstore", "get", fmt.Sprintf("job %s not found", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// List returns jobs ordered by creation time, newest first. When statuses
// are given, only jobs in one of those statuses are returned.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + placeholders(len(statuses)) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// Update persists the whole row. Status changes are checked against the
// stored row so illegal transitions and terminal-state exits are rejected.
func (s *Store) Update(ctx context.Context, job *Job) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	var current string
	var progress int
	err = tx.QueryRowContext(ctx, `SELECT status, progress FROM jobs WHERE id = ?`, job.ID).Scan(&current, &progress)
	if errors.Is(err, sql.ErrNoRows) {
		return services.Wrap(services.ErrNotFound, "jobstore", "update", fmt.Sprintf("job %s not found", job.ID), nil)
	}
	if err != nil {
		return fmt.Errorf("read job %s: %w", job.ID, err)
	}
	if !Status(current).CanTransition(job.Status) {
		return services.Wrap(services.ErrInvalidParameters, "jobstore", "update",
			fmt.Sprintf("job %s cannot move from %s to %s", job.ID, current, job.Status), nil)
	}
	if job.Progress < progress {
		job.Progress = progress
	}
	job.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
UPDATE jobs SET source_path = ?, source_name = ?, status = ?, progress = ?, current_chunk = ?,
total_chunks = ?, accumulated_text = ?, segments_json = ?, language = ?, duration_seconds = ?,
chunk_seconds = ?, overlap_seconds = ?, options_json = ?, error_message = ?, cancel_requested = ?,
updated_at = ? WHERE id = ?`,
		job.SourcePath, nullableString(job.SourceName), string(job.Status), job.Progress, job.CurrentChunk,
		job.TotalChunks, nullableString(job.AccumulatedText), nullableString(job.SegmentsJSON), nullableString(job.Language),
		job.DurationSeconds, job.ChunkSeconds, job.OverlapSeconds, nullableString(job.OptionsJSON),
		nullableString(job.ErrorMessage), boolToInt(job.CancelRequested),
		job.UpdatedAt.Format(time.RFC3339Nano), job.ID)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}
	return tx.Commit()
}

// SetCancelRequested marks the job so the runner stops at the next chunk
// boundary. Terminal jobs are left untouched.
func (s *Store) SetCancelRequested(ctx context.Context, id string) error {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return nil
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE jobs SET cancel_requested = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("mark cancel for job %s: %w", id, err)
	}
	return nil
}

// CancelRequested reports whether cancellation has been asked for.
func (s *Store) CancelRequested(ctx context.Context, id string) (bool, error) {
	var flag int
	err := s.db.QueryRowContext(ctx, `SELECT cancel_requested FROM jobs WHERE id = ?`, id).Scan(&flag)
	if errors.Is(err, sql.ErrNoRows) {
		return false, services.Wrap(services.ErrNotFound, "jobstore", "cancel-requested", fmt.Sprintf("job %s not found", id), nil)
	}
	if err != nil {
		return false, fmt.Errorf("read cancel flag for job %s: %w", id, err)
	}
	return flag != 0, nil
}

// Delete removes a job row.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "jobstore", "delete", fmt.Sprintf("job %s not found", id), nil)
	}
	return nil
}

// Stats summarizes the registry by status.
type Stats struct {
	Total     int            `json:"total"`
	ByStatus  map[Status]int `json:"byStatus"`
	Active    int            `json:"active"`
	Completed int            `json:"completed"`
	Failed    int            `json:"failed"`
}

// Stats counts jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByStatus: make(map[Status]int)}
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("scan stats: %w", err)
		}
		st := Status(status)
		stats.ByStatus[st] = count
		stats.Total += count
		if st.IsActive() {
			stats.Active += count
		}
		switch st {
		case StatusCompleted:
			stats.Completed += count
		case StatusFailed:
			stats.Failed += count
		}
	}
	return stats, rows.Err()
}

// ExpiredTerminal returns terminal jobs last updated before cutoff.
func (s *Store) ExpiredTerminal(ctx context.Context, cutoff time.Time) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+jobColumns+` FROM jobs
WHERE status IN (?, ?, ?) AND updated_at < ?
ORDER BY updated_at ASC`,
		string(StatusCompleted), string(StatusFailed), string(StatusCancelled),
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("list expired jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// OldestTerminal returns up to limit terminal jobs, oldest update first.
// Used to shed history when the registry grows past its cap.
func (s *Store) OldestTerminal(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+jobColumns+` FROM jobs
WHERE status IN (?, ?, ?)
ORDER BY updated_at ASC
LIMIT ?`,
		string(StatusCompleted), string(StatusFailed), string(StatusCancelled), limit)
	if err != nil {
		return nil, fmt.Errorf("list oldest terminal jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan terminal job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// Count returns the total number of jobs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}
