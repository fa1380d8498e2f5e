package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dairyforecast/herdsim/internal/forecasterr"
)

// Store is the Postgres-backed job table, one row per job, plain SQL with
// no ORM, following the teacher's ExportJobRepository pattern.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an existing connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a new job row with status=queued, progress=0 and zeroed
// counters.
func (s *Store) Create(ctx context.Context, req CreateRequest) (*Job, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	expires := now.Add(req.ExpiresIn)

	const query = `
		INSERT INTO forecast_jobs (
			id, owner_id, dataset_id, scenario_id, params,
			status, progress, completed_runs, total_runs,
			queued_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, 0, 0, $7, $8, $9)
	`
	_, err := s.pool.Exec(ctx, query,
		id, req.OwnerID, req.DatasetID, req.ScenarioID, req.Params,
		StatusQueued, req.TotalRuns, now, expires,
	)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	return &Job{
		ID:        id,
		OwnerID:   req.OwnerID,
		DatasetID: req.DatasetID,
		ScenarioID: req.ScenarioID,
		Params:    req.Params,
		Status:    StatusQueued,
		TotalRuns: req.TotalRuns,
		QueuedAt:  now,
		ExpiresAt: expires,
	}, nil
}

// Get fetches a non-deleted job by id, scoped to its owner.
func (s *Store) Get(ctx context.Context, ownerID, jobID string) (*Job, error) {
	const query = `
		SELECT id, owner_id, dataset_id, scenario_id, params,
			status, progress, completed_runs, total_runs, error_message,
			result_key, csv_key, xlsx_key,
			queued_at, started_at, finished_at, expires_at, deleted_at
		FROM forecast_jobs
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
	`
	row := s.pool.QueryRow(ctx, query, jobID, ownerID)
	job, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, forecasterr.JobNotFound(jobID)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// GetByID fetches a non-deleted job by id without an owner scope, for use
// by the worker (which acts on behalf of no particular caller) rather
// than the owner-facing API.
func (s *Store) GetByID(ctx context.Context, jobID string) (*Job, error) {
	const query = `
		SELECT id, owner_id, dataset_id, scenario_id, params,
			status, progress, completed_runs, total_runs, error_message,
			result_key, csv_key, xlsx_key,
			queued_at, started_at, finished_at, expires_at, deleted_at
		FROM forecast_jobs
		WHERE id = $1 AND deleted_at IS NULL
	`
	row := s.pool.QueryRow(ctx, query, jobID)
	job, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, forecasterr.JobNotFound(jobID)
		}
		return nil, fmt.Errorf("get job by id: %w", err)
	}
	return job, nil
}

// List returns jobs matching filter, newest queued_at first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Job, error) {
	query := `
		SELECT id, owner_id, dataset_id, scenario_id, params,
			status, progress, completed_runs, total_runs, error_message,
			result_key, csv_key, xlsx_key,
			queued_at, started_at, finished_at, expires_at, deleted_at
		FROM forecast_jobs
		WHERE owner_id = $1 AND deleted_at IS NULL
	`
	args := []interface{}{filter.OwnerID}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != nil {
		query += " AND status = " + arg(*filter.Status)
	}
	if filter.Since != nil {
		query += " AND queued_at >= " + arg(*filter.Since)
	}
	if filter.Until != nil {
		query += " AND queued_at <= " + arg(*filter.Until)
	}
	if filter.Query != "" {
		query += " AND (id ILIKE " + arg("%"+filter.Query+"%") + " OR dataset_id ILIKE " + arg("%"+filter.Query+"%") + ")"
	}

	query += " ORDER BY queued_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT " + arg(limit)
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

// MarkRunning transitions a job from queued (or an already-running job,
// tolerated as a no-op retry of a dequeue) into running. The guard clause
// `WHERE status = ANY(...)` means a concurrent writer that already moved
// the job past running loses the race silently; callers check the
// returned bool.
func (s *Store) MarkRunning(ctx context.Context, jobID string) (bool, error) {
	const query = `
		UPDATE forecast_jobs
		SET status = $1, progress = 10, completed_runs = 0, started_at = NOW()
		WHERE id = $2 AND status = ANY($3)
	`
	tag, err := s.pool.Exec(ctx, query, StatusRunning, jobID, []Status{StatusQueued, StatusRunning})
	if err != nil {
		return false, fmt.Errorf("mark running: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateProgress writes the latest batch counters for a running job. It
// silently no-ops if the job has left running, matching the
// terminal-idempotence requirement: late progress writes from a canceled
// or requeued run must not resurrect a finished job.
func (s *Store) UpdateProgress(ctx context.Context, jobID string, progress, completedRuns, totalRuns int) (bool, error) {
	const query = `
		UPDATE forecast_jobs
		SET progress = $1, completed_runs = $2, total_runs = $3
		WHERE id = $4 AND status = $5
	`
	tag, err := s.pool.Exec(ctx, query, progress, completedRuns, totalRuns, jobID, StatusRunning)
	if err != nil {
		return false, fmt.Errorf("update progress: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkFailed transitions a non-terminal job to failed with an error
// message. Returns false (no error) if the job was already terminal.
func (s *Store) MarkFailed(ctx context.Context, jobID, errMsg string) (bool, error) {
	const query = `
		UPDATE forecast_jobs
		SET status = $1, error_message = $2, finished_at = NOW()
		WHERE id = $3 AND status NOT IN ($4, $5, $6)
	`
	tag, err := s.pool.Exec(ctx, query, StatusFailed, errMsg, jobID,
		StatusSucceeded, StatusFailed, StatusCanceled)
	if err != nil {
		return false, fmt.Errorf("mark failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkSucceeded transitions a non-terminal job to succeeded, stamping the
// artifact keys the worker produced.
func (s *Store) MarkSucceeded(ctx context.Context, jobID string, totalRuns int, resultKey, csvKey, xlsxKey string) (bool, error) {
	const query = `
		UPDATE forecast_jobs
		SET status = $1, progress = 100,
			completed_runs = GREATEST(completed_runs, $2),
			result_key = $3, csv_key = $4, xlsx_key = $5,
			finished_at = NOW()
		WHERE id = $6 AND status NOT IN ($7, $8, $9)
	`
	tag, err := s.pool.Exec(ctx, query, StatusSucceeded, totalRuns, resultKey, csvKey, xlsxKey, jobID,
		StatusSucceeded, StatusFailed, StatusCanceled)
	if err != nil {
		return false, fmt.Errorf("mark succeeded: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FindStuckRunning returns running jobs whose started_at predates
// now-timeout, locking the rows FOR UPDATE SKIP LOCKED so two supervisor
// instances never requeue the same job twice.
func (s *Store) FindStuckRunning(ctx context.Context, timeout time.Duration) ([]Job, error) {
	const query = `
		SELECT id, owner_id, dataset_id, scenario_id, params,
			status, progress, completed_runs, total_runs, error_message,
			result_key, csv_key, xlsx_key,
			queued_at, started_at, finished_at, expires_at, deleted_at
		FROM forecast_jobs
		WHERE status = $1 AND started_at < $2
		FOR UPDATE SKIP LOCKED
	`
	cutoff := time.Now().UTC().Add(-timeout)
	rows, err := s.pool.Query(ctx, query, StatusRunning, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find stuck running: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

// Requeue resets a job back to queued with zeroed counters, used both by
// the stuck-job sweep and by an explicit retry.
func (s *Store) Requeue(ctx context.Context, jobID string) (bool, error) {
	const query = `
		UPDATE forecast_jobs
		SET status = $1, progress = 0, completed_runs = 0,
			started_at = NULL, finished_at = NULL, error_message = NULL
		WHERE id = $2 AND status = $3
	`
	tag, err := s.pool.Exec(ctx, query, StatusQueued, jobID, StatusRunning)
	if err != nil {
		return false, fmt.Errorf("requeue job: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SoftDelete marks a job deleted, hiding it from List/Get without
// touching its artifacts. It refuses to delete a job still in a
// non-terminal state.
func (s *Store) SoftDelete(ctx context.Context, ownerID, jobID string) error {
	const query = `
		UPDATE forecast_jobs
		SET deleted_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
			AND status IN ($3, $4, $5)
	`
	tag, err := s.pool.Exec(ctx, query, jobID, ownerID, StatusSucceeded, StatusFailed, StatusCanceled)
	if err != nil {
		return fmt.Errorf("soft delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, getErr := s.Get(ctx, ownerID, jobID)
		if getErr != nil {
			return getErr
		}
		if !existing.Status.IsTerminal() {
			return forecasterr.JobActive(jobID)
		}
		return forecasterr.JobNotFound(jobID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.OwnerID, &j.DatasetID, &j.ScenarioID, &j.Params,
		&j.Status, &j.Progress, &j.CompletedRuns, &j.TotalRuns, &j.ErrorMessage,
		&j.ResultKey, &j.CSVKey, &j.XLSXKey,
		&j.QueuedAt, &j.StartedAt, &j.FinishedAt, &j.ExpiresAt, &j.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
