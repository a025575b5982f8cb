package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/snapwatch/worker/internal/ports"
)

type CaptureJobRepository struct {
	BaseRepository
}

func NewCaptureJobRepository(pool *pgxpool.Pool) *CaptureJobRepository {
	return &CaptureJobRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

// Create inserts the job only when the page has no pending or capturing
// job, keeping the one-non-terminal-job-per-page invariant inside a
// single statement.
func (r *CaptureJobRepository) Create(ctx context.Context, job *models.CaptureJob) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO snapwatch_capture_jobs (
			id, page_id, status, current_viewport, viewports_completed,
			viewports_total, error_message, started_at, completed_at, created_at
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		WHERE NOT EXISTS (
			SELECT 1 FROM snapwatch_capture_jobs
			WHERE page_id = $2 AND status IN ('pending', 'capturing')
		)`

	result, err := r.conn(ctx).Exec(ctx, query,
		job.ID,
		job.PageID,
		string(job.Status),
		job.CurrentViewport,
		job.ViewportsCompleted,
		job.ViewportsTotal,
		job.ErrorMessage,
		job.StartedAt,
		job.CompletedAt,
		job.CreatedAt,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrJobConflict
	}

	return nil
}

func (r *CaptureJobRepository) GetByID(ctx context.Context, id string) (*models.CaptureJob, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, page_id, status, current_viewport, viewports_completed,
			viewports_total, error_message, started_at, completed_at, created_at
		FROM snapwatch_capture_jobs
		WHERE id = $1`

	return r.scanJob(r.conn(ctx).QueryRow(ctx, query, id))
}

// ClaimPending moves the newest pending job for the page to capturing
// and returns it. Returns nil without error when no pending job exists.
func (r *CaptureJobRepository) ClaimPending(ctx context.Context, pageID string, viewportsTotal int, startedAt time.Time) (*models.CaptureJob, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE snapwatch_capture_jobs
		SET status = 'capturing', viewports_total = $2, started_at = $3
		WHERE id = (
			SELECT id FROM snapwatch_capture_jobs
			WHERE page_id = $1 AND status = 'pending'
			ORDER BY created_at DESC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, page_id, status, current_viewport, viewports_completed,
			viewports_total, error_message, started_at, completed_at, created_at`

	job, err := r.scanJobRow(r.conn(ctx).QueryRow(ctx, query, pageID, viewportsTotal, startedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return job, err
}

func (r *CaptureJobRepository) UpdateProgress(ctx context.Context, id string, currentViewport string, completed int) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE snapwatch_capture_jobs
		SET current_viewport = $1, viewports_completed = $2
		WHERE id = $3 AND status = 'capturing'`

	_, err := r.conn(ctx).Exec(ctx, query, currentViewport, completed, id)
	return err
}

func (r *CaptureJobRepository) Complete(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE snapwatch_capture_jobs
		SET status = 'completed', current_viewport = '', completed_at = $1
		WHERE id = $2 AND status = 'capturing'`

	result, err := r.conn(ctx).Exec(ctx, query, at, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrJobAlreadyFinished
	}

	return nil
}

func (r *CaptureJobRepository) Fail(ctx context.Context, id string, message string, at time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE snapwatch_capture_jobs
		SET status = 'failed', error_message = $1, completed_at = $2
		WHERE id = $3 AND status IN ('pending', 'capturing')`

	result, err := r.conn(ctx).Exec(ctx, query, message, at, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrJobAlreadyFinished
	}

	return nil
}

// ResetStale fails every capturing job started before the cutoff. Jobs
// without a started_at are counted too; they cannot make progress once
// the worker that claimed them is gone.
func (r *CaptureJobRepository) ResetStale(ctx context.Context, cutoff time.Time, at time.Time) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE snapwatch_capture_jobs
		SET status = 'failed', error_message = $1, completed_at = $2
		WHERE status = 'capturing'
			AND (started_at IS NULL OR started_at < $3)`

	result, err := r.conn(ctx).Exec(ctx, query, models.StaleJobErrorMessage, at, cutoff)
	if err != nil {
		return 0, err
	}

	return int(result.RowsAffected()), nil
}

// GetFailureStreak counts failed jobs created after the page's last
// non-failed job, with the finish time of the most recent failure.
func (r *CaptureJobRepository) GetFailureStreak(ctx context.Context, pageID string) (*ports.FailureStreak, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT COUNT(*), MAX(completed_at)
		FROM snapwatch_capture_jobs
		WHERE page_id = $1
			AND status = 'failed'
			AND created_at > COALESCE((
				SELECT MAX(created_at)
				FROM snapwatch_capture_jobs
				WHERE page_id = $1 AND status != 'failed'
			), '-infinity'::timestamptz)`

	var streak ports.FailureStreak
	err := r.conn(ctx).QueryRow(ctx, query, pageID).Scan(&streak.Count, &streak.LastFailedAt)
	if err != nil {
		return nil, err
	}

	return &streak, nil
}

func (r *CaptureJobRepository) ListByPageID(ctx context.Context, pageID string, limit int) ([]*models.CaptureJob, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, page_id, status, current_viewport, viewports_completed,
			viewports_total, error_message, started_at, completed_at, created_at
		FROM snapwatch_capture_jobs
		WHERE page_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.conn(ctx).Query(ctx, query, pageID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.CaptureJob

	for rows.Next() {
		job, err := r.scanJobRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

func (r *CaptureJobRepository) scanJob(row pgx.Row) (*models.CaptureJob, error) {
	job, err := r.scanJobRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *CaptureJobRepository) scanJobRow(row pgx.Row) (*models.CaptureJob, error) {
	var job models.CaptureJob
	var status string

	err := row.Scan(
		&job.ID,
		&job.PageID,
		&status,
		&job.CurrentViewport,
		&job.ViewportsCompleted,
		&job.ViewportsTotal,
		&job.ErrorMessage,
		&job.StartedAt,
		&job.CompletedAt,
		&job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = models.CaptureJobStatus(status)
	return &job, nil
}
