package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/snapwatch/worker/internal/domain/models"
)

type TestResultRepository struct {
	BaseRepository
}

func NewTestResultRepository(pool *pgxpool.Pool) *TestResultRepository {
	return &TestResultRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

func (r *TestResultRepository) Create(ctx context.Context, result *models.TestResult) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO snapwatch_test_results (
			id, test_id, screenshot_id, passed, message, execution_time_ms, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)`

	_, err := r.conn(ctx).Exec(ctx, query,
		result.ID,
		result.TestID,
		result.ScreenshotID,
		result.Passed,
		result.Message,
		result.ExecutionTimeMs,
		result.CreatedAt,
	)

	return err
}

func (r *TestResultRepository) ListByScreenshotID(ctx context.Context, screenshotID string) ([]*models.TestResult, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, test_id, screenshot_id, passed, message, execution_time_ms, created_at
		FROM snapwatch_test_results
		WHERE screenshot_id = $1
		ORDER BY created_at ASC`

	rows, err := r.conn(ctx).Query(ctx, query, screenshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanResults(rows)
}

func (r *TestResultRepository) ListByTestID(ctx context.Context, testID string, limit int) ([]*models.TestResult, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, test_id, screenshot_id, passed, message, execution_time_ms, created_at
		FROM snapwatch_test_results
		WHERE test_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.conn(ctx).Query(ctx, query, testID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanResults(rows)
}

func (r *TestResultRepository) scanResults(rows pgx.Rows) ([]*models.TestResult, error) {
	var results []*models.TestResult

	for rows.Next() {
		var result models.TestResult

		err := rows.Scan(
			&result.ID,
			&result.TestID,
			&result.ScreenshotID,
			&result.Passed,
			&result.Message,
			&result.ExecutionTimeMs,
			&result.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		results = append(results, &result)
	}

	return results, rows.Err()
}
