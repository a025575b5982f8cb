package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/snapwatch/worker/internal/domain/models"
)

type ScreenshotErrorRepository struct {
	BaseRepository
}

func NewScreenshotErrorRepository(pool *pgxpool.Pool) *ScreenshotErrorRepository {
	return &ScreenshotErrorRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

func (r *ScreenshotErrorRepository) Create(ctx context.Context, se *models.ScreenshotError) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO snapwatch_screenshot_errors (
			id, screenshot_id, kind, message, source, url, method, resource_type, status_text, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err := r.conn(ctx).Exec(ctx, query,
		se.ID,
		se.ScreenshotID,
		string(se.Kind),
		se.Message,
		se.Source,
		se.URL,
		se.Method,
		se.ResourceType,
		se.StatusText,
		se.CreatedAt,
	)

	return err
}

func (r *ScreenshotErrorRepository) ListByScreenshotID(ctx context.Context, screenshotID string) ([]*models.ScreenshotError, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, screenshot_id, kind, message, source, url, method, resource_type, status_text, created_at
		FROM snapwatch_screenshot_errors
		WHERE screenshot_id = $1
		ORDER BY created_at ASC`

	rows, err := r.conn(ctx).Query(ctx, query, screenshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var errs []*models.ScreenshotError

	for rows.Next() {
		var se models.ScreenshotError
		var kind string

		err := rows.Scan(
			&se.ID,
			&se.ScreenshotID,
			&kind,
			&se.Message,
			&se.Source,
			&se.URL,
			&se.Method,
			&se.ResourceType,
			&se.StatusText,
			&se.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		se.Kind = models.ScreenshotErrorKind(kind)
		errs = append(errs, &se)
	}

	return errs, rows.Err()
}
