package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
)

type ScreenshotRepository struct {
	BaseRepository
}

func NewScreenshotRepository(pool *pgxpool.Pool) *ScreenshotRepository {
	return &ScreenshotRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

func (r *ScreenshotRepository) Create(ctx context.Context, screenshot *models.Screenshot) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO snapwatch_screenshots (
			id, page_id, viewport, viewport_width, image_path, thumbnail_path,
			file_size, image_width, image_height, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err := r.conn(ctx).Exec(ctx, query,
		screenshot.ID,
		screenshot.PageID,
		screenshot.Viewport,
		screenshot.ViewportWidth,
		screenshot.ImagePath,
		screenshot.ThumbnailPath,
		screenshot.FileSize,
		screenshot.ImageWidth,
		screenshot.ImageHeight,
		screenshot.CreatedAt,
	)

	return err
}

func (r *ScreenshotRepository) GetByID(ctx context.Context, id string) (*models.Screenshot, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, page_id, viewport, viewport_width, image_path, thumbnail_path,
			file_size, image_width, image_height, created_at
		FROM snapwatch_screenshots
		WHERE id = $1`

	return r.scanScreenshot(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *ScreenshotRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM snapwatch_screenshots WHERE id = $1`

	_, err := r.conn(ctx).Exec(ctx, query, id)
	return err
}

func (r *ScreenshotRepository) ListByPageID(ctx context.Context, pageID string, limit, offset int) ([]*models.Screenshot, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, page_id, viewport, viewport_width, image_path, thumbnail_path,
			file_size, image_width, image_height, created_at
		FROM snapwatch_screenshots
		WHERE page_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.conn(ctx).Query(ctx, query, pageID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanScreenshots(rows)
}

func (r *ScreenshotRepository) ListByPageIDNewestFirst(ctx context.Context, pageID string) ([]*models.Screenshot, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, page_id, viewport, viewport_width, image_path, thumbnail_path,
			file_size, image_width, image_height, created_at
		FROM snapwatch_screenshots
		WHERE page_id = $1
		ORDER BY created_at DESC`

	rows, err := r.conn(ctx).Query(ctx, query, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanScreenshots(rows)
}

func (r *ScreenshotRepository) CountByPageID(ctx context.Context, pageID string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT COUNT(*) FROM snapwatch_screenshots WHERE page_id = $1`

	var count int
	err := r.conn(ctx).QueryRow(ctx, query, pageID).Scan(&count)
	return count, err
}

func (r *ScreenshotRepository) scanScreenshot(row pgx.Row) (*models.Screenshot, error) {
	var s models.Screenshot

	err := row.Scan(
		&s.ID,
		&s.PageID,
		&s.Viewport,
		&s.ViewportWidth,
		&s.ImagePath,
		&s.ThumbnailPath,
		&s.FileSize,
		&s.ImageWidth,
		&s.ImageHeight,
		&s.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScreenshotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func (r *ScreenshotRepository) scanScreenshots(rows pgx.Rows) ([]*models.Screenshot, error) {
	var screenshots []*models.Screenshot

	for rows.Next() {
		var s models.Screenshot

		err := rows.Scan(
			&s.ID,
			&s.PageID,
			&s.Viewport,
			&s.ViewportWidth,
			&s.ImagePath,
			&s.ThumbnailPath,
			&s.FileSize,
			&s.ImageWidth,
			&s.ImageHeight,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		screenshots = append(screenshots, &s)
	}

	return screenshots, rows.Err()
}
