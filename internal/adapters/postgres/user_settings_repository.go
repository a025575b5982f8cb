package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
)

type UserSettingsRepository struct {
	BaseRepository
}

func NewUserSettingsRepository(pool *pgxpool.Pool) *UserSettingsRepository {
	return &UserSettingsRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

func (r *UserSettingsRepository) GetByUserID(ctx context.Context, userID string) (*models.UserSettings, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, screenshot_interval, viewports,
			retention_enabled, max_screenshots_per_page, max_age_days,
			keep_per_day, keep_per_week, keep_per_month, keep_per_year,
			created_at, updated_at
		FROM snapwatch_user_settings
		WHERE user_id = $1`

	return r.scanSettings(r.conn(ctx).QueryRow(ctx, query, userID))
}

func (r *UserSettingsRepository) Upsert(ctx context.Context, settings *models.UserSettings) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	viewports, err := marshalIntSlice(settings.Viewports)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO snapwatch_user_settings (
			id, user_id, screenshot_interval, viewports,
			retention_enabled, max_screenshots_per_page, max_age_days,
			keep_per_day, keep_per_week, keep_per_month, keep_per_year,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		ON CONFLICT (user_id) DO UPDATE SET
			screenshot_interval = EXCLUDED.screenshot_interval,
			viewports = EXCLUDED.viewports,
			retention_enabled = EXCLUDED.retention_enabled,
			max_screenshots_per_page = EXCLUDED.max_screenshots_per_page,
			max_age_days = EXCLUDED.max_age_days,
			keep_per_day = EXCLUDED.keep_per_day,
			keep_per_week = EXCLUDED.keep_per_week,
			keep_per_month = EXCLUDED.keep_per_month,
			keep_per_year = EXCLUDED.keep_per_year,
			updated_at = NOW()`

	_, err = r.conn(ctx).Exec(ctx, query,
		settings.ID,
		settings.UserID,
		settings.ScreenshotInterval,
		viewports,
		settings.RetentionEnabled,
		intPtrToNull(settings.MaxScreenshotsPerPage),
		intPtrToNull(settings.MaxAgeDays),
		settings.KeepPerDay,
		settings.KeepPerWeek,
		settings.KeepPerMonth,
		settings.KeepPerYear,
		settings.CreatedAt,
		settings.UpdatedAt,
	)

	return err
}

func (r *UserSettingsRepository) ListRetentionEnabled(ctx context.Context) ([]*models.UserSettings, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, screenshot_interval, viewports,
			retention_enabled, max_screenshots_per_page, max_age_days,
			keep_per_day, keep_per_week, keep_per_month, keep_per_year,
			created_at, updated_at
		FROM snapwatch_user_settings
		WHERE retention_enabled = true
		ORDER BY user_id ASC`

	rows, err := r.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []*models.UserSettings

	for rows.Next() {
		s, err := r.scanSettingsRow(rows)
		if err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}

	return settings, rows.Err()
}

func (r *UserSettingsRepository) scanSettings(row pgx.Row) (*models.UserSettings, error) {
	s, err := r.scanSettingsRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSettingsNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *UserSettingsRepository) scanSettingsRow(row pgx.Row) (*models.UserSettings, error) {
	var s models.UserSettings
	var viewports []byte
	var maxPerPage, maxAgeDays *int

	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.ScreenshotInterval,
		&viewports,
		&s.RetentionEnabled,
		&maxPerPage,
		&maxAgeDays,
		&s.KeepPerDay,
		&s.KeepPerWeek,
		&s.KeepPerMonth,
		&s.KeepPerYear,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.MaxScreenshotsPerPage = maxPerPage
	s.MaxAgeDays = maxAgeDays
	s.Viewports, err = unmarshalJSONSlice[int](viewports)
	if err != nil {
		return nil, err
	}

	return &s, nil
}
