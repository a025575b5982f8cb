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

type PageRepository struct {
	BaseRepository

	defaultInterval  int
	defaultViewports []int
}

func NewPageRepository(pool *pgxpool.Pool) *PageRepository {
	return &PageRepository{
		BaseRepository:   NewBaseRepository(pool),
		defaultInterval:  models.DefaultScreenshotIntervalMinutes,
		defaultViewports: models.DefaultViewportWidths,
	}
}

// WithCaptureDefaults overrides the interval and viewports ListDue falls
// back to when neither page, site nor user settings configure them.
func (r *PageRepository) WithCaptureDefaults(intervalMinutes int, viewports []int) *PageRepository {
	if intervalMinutes > 0 {
		r.defaultInterval = intervalMinutes
	}
	if len(viewports) > 0 {
		r.defaultViewports = viewports
	}
	return r
}

func (r *PageRepository) Create(ctx context.Context, page *models.Page) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	viewports, err := marshalIntSlice(page.Viewports)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO snapwatch_pages (
			id, site_id, url, name, screenshot_interval, viewports,
			is_active, last_screenshot_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		page.ID,
		page.SiteID,
		page.URL,
		page.Name,
		intPtrToNull(page.ScreenshotInterval),
		viewports,
		page.IsActive,
		page.LastScreenshotAt,
		page.CreatedAt,
		page.UpdatedAt,
	)

	return err
}

func (r *PageRepository) GetByID(ctx context.Context, id string) (*models.Page, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, site_id, url, name, screenshot_interval, viewports,
			is_active, last_screenshot_at, created_at, updated_at
		FROM snapwatch_pages
		WHERE id = $1`

	return r.scanPage(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *PageRepository) Update(ctx context.Context, page *models.Page) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	viewports, err := marshalIntSlice(page.Viewports)
	if err != nil {
		return err
	}

	query := `
		UPDATE snapwatch_pages
		SET url = $1, name = $2, screenshot_interval = $3, viewports = $4,
			is_active = $5, last_screenshot_at = $6, updated_at = NOW()
		WHERE id = $7`

	result, err := r.conn(ctx).Exec(ctx, query,
		page.URL,
		page.Name,
		intPtrToNull(page.ScreenshotInterval),
		viewports,
		page.IsActive,
		page.LastScreenshotAt,
		page.ID,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrPageNotFound
	}

	return nil
}

func (r *PageRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM snapwatch_pages WHERE id = $1`

	_, err := r.conn(ctx).Exec(ctx, query, id)
	return err
}

func (r *PageRepository) ListBySiteID(ctx context.Context, siteID string) ([]*models.Page, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, site_id, url, name, screenshot_interval, viewports,
			is_active, last_screenshot_at, created_at, updated_at
		FROM snapwatch_pages
		WHERE site_id = $1
		ORDER BY created_at ASC`

	rows, err := r.conn(ctx).Query(ctx, query, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanPages(rows)
}

// ListDue selects capture candidates. The effective interval and
// viewports resolve page override, then site override, then user
// settings, then the worker defaults passed as query arguments.
// Pages with a pending job always qualify and sort first, newest job
// first; interval-due pages follow, oldest capture first with
// never-captured pages ahead. Pages with a job already capturing are
// skipped, as are inactive pages.
func (r *PageRepository) ListDue(ctx context.Context, now time.Time) ([]*ports.DuePage, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	defaultViewports, err := marshalIntSlice(r.defaultViewports)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT p.id, p.site_id, p.url, p.name, p.screenshot_interval, p.viewports,
			p.is_active, p.last_screenshot_at, p.created_at, p.updated_at,
			s.user_id,
			COALESCE(p.screenshot_interval, s.screenshot_interval, us.screenshot_interval, $2) AS effective_interval,
			COALESCE(p.viewports, s.viewports, us.viewports, $3::jsonb) AS effective_viewports,
			pending.id IS NOT NULL AS has_pending
		FROM snapwatch_pages p
		JOIN snapwatch_sites s ON s.id = p.site_id
		LEFT JOIN snapwatch_user_settings us ON us.user_id = s.user_id
		LEFT JOIN LATERAL (
			SELECT j.id, j.created_at
			FROM snapwatch_capture_jobs j
			WHERE j.page_id = p.id AND j.status = 'pending'
			ORDER BY j.created_at DESC
			LIMIT 1
		) pending ON true
		WHERE p.is_active
			AND NOT EXISTS (
				SELECT 1 FROM snapwatch_capture_jobs running
				WHERE running.page_id = p.id AND running.status = 'capturing'
			)
			AND (
				pending.id IS NOT NULL
				OR p.last_screenshot_at IS NULL
				OR p.last_screenshot_at <= $1::timestamptz - make_interval(mins => COALESCE(p.screenshot_interval, s.screenshot_interval, us.screenshot_interval, $2))
			)
		ORDER BY (pending.id IS NOT NULL) DESC, pending.created_at DESC,
			p.last_screenshot_at ASC NULLS FIRST, p.created_at ASC`

	rows, err := r.conn(ctx).Query(ctx, query, now, r.defaultInterval, defaultViewports)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []*ports.DuePage

	for rows.Next() {
		var page models.Page
		var interval *int
		var viewports []byte
		var userID string
		var effectiveInterval int
		var effectiveViewports []byte
		var hasPending bool

		err := rows.Scan(
			&page.ID,
			&page.SiteID,
			&page.URL,
			&page.Name,
			&interval,
			&viewports,
			&page.IsActive,
			&page.LastScreenshotAt,
			&page.CreatedAt,
			&page.UpdatedAt,
			&userID,
			&effectiveInterval,
			&effectiveViewports,
			&hasPending,
		)
		if err != nil {
			return nil, err
		}

		page.ScreenshotInterval = interval
		page.Viewports, err = unmarshalJSONSlice[int](viewports)
		if err != nil {
			return nil, err
		}

		widths, err := unmarshalJSONSlice[int](effectiveViewports)
		if err != nil {
			return nil, err
		}
		if len(widths) == 0 {
			widths = models.DefaultViewportWidths
		}

		due = append(due, &ports.DuePage{
			Page:       &page,
			UserID:     userID,
			Interval:   effectiveInterval,
			Viewports:  widths,
			HasPending: hasPending,
		})
	}

	return due, rows.Err()
}

func (r *PageRepository) UpdateLastScreenshotAt(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE snapwatch_pages
		SET last_screenshot_at = $1, updated_at = NOW()
		WHERE id = $2`

	result, err := r.conn(ctx).Exec(ctx, query, at, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrPageNotFound
	}

	return nil
}

func (r *PageRepository) ListIDsWithScreenshots(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT DISTINCT p.id
		FROM snapwatch_pages p
		JOIN snapwatch_sites s ON s.id = p.site_id
		JOIN snapwatch_screenshots sc ON sc.page_id = p.id
		WHERE s.user_id = $1
		ORDER BY p.id`

	rows, err := r.conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *PageRepository) scanPage(row pgx.Row) (*models.Page, error) {
	var page models.Page
	var interval *int
	var viewports []byte

	err := row.Scan(
		&page.ID,
		&page.SiteID,
		&page.URL,
		&page.Name,
		&interval,
		&viewports,
		&page.IsActive,
		&page.LastScreenshotAt,
		&page.CreatedAt,
		&page.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPageNotFound
		}
		return nil, err
	}

	page.ScreenshotInterval = interval
	page.Viewports, err = unmarshalJSONSlice[int](viewports)
	if err != nil {
		return nil, err
	}

	return &page, nil
}

func (r *PageRepository) scanPages(rows pgx.Rows) ([]*models.Page, error) {
	var pages []*models.Page

	for rows.Next() {
		var page models.Page
		var interval *int
		var viewports []byte

		err := rows.Scan(
			&page.ID,
			&page.SiteID,
			&page.URL,
			&page.Name,
			&interval,
			&viewports,
			&page.IsActive,
			&page.LastScreenshotAt,
			&page.CreatedAt,
			&page.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		page.ScreenshotInterval = interval
		page.Viewports, err = unmarshalJSONSlice[int](viewports)
		if err != nil {
			return nil, err
		}

		pages = append(pages, &page)
	}

	return pages, rows.Err()
}
