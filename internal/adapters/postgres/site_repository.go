package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
)

type SiteRepository struct {
	BaseRepository
}

func NewSiteRepository(pool *pgxpool.Pool) *SiteRepository {
	return &SiteRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

func (r *SiteRepository) Create(ctx context.Context, site *models.Site) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	viewports, err := marshalIntSlice(site.Viewports)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO snapwatch_sites (
			id, user_id, domain, name, screenshot_interval, viewports,
			is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		site.ID,
		site.UserID,
		site.Domain,
		site.Name,
		intPtrToNull(site.ScreenshotInterval),
		viewports,
		site.IsActive,
		site.CreatedAt,
		site.UpdatedAt,
	)

	return err
}

func (r *SiteRepository) GetByID(ctx context.Context, id string) (*models.Site, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, domain, name, screenshot_interval, viewports,
			is_active, created_at, updated_at
		FROM snapwatch_sites
		WHERE id = $1`

	return r.scanSite(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *SiteRepository) GetByDomain(ctx context.Context, userID, domain string) (*models.Site, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, domain, name, screenshot_interval, viewports,
			is_active, created_at, updated_at
		FROM snapwatch_sites
		WHERE user_id = $1 AND domain = $2`

	return r.scanSite(r.conn(ctx).QueryRow(ctx, query, userID, domain))
}

func (r *SiteRepository) Update(ctx context.Context, site *models.Site) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	viewports, err := marshalIntSlice(site.Viewports)
	if err != nil {
		return err
	}

	query := `
		UPDATE snapwatch_sites
		SET domain = $1, name = $2, screenshot_interval = $3, viewports = $4,
			is_active = $5, updated_at = NOW()
		WHERE id = $6`

	result, err := r.conn(ctx).Exec(ctx, query,
		site.Domain,
		site.Name,
		intPtrToNull(site.ScreenshotInterval),
		viewports,
		site.IsActive,
		site.ID,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrSiteNotFound
	}

	return nil
}

func (r *SiteRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM snapwatch_sites WHERE id = $1`

	_, err := r.conn(ctx).Exec(ctx, query, id)
	return err
}

func (r *SiteRepository) ListByUserID(ctx context.Context, userID string) ([]*models.Site, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, domain, name, screenshot_interval, viewports,
			is_active, created_at, updated_at
		FROM snapwatch_sites
		WHERE user_id = $1
		ORDER BY created_at ASC`

	rows, err := r.conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanSites(rows)
}

func (r *SiteRepository) scanSite(row pgx.Row) (*models.Site, error) {
	var site models.Site
	var interval *int
	var viewports []byte

	err := row.Scan(
		&site.ID,
		&site.UserID,
		&site.Domain,
		&site.Name,
		&interval,
		&viewports,
		&site.IsActive,
		&site.CreatedAt,
		&site.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSiteNotFound
		}
		return nil, err
	}

	site.ScreenshotInterval = interval
	site.Viewports, err = unmarshalJSONSlice[int](viewports)
	if err != nil {
		return nil, err
	}

	return &site, nil
}

func (r *SiteRepository) scanSites(rows pgx.Rows) ([]*models.Site, error) {
	var sites []*models.Site

	for rows.Next() {
		var site models.Site
		var interval *int
		var viewports []byte

		err := rows.Scan(
			&site.ID,
			&site.UserID,
			&site.Domain,
			&site.Name,
			&interval,
			&viewports,
			&site.IsActive,
			&site.CreatedAt,
			&site.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		site.ScreenshotInterval = interval
		site.Viewports, err = unmarshalJSONSlice[int](viewports)
		if err != nil {
			return nil, err
		}

		sites = append(sites, &site)
	}

	return sites, rows.Err()
}
