package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
)

func TestSiteRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &SiteRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	site := models.NewSite("sws_1", "user_1", "example.com", "Example")

	// No overrides: interval and viewports stay NULL so fallbacks apply
	mock.ExpectExec("INSERT INTO snapwatch_sites").
		WithArgs(site.ID, site.UserID, site.Domain, site.Name,
			pgxmock.AnyArg(), []byte(nil), true,
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	err = repo.Create(ctx, site)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSiteRepository_GetByDomain(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &SiteRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "domain", "name", "screenshot_interval", "viewports",
		"is_active", "created_at", "updated_at",
	}).AddRow("sws_1", "user_1", "example.com", "Example",
		nil, []byte(`[1920,375]`), true, now, now)

	mock.ExpectQuery("SELECT (.+) FROM snapwatch_sites").
		WithArgs("user_1", "example.com").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	site, err := repo.GetByDomain(ctx, "user_1", "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if site.ScreenshotInterval != nil {
		t.Errorf("expected no interval override, got %v", *site.ScreenshotInterval)
	}
	if len(site.Viewports) != 2 {
		t.Errorf("expected 2 viewports, got %v", site.Viewports)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSiteRepository_Update_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &SiteRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	site := models.NewSite("sws_gone", "user_1", "gone.example.com", "Gone")

	mock.ExpectExec("UPDATE snapwatch_sites").
		WithArgs(site.Domain, site.Name, pgxmock.AnyArg(), []byte(nil), true, site.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ctx := setupMockContext(mock)
	err = repo.Update(ctx, site)
	if !errors.Is(err, domain.ErrSiteNotFound) {
		t.Errorf("expected ErrSiteNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
