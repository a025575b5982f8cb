package usecases

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/snapwatch/worker/internal/adapters/metrics"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/snapwatch/worker/internal/ports"
)

// RunRetention sweeps stored screenshots for every retention-enabled
// user, thinning history with a grandfather-father-son policy.
type RunRetention struct {
	settings    ports.UserSettingsRepository
	pages       ports.PageRepository
	screenshots ports.ScreenshotRepository
	storage     ports.ScreenshotStorage
}

func NewRunRetention(
	settings ports.UserSettingsRepository,
	pages ports.PageRepository,
	screenshots ports.ScreenshotRepository,
	storage ports.ScreenshotStorage,
) *RunRetention {
	return &RunRetention{
		settings:    settings,
		pages:       pages,
		screenshots: screenshots,
		storage:     storage,
	}
}

// RetentionReport summarizes one sweep.
type RetentionReport struct {
	UsersProcessed     int `json:"users_processed"`
	PagesProcessed     int `json:"pages_processed"`
	ScreenshotsDeleted int `json:"screenshots_deleted"`
	Errors             int `json:"errors"`
}

// Run satisfies the scheduler's retention hook.
func (uc *RunRetention) Run(ctx context.Context) error {
	_, err := uc.Execute(ctx)
	return err
}

// Execute sweeps every retention-enabled user. Per-page failures are
// counted and logged but do not stop the sweep; `now` is fixed once so
// bucket assignment is consistent across the whole pass.
func (uc *RunRetention) Execute(ctx context.Context) (*RetentionReport, error) {
	now := time.Now().UTC()
	report := &RetentionReport{}

	enabled, err := uc.settings.ListRetentionEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list retention-enabled users: %w", err)
	}

	for _, settings := range enabled {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.UsersProcessed++

		pageIDs, err := uc.pages.ListIDsWithScreenshots(ctx, settings.UserID)
		if err != nil {
			log.Printf("[Retention] page listing failed for user %s: %v", settings.UserID, err)
			report.Errors++
			continue
		}

		policy := settings.Retention()
		for _, pageID := range pageIDs {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			deleted, err := uc.sweepPage(ctx, pageID, policy, now)
			report.PagesProcessed++
			report.ScreenshotsDeleted += deleted
			if err != nil {
				log.Printf("[Retention] sweep failed for page %s: %v", pageID, err)
				report.Errors++
			}
		}
	}

	if report.ScreenshotsDeleted > 0 || report.Errors > 0 {
		log.Printf("[Retention] sweep done: %d pages, %d screenshots deleted, %d errors",
			report.PagesProcessed, report.ScreenshotsDeleted, report.Errors)
	}
	return report, nil
}

// sweepPage deletes the doomed screenshots of one page: files first
// (missing files tolerated), then the row. A row that fails to delete
// keeps its files' paths valid for the next sweep.
func (uc *RunRetention) sweepPage(ctx context.Context, pageID string, policy models.RetentionSettings, now time.Time) (int, error) {
	shots, err := uc.screenshots.ListByPageIDNewestFirst(ctx, pageID)
	if err != nil {
		return 0, fmt.Errorf("failed to list screenshots: %w", err)
	}

	doomed := planRetention(shots, policy, now)
	deleted := 0
	for _, shot := range doomed {
		if ctx.Err() != nil {
			return deleted, ctx.Err()
		}
		if err := uc.storage.Remove(shot.ImagePath); err != nil {
			log.Printf("[Retention] failed to remove %s: %v", shot.ImagePath, err)
		}
		if err := uc.storage.Remove(shot.ThumbnailPath); err != nil {
			log.Printf("[Retention] failed to remove %s: %v", shot.ThumbnailPath, err)
		}
		if err := uc.screenshots.Delete(ctx, shot.ID); err != nil {
			return deleted, fmt.Errorf("failed to delete screenshot row %s: %w", shot.ID, err)
		}
		deleted++
		metrics.ScreenshotsDeletedTotal.Inc()
	}
	return deleted, nil
}

// planRetention decides which screenshots to delete. Deterministic for
// a given (screenshots, policy, now) and stable across repeated runs:
// a second pass over the survivors selects nothing.
func planRetention(shots []*models.Screenshot, policy models.RetentionSettings, now time.Time) []*models.Screenshot {
	if len(shots) == 0 {
		return nil
	}

	// Newest first regardless of repository ordering.
	ordered := append([]*models.Screenshot(nil), shots...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID > ordered[j].ID
		}
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})

	var doomed []*models.Screenshot
	survivors := ordered

	// Hard cap keeps the newest N.
	if policy.MaxScreenshotsPerPage != nil && *policy.MaxScreenshotsPerPage >= 0 && len(survivors) > *policy.MaxScreenshotsPerPage {
		doomed = append(doomed, survivors[*policy.MaxScreenshotsPerPage:]...)
		survivors = survivors[:*policy.MaxScreenshotsPerPage]
	}

	// Max age removes everything older.
	if policy.MaxAgeDays != nil && *policy.MaxAgeDays > 0 {
		cutoff := now.AddDate(0, 0, -*policy.MaxAgeDays)
		kept := survivors[:0:len(survivors)]
		for _, shot := range survivors {
			if shot.CreatedAt.Before(cutoff) {
				doomed = append(doomed, shot)
			} else {
				kept = append(kept, shot)
			}
		}
		survivors = kept
	}

	// GFS: bucket by age tier, then thin each bucket to its limit.
	buckets := map[string][]*models.Screenshot{}
	limits := map[string]int{}
	var order []string
	for _, shot := range survivors {
		key, limit := retentionBucket(shot.CreatedAt, now, policy)
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
			limits[key] = limit
		}
		buckets[key] = append(buckets[key], shot)
	}

	for _, key := range order {
		doomed = append(doomed, thinBucket(buckets[key], limits[key])...)
	}
	return doomed
}

// retentionBucket maps a screenshot to its GFS bucket key and limit by
// age: daily for the first week, weekly for the first month, monthly
// for the first year, yearly beyond.
func retentionBucket(createdAt, now time.Time, policy models.RetentionSettings) (string, int) {
	ageDays := int(now.Sub(createdAt).Hours() / 24)
	t := createdAt.UTC()

	switch {
	case ageDays <= 7:
		return t.Format("2006-01-02"), policy.KeepPerDay
	case ageDays <= 30:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week), policy.KeepPerWeek
	case ageDays <= 365:
		return t.Format("2006-01"), policy.KeepPerMonth
	default:
		return t.Format("2006"), policy.KeepPerYear
	}
}

// thinBucket keeps an evenly spaced sample of limit screenshots,
// always including the oldest, and returns the rest.
func thinBucket(bucket []*models.Screenshot, limit int) []*models.Screenshot {
	if limit <= 0 {
		return bucket
	}
	if len(bucket) <= limit {
		return nil
	}

	asc := append([]*models.Screenshot(nil), bucket...)
	sort.SliceStable(asc, func(i, j int) bool {
		if asc[i].CreatedAt.Equal(asc[j].CreatedAt) {
			return asc[i].ID < asc[j].ID
		}
		return asc[i].CreatedAt.Before(asc[j].CreatedAt)
	})

	keep := make(map[int]bool, limit)
	for i := 0; i < limit; i++ {
		keep[i*len(asc)/limit] = true
	}

	var doomed []*models.Screenshot
	for i, shot := range asc {
		if !keep[i] {
			doomed = append(doomed, shot)
		}
	}
	return doomed
}
