package ports

import (
	"context"
	"time"

	"github.com/snapwatch/worker/internal/domain/models"
)

// SiteRepository defines operations for site persistence
type SiteRepository interface {
	Create(ctx context.Context, site *models.Site) error
	GetByID(ctx context.Context, id string) (*models.Site, error)
	Update(ctx context.Context, site *models.Site) error
	Delete(ctx context.Context, id string) error
	ListByUserID(ctx context.Context, userID string) ([]*models.Site, error)
	GetByDomain(ctx context.Context, userID, domain string) (*models.Site, error)
}

// DuePage is a page the scheduler should capture now, carrying its
// resolved effective settings and owning user.
type DuePage struct {
	Page       *models.Page
	UserID     string
	Interval   int
	Viewports  []int
	HasPending bool
}

// PageRepository defines operations for page persistence
type PageRepository interface {
	Create(ctx context.Context, page *models.Page) error
	GetByID(ctx context.Context, id string) (*models.Page, error)
	Update(ctx context.Context, page *models.Page) error
	Delete(ctx context.Context, id string) error
	ListBySiteID(ctx context.Context, siteID string) ([]*models.Page, error)
	// ListDue returns capture candidates: pages with a pending job first
	// (newest job first), then active pages whose effective interval has
	// elapsed, oldest capture first. Retry cooldown is applied by the caller.
	ListDue(ctx context.Context, now time.Time) ([]*DuePage, error)
	// UpdateLastScreenshotAt stamps a successful capture
	UpdateLastScreenshotAt(ctx context.Context, id string, at time.Time) error
	// ListIDsWithScreenshots returns distinct page ids owned by the user
	// that still have screenshot rows, for retention sweeps
	ListIDsWithScreenshots(ctx context.Context, userID string) ([]string, error)
}

// UserSettingsRepository defines operations for per-user settings
type UserSettingsRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.UserSettings, error)
	Upsert(ctx context.Context, settings *models.UserSettings) error
	// ListRetentionEnabled returns settings rows with retention_enabled = true
	ListRetentionEnabled(ctx context.Context) ([]*models.UserSettings, error)
}

// ScreenshotRepository defines operations for screenshot persistence
type ScreenshotRepository interface {
	Create(ctx context.Context, screenshot *models.Screenshot) error
	GetByID(ctx context.Context, id string) (*models.Screenshot, error)
	Delete(ctx context.Context, id string) error
	ListByPageID(ctx context.Context, pageID string, limit, offset int) ([]*models.Screenshot, error)
	// ListByPageIDNewestFirst returns the full history for retention,
	// ordered by created_at descending
	ListByPageIDNewestFirst(ctx context.Context, pageID string) ([]*models.Screenshot, error)
	CountByPageID(ctx context.Context, pageID string) (int, error)
}

// ScreenshotErrorRepository defines operations for browser-observed errors
type ScreenshotErrorRepository interface {
	Create(ctx context.Context, se *models.ScreenshotError) error
	ListByScreenshotID(ctx context.Context, screenshotID string) ([]*models.ScreenshotError, error)
}

// InstructionRepository defines operations for instruction persistence
type InstructionRepository interface {
	Create(ctx context.Context, instruction *models.Instruction) error
	GetByID(ctx context.Context, id string) (*models.Instruction, error)
	Update(ctx context.Context, instruction *models.Instruction) error
	Delete(ctx context.Context, id string) error
	// ListActiveByPageID returns runnable instructions in execution order
	ListActiveByPageID(ctx context.Context, pageID string) ([]*models.Instruction, error)
	// RecordSuccess clears the error state after a clean run
	RecordSuccess(ctx context.Context, id string, at time.Time) error
	// RecordFailure notes the error and bumps error_count
	RecordFailure(ctx context.Context, id string, message string, at time.Time) error
}

// TestRepository defines operations for test persistence
type TestRepository interface {
	Create(ctx context.Context, test *models.Test) error
	GetByID(ctx context.Context, id string) (*models.Test, error)
	Update(ctx context.Context, test *models.Test) error
	Delete(ctx context.Context, id string) error
	ListActiveByPageID(ctx context.Context, pageID string) ([]*models.Test, error)
}

// TestResultRepository defines operations for test results
type TestResultRepository interface {
	Create(ctx context.Context, result *models.TestResult) error
	ListByScreenshotID(ctx context.Context, screenshotID string) ([]*models.TestResult, error)
	ListByTestID(ctx context.Context, testID string, limit int) ([]*models.TestResult, error)
}

// FailureStreak summarizes the consecutive-failure state of a page:
// failed jobs since the last non-failed job, and when the most recent
// failure finished.
type FailureStreak struct {
	Count        int
	LastFailedAt *time.Time
}

// CaptureJobRepository defines operations for capture job persistence
type CaptureJobRepository interface {
	// Create inserts a job, enforcing at most one non-terminal job per
	// page; returns domain.ErrJobConflict when one already exists
	Create(ctx context.Context, job *models.CaptureJob) error
	GetByID(ctx context.Context, id string) (*models.CaptureJob, error)
	// ClaimPending transitions the newest pending job for the page to
	// capturing and returns it; nil when no pending job exists
	ClaimPending(ctx context.Context, pageID string, viewportsTotal int, startedAt time.Time) (*models.CaptureJob, error)
	// UpdateProgress records the viewport about to be captured
	UpdateProgress(ctx context.Context, id string, currentViewport string, completed int) error
	Complete(ctx context.Context, id string, at time.Time) error
	Fail(ctx context.Context, id string, message string, at time.Time) error
	// ResetStale forces capturing jobs started before the cutoff to
	// failed with the stale-job message; returns how many were reset
	ResetStale(ctx context.Context, cutoff time.Time, at time.Time) (int, error)
	// GetFailureStreak computes the consecutive-failure state for a page
	GetFailureStreak(ctx context.Context, pageID string) (*FailureStreak, error)
	ListByPageID(ctx context.Context, pageID string, limit int) ([]*models.CaptureJob, error)
}

// TransactionManager defines the interface for managing database transactions
type TransactionManager interface {
	// WithTransaction executes a function within a database transaction
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// IDGenerator defines the interface for generating unique IDs
type IDGenerator interface {
	// GenerateSiteID generates a unique ID for a site
	GenerateSiteID() string
	// GeneratePageID generates a unique ID for a page
	GeneratePageID() string
	// GenerateScreenshotID generates a unique ID for a screenshot
	GenerateScreenshotID() string
	// GenerateScreenshotErrorID generates a unique ID for a screenshot error
	GenerateScreenshotErrorID() string
	// GenerateInstructionID generates a unique ID for an instruction
	GenerateInstructionID() string
	// GenerateTestID generates a unique ID for a test
	GenerateTestID() string
	// GenerateTestResultID generates a unique ID for a test result
	GenerateTestResultID() string
	// GenerateCaptureJobID generates a unique ID for a capture job
	GenerateCaptureJobID() string
	// GenerateUserSettingsID generates a unique ID for user settings
	GenerateUserSettingsID() string
	// GenerateRequestID generates a unique ID for tracking requests
	GenerateRequestID() string
}
