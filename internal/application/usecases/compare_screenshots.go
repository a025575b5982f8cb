package usecases

import (
	"context"
	"fmt"

	"github.com/snapwatch/worker/internal/application/services"
	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/snapwatch/worker/internal/ports"
)

// CompareScreenshots diffs two stored screenshots of the same page.
type CompareScreenshots struct {
	screenshots ports.ScreenshotRepository
	storage     ports.ScreenshotStorage
	differ      ports.ImageDiffer
}

func NewCompareScreenshots(
	screenshots ports.ScreenshotRepository,
	storage ports.ScreenshotStorage,
	differ ports.ImageDiffer,
) *CompareScreenshots {
	return &CompareScreenshots{
		screenshots: screenshots,
		storage:     storage,
		differ:      differ,
	}
}

type CompareScreenshotsInput struct {
	ScreenshotID1 string
	ScreenshotID2 string
	IncludeDiff   bool
}

type CompareScreenshotsOutput struct {
	Stats   *ports.DiffStats
	DiffPNG []byte
}

// Execute orders the pair chronologically, reads both images and
// delegates pixel comparison. The older screenshot is always the
// "before" side no matter which ID came first.
func (uc *CompareScreenshots) Execute(ctx context.Context, input CompareScreenshotsInput) (*CompareScreenshotsOutput, error) {
	if err := services.ValidateID(input.ScreenshotID1, "screenshot_id_1"); err != nil {
		return nil, err
	}
	if err := services.ValidateID(input.ScreenshotID2, "screenshot_id_2"); err != nil {
		return nil, err
	}
	if input.ScreenshotID1 == input.ScreenshotID2 {
		return nil, domain.NewDomainError(domain.ErrSameScreenshot, "cannot compare a screenshot with itself")
	}

	first, err := uc.screenshots.GetByID(ctx, input.ScreenshotID1)
	if err != nil {
		return nil, err
	}
	second, err := uc.screenshots.GetByID(ctx, input.ScreenshotID2)
	if err != nil {
		return nil, err
	}
	if first.PageID != second.PageID {
		return nil, domain.NewDomainError(domain.ErrDifferentPageOwner, "screenshots belong to different pages")
	}

	before, after := orderByCreation(first, second)

	beforeData, err := uc.storage.Read(before.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: screenshot %s: %v", domain.ErrScreenshotMissing, before.ID, err)
	}
	afterData, err := uc.storage.Read(after.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: screenshot %s: %v", domain.ErrScreenshotMissing, after.ID, err)
	}

	stats, diffPNG, err := uc.differ.Compare(beforeData, afterData, input.IncludeDiff)
	if err != nil {
		return nil, err
	}
	return &CompareScreenshotsOutput{Stats: stats, DiffPNG: diffPNG}, nil
}

// orderByCreation puts the older screenshot first, breaking created_at
// ties by ID so the result is stable.
func orderByCreation(a, b *models.Screenshot) (before, after *models.Screenshot) {
	if a.CreatedAt.Equal(b.CreatedAt) {
		if a.ID < b.ID {
			return a, b
		}
		return b, a
	}
	if a.CreatedAt.Before(b.CreatedAt) {
		return a, b
	}
	return b, a
}
