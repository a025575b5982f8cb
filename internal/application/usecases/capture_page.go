package usecases

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/snapwatch/worker/internal/adapters/metrics"
	"github.com/snapwatch/worker/internal/application/services"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/snapwatch/worker/internal/ports"
)

// CapturePage runs one full capture for a page: job lifecycle, the
// browser pipeline, and persistence of everything it produced.
type CapturePage struct {
	jobs         ports.CaptureJobRepository
	pages        ports.PageRepository
	screenshots  ports.ScreenshotRepository
	shotErrors   ports.ScreenshotErrorRepository
	instructions ports.InstructionRepository
	tests        ports.TestRepository
	testResults  ports.TestResultRepository
	engine       ports.CaptureEngine
	idGenerator  ports.IDGenerator
	tx           ports.TransactionManager
}

func NewCapturePage(
	jobs ports.CaptureJobRepository,
	pages ports.PageRepository,
	screenshots ports.ScreenshotRepository,
	shotErrors ports.ScreenshotErrorRepository,
	instructions ports.InstructionRepository,
	tests ports.TestRepository,
	testResults ports.TestResultRepository,
	engine ports.CaptureEngine,
	idGenerator ports.IDGenerator,
	tx ports.TransactionManager,
) *CapturePage {
	return &CapturePage{
		jobs:         jobs,
		pages:        pages,
		screenshots:  screenshots,
		shotErrors:   shotErrors,
		instructions: instructions,
		tests:        tests,
		testResults:  testResults,
		engine:       engine,
		idGenerator:  idGenerator,
		tx:           tx,
	}
}

// Execute captures the page across the given viewport widths. An empty
// list falls back to the built-in defaults. The returned job is
// terminal: completed, or failed with its error message.
func (uc *CapturePage) Execute(ctx context.Context, page *models.Page, viewports []int) (*models.CaptureJob, error) {
	if err := services.ValidateID(page.ID, "page"); err != nil {
		return nil, err
	}
	if len(viewports) == 0 {
		viewports = models.DefaultViewportWidths
	}

	job, err := uc.claimOrCreateJob(ctx, page.ID, len(viewports))
	if err != nil {
		return nil, err
	}

	instructions, err := uc.instructions.ListActiveByPageID(ctx, page.ID)
	if err != nil {
		return job, uc.fail(ctx, job, fmt.Sprintf("failed to load instructions: %v", err))
	}
	tests, err := uc.tests.ListActiveByPageID(ctx, page.ID)
	if err != nil {
		return job, uc.fail(ctx, job, fmt.Sprintf("failed to load tests: %v", err))
	}

	req := &ports.CaptureRequest{
		Page:         page,
		Viewports:    viewports,
		Instructions: instructions,
		Tests:        tests,
		OnProgress: func(viewportTag string, completed, total int) {
			if err := uc.jobs.UpdateProgress(ctx, job.ID, viewportTag, completed); err != nil && ctx.Err() == nil {
				log.Printf("[CapturePage] progress update failed for job %s: %v", job.ID, err)
			}
		},
	}

	result, err := uc.engine.CapturePage(ctx, req)
	if err != nil {
		return job, uc.fail(ctx, job, err.Error())
	}

	if err := uc.persist(ctx, result); err != nil {
		return job, uc.fail(ctx, job, err.Error())
	}

	uc.recordInstructionOutcomes(ctx, result.InstructionResults)

	now := time.Now().UTC()
	if err := uc.pages.UpdateLastScreenshotAt(ctx, page.ID, now); err != nil {
		return job, uc.fail(ctx, job, fmt.Sprintf("failed to stamp page capture time: %v", err))
	}

	if err := uc.jobs.Complete(ctx, job.ID, now); err != nil {
		return job, uc.fail(ctx, job, fmt.Sprintf("failed to complete job: %v", err))
	}
	_ = job.Complete()
	metrics.CaptureJobsTotal.WithLabelValues("completed").Inc()

	if result.FailedViewports > 0 {
		log.Printf("[CapturePage] page %s captured with %d failed viewports", page.ID, result.FailedViewports)
	}

	return job, nil
}

// claimOrCreateJob picks up the newest pending job for the page, or
// creates one directly in capturing for scheduled captures. Job
// creation enforces the one-non-terminal-job invariant.
func (uc *CapturePage) claimOrCreateJob(ctx context.Context, pageID string, viewportsTotal int) (*models.CaptureJob, error) {
	now := time.Now().UTC()

	job, err := uc.jobs.ClaimPending(ctx, pageID, viewportsTotal, now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending job: %w", err)
	}
	if job != nil {
		return job, nil
	}

	job = models.NewRunningCaptureJob(uc.idGenerator.GenerateCaptureJobID(), pageID, viewportsTotal)
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// persist writes all screenshot rows, console errors and test results in
// one transaction, so a mid-write crash never leaves a partial capture.
func (uc *CapturePage) persist(ctx context.Context, result *ports.CaptureResult) error {
	return uc.tx.WithTransaction(ctx, func(ctx context.Context) error {
		for _, vp := range result.Viewports {
			if err := uc.screenshots.Create(ctx, vp.Screenshot); err != nil {
				return fmt.Errorf("failed to persist screenshot %s: %w", vp.Screenshot.ID, err)
			}
			for _, se := range vp.Errors {
				if err := uc.shotErrors.Create(ctx, se); err != nil {
					return fmt.Errorf("failed to persist screenshot error: %w", err)
				}
			}
			for _, tr := range vp.TestResults {
				if err := uc.testResults.Create(ctx, tr); err != nil {
					return fmt.Errorf("failed to persist test result: %w", err)
				}
			}
		}
		return nil
	})
}

// recordInstructionOutcomes stamps each instruction row with its result
// from the widest viewport. Failures here only lose bookkeeping, so
// they are logged rather than failing the job.
func (uc *CapturePage) recordInstructionOutcomes(ctx context.Context, results []models.InstructionResult) {
	now := time.Now().UTC()
	for _, r := range results {
		var err error
		if r.Success {
			err = uc.instructions.RecordSuccess(ctx, r.InstructionID, now)
		} else {
			err = uc.instructions.RecordFailure(ctx, r.InstructionID, r.Error, now)
		}
		if err != nil && ctx.Err() == nil {
			log.Printf("[CapturePage] instruction outcome update failed for %s: %v", r.InstructionID, err)
		}
	}
}

// fail moves the job to failed and returns an error carrying the same
// message. Persistence errors during the transition are logged; the
// stale-job reset eventually catches jobs left in capturing.
func (uc *CapturePage) fail(ctx context.Context, job *models.CaptureJob, message string) error {
	if err := uc.jobs.Fail(ctx, job.ID, message, time.Now().UTC()); err != nil && ctx.Err() == nil {
		log.Printf("[CapturePage] failed to mark job %s failed: %v", job.ID, err)
	}
	_ = job.Fail(message)
	metrics.CaptureJobsTotal.WithLabelValues("failed").Inc()
	return fmt.Errorf("capture failed for page %s: %s", job.PageID, message)
}
