package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/snapwatch/worker/internal/adapters/browser"
	"github.com/snapwatch/worker/internal/adapters/id"
	"github.com/snapwatch/worker/internal/adapters/postgres"
	"github.com/snapwatch/worker/internal/adapters/storage"
	"github.com/snapwatch/worker/internal/application/usecases"
	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/spf13/cobra"
)

// captureCmd captures a single page once and exits
func captureCmd() *cobra.Command {
	var pageID string
	var viewports []int

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture one page immediately",
		Long: `Capture a single monitored page across its viewports and exit.

Useful for verifying a page's instructions and tests without waiting
for the scheduler.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			pageRepo := postgres.NewPageRepository(pool)
			page, err := pageRepo.GetByID(ctx, pageID)
			if err != nil {
				return err
			}

			store, err := storage.NewStore(cfg.Storage.ScreenshotsDir)
			if err != nil {
				return fmt.Errorf("failed to open screenshot store: %w", err)
			}

			// One browser is enough for a one-off capture.
			browserPool, err := browser.NewPool(browser.PoolConfig{
				Size:           1,
				BinPath:        cfg.Browser.BinPath,
				NoSandbox:      cfg.Browser.NoSandbox,
				AcquireTimeout: cfg.Browser.AcquireTimeout(),
			})
			if err != nil {
				return fmt.Errorf("failed to start browser: %w", err)
			}
			defer func() {
				if err := browserPool.Close(); err != nil {
					log.Printf("Error closing browser: %v", err)
				}
			}()

			idGen := id.New()
			engine := browser.NewEngine(browserPool, store, idGen).
				WithTimeouts(cfg.Browser.NavigationTimeout(), cfg.Browser.AdHocTimeout())

			capture := usecases.NewCapturePage(
				postgres.NewCaptureJobRepository(pool),
				pageRepo,
				postgres.NewScreenshotRepository(pool),
				postgres.NewScreenshotErrorRepository(pool),
				postgres.NewInstructionRepository(pool),
				postgres.NewTestRepository(pool),
				postgres.NewTestResultRepository(pool),
				engine,
				idGen,
				postgres.NewTransactionManager(pool),
			)

			// Resolve widths the way the scheduler does: page override,
			// then site, then user settings, then worker defaults.
			if len(viewports) == 0 {
				site, err := postgres.NewSiteRepository(pool).GetByID(ctx, page.SiteID)
				if err != nil {
					return err
				}
				settings, err := postgres.NewUserSettingsRepository(pool).GetByUserID(ctx, site.UserID)
				if err != nil && !errors.Is(err, domain.ErrSettingsNotFound) {
					return err
				}
				viewports = models.EffectiveViewports(page, site, settings)
			}

			fmt.Printf("Capturing %s (%s) at widths %v\n", page.Name, page.URL, viewports)

			job, err := capture.Execute(ctx, page, viewports)
			if err != nil {
				return err
			}

			fmt.Printf("Job %s finished: %s\n", job.ID, job.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&pageID, "page", "", "ID of the page to capture (required)")
	cmd.Flags().IntSliceVar(&viewports, "viewports", nil, "viewport widths to capture (default: page settings)")
	_ = cmd.MarkFlagRequired("page")

	return cmd
}
