package main

import (
	"fmt"

	"github.com/snapwatch/worker/internal/adapters/postgres"
	"github.com/snapwatch/worker/internal/adapters/storage"
	"github.com/snapwatch/worker/internal/application/usecases"
	"github.com/spf13/cobra"
)

// retentionCmd runs one retention sweep and exits
func retentionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retention",
		Short: "Run one retention sweep",
		Long: `Run a single retention sweep over all retention-enabled users and
exit. The worker runs the same sweep on a schedule; this command exists
for backfills and for verifying retention settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			store, err := storage.NewStore(cfg.Storage.ScreenshotsDir)
			if err != nil {
				return fmt.Errorf("failed to open screenshot store: %w", err)
			}

			retention := usecases.NewRunRetention(
				postgres.NewUserSettingsRepository(pool),
				postgres.NewPageRepository(pool),
				postgres.NewScreenshotRepository(pool),
				store,
			)

			report, err := retention.Execute(ctx)
			if err != nil {
				return err
			}

			fmt.Println("Retention sweep finished:")
			fmt.Printf("  Users processed:     %d\n", report.UsersProcessed)
			fmt.Printf("  Pages processed:     %d\n", report.PagesProcessed)
			fmt.Printf("  Screenshots deleted: %d\n", report.ScreenshotsDeleted)
			fmt.Printf("  Errors:              %d\n", report.Errors)

			if report.Errors > 0 {
				return fmt.Errorf("retention sweep finished with %d errors", report.Errors)
			}
			return nil
		},
	}
}
