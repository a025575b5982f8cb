package main

import (
	"fmt"
	"os"

	"github.com/snapwatch/worker/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "snapwatch",
		Short: "Snapwatch - screenshot monitoring worker",
		Long: `Snapwatch periodically captures screenshots of monitored web pages
across multiple viewports, runs page tests, and serves browser-backed
endpoints for the page editor.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// version and validate run without a resolved configuration
			switch cmd.Name() {
			case "version", "validate":
				return nil
			}

			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		captureCmd(),
		retentionCmd(),
		validateCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows current configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Current configuration:")
			fmt.Println()

			fmt.Println("Server:")
			fmt.Printf("  Host: %s\n", cfg.Server.Host)
			fmt.Printf("  Port: %d\n", cfg.Server.Port)
			fmt.Println()

			fmt.Println("Database:")
			fmt.Printf("  PostgreSQL: %s\n", maskSecret(cfg.Database.PostgresURL))
			fmt.Println()

			fmt.Println("Browser pool:")
			fmt.Printf("  Pool Size:          %d\n", cfg.Browser.PoolSize)
			fmt.Printf("  Binary:             %s\n", orDefault(cfg.Browser.BinPath, "(bundled)"))
			fmt.Printf("  No Sandbox:         %t\n", cfg.Browser.NoSandbox)
			fmt.Printf("  Navigation Timeout: %s\n", cfg.Browser.NavigationTimeout())
			fmt.Printf("  Ad-hoc Timeout:     %s\n", cfg.Browser.AdHocTimeout())
			fmt.Printf("  Acquire Timeout:    %s\n", cfg.Browser.AcquireTimeout())
			fmt.Println()

			fmt.Println("Storage:")
			fmt.Printf("  Screenshots Dir: %s\n", cfg.Storage.ScreenshotsDir)
			fmt.Println()

			fmt.Println("Scheduler:")
			fmt.Printf("  Poll Interval:    %s\n", cfg.Scheduler.PollInterval())
			fmt.Printf("  Cleanup Interval: %s\n", cfg.Scheduler.CleanupInterval())
			fmt.Printf("  Base Retry Delay: %s\n", cfg.Scheduler.BaseRetryDelay())
			fmt.Printf("  Max Failures:     %d\n", cfg.Scheduler.MaxConsecutiveFailures)
			fmt.Printf("  Stale Timeout:    %s\n", cfg.Scheduler.StaleJobTimeout())
			fmt.Println()

			fmt.Println("Capture defaults:")
			fmt.Printf("  Interval:     %d minutes\n", cfg.Capture.DefaultIntervalMinutes)
			fmt.Printf("  Viewports:    %v\n", cfg.Capture.DefaultViewports)
			fmt.Printf("  Named widths: mobile %d, tablet %d, desktop %d\n",
				cfg.Capture.MobileWidth, cfg.Capture.TabletWidth, cfg.Capture.DesktopWidth)
			fmt.Println()

			fmt.Println("Script generation:")
			fmt.Printf("  URL:     %s\n", orDefault(cfg.Generation.URL, "(not set)"))
			fmt.Printf("  API Key: %s\n", maskSecret(cfg.Generation.APIKey))
			fmt.Printf("  Timeout: %s\n", cfg.Generation.Timeout())
			fmt.Printf("  Status:  %s\n", boolStatus(cfg.IsGenerationConfigured()))
			fmt.Println()

			fmt.Println("Page discovery:")
			fmt.Printf("  URL:       %s\n", orDefault(cfg.Discovery.URL, "(local crawl)"))
			fmt.Printf("  Max Pages: %d (cap %d)\n", cfg.Discovery.DefaultMaxPages, cfg.Discovery.MaxPagesCap)
			fmt.Println()

			fmt.Println("Environment variables:")
			fmt.Println("  SNAPWATCH_POSTGRES_URL, SNAPWATCH_SERVER_HOST, SNAPWATCH_SERVER_PORT")
			fmt.Println("  SNAPWATCH_POOL_SIZE, SNAPWATCH_BROWSER_BIN, SNAPWATCH_BROWSER_NO_SANDBOX")
			fmt.Println("  SNAPWATCH_SCREENSHOTS_DIR, SNAPWATCH_POLL_INTERVAL_SECS, SNAPWATCH_CLEANUP_INTERVAL_HOURS")
			fmt.Println("  SNAPWATCH_GENERATION_URL, SNAPWATCH_GENERATION_API_KEY, SNAPWATCH_DISCOVERY_URL")

			return nil
		},
	}
}

// versionCmd shows version information
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Snapwatch %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)
		},
	}
}
