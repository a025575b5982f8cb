package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snapwatch/worker/internal/adapters/browser"
	"github.com/snapwatch/worker/internal/adapters/discovery"
	"github.com/snapwatch/worker/internal/adapters/generation"
	"github.com/snapwatch/worker/internal/adapters/http"
	"github.com/snapwatch/worker/internal/adapters/id"
	"github.com/snapwatch/worker/internal/adapters/imagediff"
	"github.com/snapwatch/worker/internal/adapters/postgres"
	"github.com/snapwatch/worker/internal/adapters/storage"
	"github.com/snapwatch/worker/internal/adapters/tracing"
	"github.com/snapwatch/worker/internal/application/services"
	"github.com/snapwatch/worker/internal/application/usecases"
	"github.com/snapwatch/worker/internal/ports"
	"github.com/spf13/cobra"
)

// serveCmd starts the capture worker
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the capture worker",
		Long: `Start the Snapwatch capture worker.

The worker polls for pages due a screenshot, drives a pool of headless
browsers to capture them, runs the retention sweep, and serves HTTP
endpoints for health, metrics and the page editor.

Required configuration:
  - PostgreSQL database (SNAPWATCH_POSTGRES_URL)

Optional:
  - Script generation service (SNAPWATCH_GENERATION_URL, SNAPWATCH_GENERATION_API_KEY)
  - Remote page discovery (SNAPWATCH_DISCOVERY_URL)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context())
		},
	}
}

// runWorker initializes and starts the scheduler and the HTTP server
func runWorker(ctx context.Context) error {
	log.Println("Starting Snapwatch worker...")
	log.Printf("  HTTP:        http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("  Screenshots: %s", cfg.Storage.ScreenshotsDir)
	log.Printf("  Browsers:    %d", cfg.Browser.PoolSize)

	if cfg.IsGenerationConfigured() {
		log.Printf("  Generation:  %s", cfg.Generation.URL)
	}
	if cfg.IsDiscoveryConfigured() {
		log.Printf("  Discovery:   %s", cfg.Discovery.URL)
	}
	log.Println()

	// Initialize OpenTelemetry tracing
	shutdown, err := tracing.InitTracer("snapwatch-worker")
	if err != nil {
		log.Printf("Warning: Failed to initialize tracing: %v", err)
	} else {
		defer func() {
			if err := shutdown(ctx); err != nil {
				log.Printf("Error shutting down tracer: %v", err)
			}
		}()
	}

	// Initialize database connection pool
	log.Println("Connecting to PostgreSQL...")
	pool, err := initDB(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Println("Database connection established")

	// Initialize repositories
	pageRepo := postgres.NewPageRepository(pool).
		WithCaptureDefaults(cfg.Capture.DefaultIntervalMinutes, cfg.Capture.DefaultViewports)
	screenshotRepo := postgres.NewScreenshotRepository(pool)
	shotErrorRepo := postgres.NewScreenshotErrorRepository(pool)
	instructionRepo := postgres.NewInstructionRepository(pool)
	testRepo := postgres.NewTestRepository(pool)
	testResultRepo := postgres.NewTestResultRepository(pool)
	jobRepo := postgres.NewCaptureJobRepository(pool)
	settingsRepo := postgres.NewUserSettingsRepository(pool)

	// Initialize ID generator
	idGen := id.New()

	// Initialize screenshot store
	store, err := storage.NewStore(cfg.Storage.ScreenshotsDir)
	if err != nil {
		return fmt.Errorf("failed to open screenshot store: %w", err)
	}

	// Initialize browser pool and capture engine
	browserPool, err := browser.NewPool(browser.PoolConfig{
		Size:           cfg.Browser.PoolSize,
		BinPath:        cfg.Browser.BinPath,
		NoSandbox:      cfg.Browser.NoSandbox,
		AcquireTimeout: cfg.Browser.AcquireTimeout(),
	})
	if err != nil {
		return fmt.Errorf("failed to start browser pool: %w", err)
	}
	defer func() {
		if err := browserPool.Close(); err != nil {
			log.Printf("Error closing browser pool: %v", err)
		}
	}()

	engine := browser.NewEngine(browserPool, store, idGen).
		WithTimeouts(cfg.Browser.NavigationTimeout(), cfg.Browser.AdHocTimeout()).
		WithNamedWidths(cfg.Capture.MobileWidth, cfg.Capture.TabletWidth, cfg.Capture.DesktopWidth)

	// Initialize script generation client (optional)
	var generator ports.ScriptGenerator
	if cfg.IsGenerationConfigured() {
		generator = generation.NewClient(cfg.Generation.URL, cfg.Generation.APIKey, cfg.Generation.Timeout())
		log.Println("Script generation client initialized")
	} else {
		log.Println("Script generation not configured - generation endpoints unavailable")
	}

	// Initialize page discovery: remote service when configured, local
	// crawl as fallback
	var remoteDiscoverer ports.PageDiscoverer
	if cfg.IsDiscoveryConfigured() {
		remoteDiscoverer = discovery.NewClient(cfg.Discovery.URL, "")
		log.Println("Remote discovery client initialized")
	}
	localDiscoverer := browser.NewDiscoverer(engine)

	// Initialize use cases
	capturePage := usecases.NewCapturePage(
		jobRepo,
		pageRepo,
		screenshotRepo,
		shotErrorRepo,
		instructionRepo,
		testRepo,
		testResultRepo,
		engine,
		idGen,
		postgres.NewTransactionManager(pool),
	)
	runRetention := usecases.NewRunRetention(settingsRepo, pageRepo, screenshotRepo, store)
	generateScript := usecases.NewGenerateScript(generator, engine)
	testScript := usecases.NewTestScript(engine)
	discoverPages := usecases.NewDiscoverPages(remoteDiscoverer, localDiscoverer)
	compareScreenshots := usecases.NewCompareScreenshots(screenshotRepo, store, imagediff.New())

	// Start the capture scheduler
	scheduler := services.NewScheduler(pageRepo, jobRepo, capturePage, runRetention, services.SchedulerOptions{
		PollInterval:    cfg.Scheduler.PollInterval(),
		CleanupInterval: cfg.Scheduler.CleanupInterval(),
		BaseRetryDelay:  cfg.Scheduler.BaseRetryDelay(),
		MaxFailures:     cfg.Scheduler.MaxConsecutiveFailures,
		StaleTimeout:    cfg.Scheduler.StaleJobTimeout(),
	})
	scheduler.Start(ctx)

	// Create HTTP server
	server := http.NewServer(cfg, engine, generateScript, testScript, discoverPages, compareScreenshots)

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		serverErrors <- server.Start()
	}()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for interrupt signal or server error
	select {
	case err := <-serverErrors:
		scheduler.Stop()
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		log.Println("Shutting down gracefully...")

		// Let in-flight captures finish before the browsers go away.
		scheduler.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		log.Println("Worker stopped")
		return nil
	}
}
