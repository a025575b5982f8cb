package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/snapwatch/worker/internal/domain/models"
)

// Config holds all configuration for the snapwatch worker
type Config struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Browser    BrowserConfig    `json:"browser"`
	Storage    StorageConfig    `json:"storage"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	Capture    CaptureConfig    `json:"capture"`
	Generation GenerationConfig `json:"generation"`
	Discovery  DiscoveryConfig  `json:"discovery"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	PostgresURL string `json:"postgres_url"`
}

// ServerConfig holds the worker HTTP server configuration
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// BrowserConfig holds browser pool configuration
type BrowserConfig struct {
	PoolSize              int    `json:"pool_size"`               // number of browsers launched at startup
	BinPath               string `json:"bin_path"`                // optional path to a Chromium binary
	NoSandbox             bool   `json:"no_sandbox"`              // required when the worker runs as root in a container
	NavigationTimeoutSecs int    `json:"navigation_timeout_secs"` // navigation and default timeout during capture
	AdHocTimeoutSecs      int    `json:"adhoc_timeout_secs"`      // timeout for ad-hoc script runs and generation
	AcquireTimeoutSecs    int    `json:"acquire_timeout_secs"`    // how long a waiter blocks on the pool
}

// StorageConfig holds screenshot storage configuration
type StorageConfig struct {
	ScreenshotsDir string `json:"screenshots_dir"`
}

// SchedulerConfig holds capture scheduling configuration
type SchedulerConfig struct {
	PollIntervalSecs       int `json:"poll_interval_secs"`
	CleanupIntervalHours   int `json:"cleanup_interval_hours"`
	BaseRetryDelayMins     int `json:"base_retry_delay_mins"`
	MaxConsecutiveFailures int `json:"max_consecutive_failures"`
	StaleJobTimeoutMins    int `json:"stale_job_timeout_mins"`
}

// CaptureConfig holds capture defaults for pages without overrides
type CaptureConfig struct {
	DefaultIntervalMinutes int   `json:"default_interval_minutes"`
	DefaultViewports       []int `json:"default_viewports"`

	// Widths the named viewport tags resolve to in ad-hoc runs
	MobileWidth  int `json:"mobile_width"`
	TabletWidth  int `json:"tablet_width"`
	DesktopWidth int `json:"desktop_width"`
}

// GenerationConfig holds the external LLM script-generation service
type GenerationConfig struct {
	URL         string `json:"url"`
	APIKey      string `json:"api_key"`
	TimeoutSecs int    `json:"timeout_secs"`
}

// DiscoveryConfig holds page-discovery configuration
type DiscoveryConfig struct {
	URL             string `json:"url"`               // external discovery collaborator; empty means local crawl
	DefaultMaxPages int    `json:"default_max_pages"` // pages returned when the caller does not ask for a count
	MaxPagesCap     int    `json:"max_pages_cap"`     // upper bound on caller-requested counts
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".snapwatch")

	return &Config{
		Database: DatabaseConfig{
			PostgresURL: "",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Browser: BrowserConfig{
			PoolSize:              4,
			BinPath:               "",
			NavigationTimeoutSecs: 60,
			AdHocTimeoutSecs:      30,
			AcquireTimeoutSecs:    300,
		},
		Storage: StorageConfig{
			ScreenshotsDir: filepath.Join(dataDir, "screenshots"),
		},
		Scheduler: SchedulerConfig{
			PollIntervalSecs:       10,
			CleanupIntervalHours:   6,
			BaseRetryDelayMins:     5,
			MaxConsecutiveFailures: 5,
			StaleJobTimeoutMins:    10,
		},
		Capture: CaptureConfig{
			DefaultIntervalMinutes: models.DefaultScreenshotIntervalMinutes,
			DefaultViewports:       append([]int(nil), models.DefaultViewportWidths...),
			MobileWidth:            models.NamedViewports[models.ViewportTagMobile].Width,
			TabletWidth:            models.NamedViewports[models.ViewportTagTablet].Width,
			DesktopWidth:           models.NamedViewports[models.ViewportTagDesktop].Width,
		},
		Generation: GenerationConfig{
			URL:         "",
			APIKey:      "",
			TimeoutSecs: 120,
		},
		Discovery: DiscoveryConfig{
			URL:             "",
			DefaultMaxPages: 10,
			MaxPagesCap:     50,
		},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envBool loads a boolean environment variable into the target pointer if set and valid
func envBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

// envIntSlice loads a comma-separated environment variable into an int slice
func envIntSlice(key string, target *[]int) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]int, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if i, err := strconv.Atoi(trimmed); err == nil {
				result = append(result, i)
			}
		}
		if len(result) > 0 {
			*target = result
		}
	}
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", configPath, err)
		}
	}

	// Database
	envString("SNAPWATCH_POSTGRES_URL", &cfg.Database.PostgresURL)

	// Server
	envString("SNAPWATCH_SERVER_HOST", &cfg.Server.Host)
	envInt("SNAPWATCH_SERVER_PORT", &cfg.Server.Port)

	// Browser pool
	envInt("SNAPWATCH_POOL_SIZE", &cfg.Browser.PoolSize)
	envString("SNAPWATCH_BROWSER_BIN", &cfg.Browser.BinPath)
	envBool("SNAPWATCH_BROWSER_NO_SANDBOX", &cfg.Browser.NoSandbox)
	envInt("SNAPWATCH_NAVIGATION_TIMEOUT_SECS", &cfg.Browser.NavigationTimeoutSecs)
	envInt("SNAPWATCH_ADHOC_TIMEOUT_SECS", &cfg.Browser.AdHocTimeoutSecs)
	envInt("SNAPWATCH_ACQUIRE_TIMEOUT_SECS", &cfg.Browser.AcquireTimeoutSecs)

	// Storage
	envString("SNAPWATCH_SCREENSHOTS_DIR", &cfg.Storage.ScreenshotsDir)

	// Scheduler
	envInt("SNAPWATCH_POLL_INTERVAL_SECS", &cfg.Scheduler.PollIntervalSecs)
	envInt("SNAPWATCH_CLEANUP_INTERVAL_HOURS", &cfg.Scheduler.CleanupIntervalHours)
	envInt("SNAPWATCH_BASE_RETRY_DELAY_MINS", &cfg.Scheduler.BaseRetryDelayMins)
	envInt("SNAPWATCH_MAX_CONSECUTIVE_FAILURES", &cfg.Scheduler.MaxConsecutiveFailures)
	envInt("SNAPWATCH_STALE_JOB_TIMEOUT_MINS", &cfg.Scheduler.StaleJobTimeoutMins)

	// Capture defaults
	envInt("SNAPWATCH_DEFAULT_INTERVAL_MINUTES", &cfg.Capture.DefaultIntervalMinutes)
	envIntSlice("SNAPWATCH_DEFAULT_VIEWPORTS", &cfg.Capture.DefaultViewports)
	envInt("SNAPWATCH_MOBILE_WIDTH", &cfg.Capture.MobileWidth)
	envInt("SNAPWATCH_TABLET_WIDTH", &cfg.Capture.TabletWidth)
	envInt("SNAPWATCH_DESKTOP_WIDTH", &cfg.Capture.DesktopWidth)

	// Script generation
	envString("SNAPWATCH_GENERATION_URL", &cfg.Generation.URL)
	envString("SNAPWATCH_GENERATION_API_KEY", &cfg.Generation.APIKey)
	envInt("SNAPWATCH_GENERATION_TIMEOUT_SECS", &cfg.Generation.TimeoutSecs)

	// Discovery
	envString("SNAPWATCH_DISCOVERY_URL", &cfg.Discovery.URL)
	envInt("SNAPWATCH_DISCOVERY_MAX_PAGES", &cfg.Discovery.DefaultMaxPages)

	if err := os.MkdirAll(cfg.Storage.ScreenshotsDir, 0755); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Duration accessors

func (c BrowserConfig) NavigationTimeout() time.Duration {
	return time.Duration(c.NavigationTimeoutSecs) * time.Second
}

func (c BrowserConfig) AdHocTimeout() time.Duration {
	return time.Duration(c.AdHocTimeoutSecs) * time.Second
}

func (c BrowserConfig) AcquireTimeout() time.Duration {
	return time.Duration(c.AcquireTimeoutSecs) * time.Second
}

func (c SchedulerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

func (c SchedulerConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalHours) * time.Hour
}

func (c SchedulerConfig) BaseRetryDelay() time.Duration {
	return time.Duration(c.BaseRetryDelayMins) * time.Minute
}

func (c SchedulerConfig) StaleJobTimeout() time.Duration {
	return time.Duration(c.StaleJobTimeoutMins) * time.Minute
}

func (c GenerationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// IsGenerationConfigured returns true if the script-generation service is configured
func (c *Config) IsGenerationConfigured() bool {
	return c.Generation.URL != ""
}

// IsDiscoveryConfigured returns true if an external discovery service is configured
func (c *Config) IsDiscoveryConfigured() bool {
	return c.Discovery.URL != ""
}

// isValidURL validates that a URL has proper format
func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	// Database validation
	if c.Database.PostgresURL == "" {
		errs = append(errs, "PostgreSQL URL is required")
	} else if !isValidURL(c.Database.PostgresURL) {
		errs = append(errs, "PostgreSQL URL must be a valid URL")
	}

	// Browser validation
	if c.Browser.PoolSize < 1 {
		errs = append(errs, "browser pool size must be at least 1")
	}
	if c.Browser.NavigationTimeoutSecs < 1 {
		errs = append(errs, "navigation timeout must be at least 1 second")
	}
	if c.Browser.AdHocTimeoutSecs < 1 {
		errs = append(errs, "ad-hoc timeout must be at least 1 second")
	}
	if c.Browser.AcquireTimeoutSecs < 1 {
		errs = append(errs, "acquire timeout must be at least 1 second")
	}

	// Storage validation
	if c.Storage.ScreenshotsDir == "" {
		errs = append(errs, "screenshots directory is required")
	}

	// Scheduler validation
	if c.Scheduler.PollIntervalSecs < 1 {
		errs = append(errs, "poll interval must be at least 1 second")
	}
	if c.Scheduler.CleanupIntervalHours < 1 {
		errs = append(errs, "cleanup interval must be at least 1 hour")
	}
	if c.Scheduler.BaseRetryDelayMins < 1 {
		errs = append(errs, "base retry delay must be at least 1 minute")
	}
	if c.Scheduler.MaxConsecutiveFailures < 1 {
		errs = append(errs, "max consecutive failures must be at least 1")
	}
	if c.Scheduler.StaleJobTimeoutMins < 1 {
		errs = append(errs, "stale job timeout must be at least 1 minute")
	}

	// Capture validation
	if c.Capture.DefaultIntervalMinutes < models.MinScreenshotIntervalMinutes {
		errs = append(errs, fmt.Sprintf("default interval must be at least %d minutes", models.MinScreenshotIntervalMinutes))
	}
	if len(c.Capture.DefaultViewports) == 0 {
		errs = append(errs, "at least one default viewport width is required")
	}
	for _, w := range c.Capture.DefaultViewports {
		if !models.IsValidViewportWidth(w) {
			errs = append(errs, fmt.Sprintf("viewport width %d out of range %d-%d", w, models.MinViewportWidth, models.MaxViewportWidth))
		}
	}
	named := map[string]int{
		"mobile":  c.Capture.MobileWidth,
		"tablet":  c.Capture.TabletWidth,
		"desktop": c.Capture.DesktopWidth,
	}
	for tag, w := range named {
		if !models.IsValidViewportWidth(w) {
			errs = append(errs, fmt.Sprintf("%s width %d out of range %d-%d", tag, w, models.MinViewportWidth, models.MaxViewportWidth))
		}
	}

	// Generation validation (optional but validate if set)
	if c.Generation.URL != "" && !isValidURL(c.Generation.URL) {
		errs = append(errs, "generation URL must be a valid URL")
	}
	if c.Generation.TimeoutSecs < 1 {
		errs = append(errs, "generation timeout must be at least 1 second")
	}

	// Discovery validation
	if c.Discovery.URL != "" && !isValidURL(c.Discovery.URL) {
		errs = append(errs, "discovery URL must be a valid URL")
	}
	if c.Discovery.DefaultMaxPages < 1 {
		errs = append(errs, "discovery default max pages must be at least 1")
	}
	if c.Discovery.MaxPagesCap < c.Discovery.DefaultMaxPages {
		errs = append(errs, "discovery max pages cap must be at least the default")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	if path := os.Getenv("SNAPWATCH_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}

	// Check ~/.config/snapwatch/config.json first
	configDir := filepath.Join(homeDir, ".config", "snapwatch")
	configPath := filepath.Join(configDir, "config.json")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}

	// Check ~/.snapwatch/config.json
	altPath := filepath.Join(homeDir, ".snapwatch", "config.json")
	if _, err := os.Stat(altPath); err == nil {
		return altPath
	}

	return configPath
}
