package ports

import (
	"context"
	"time"

	"github.com/snapwatch/worker/internal/domain/models"
)

// PoolStats is a point-in-time snapshot of the browser pool
type PoolStats struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	InUse     int `json:"in_use"`
	Waiting   int `json:"waiting"`
}

// ProgressFunc is invoked before each viewport capture with the tag
// about to be processed and the completed/total counters.
type ProgressFunc func(viewportTag string, completed, total int)

// CaptureRequest describes one full capture of a page across viewports
type CaptureRequest struct {
	Page         *models.Page
	Viewports    []int
	Instructions []*models.Instruction
	Tests        []*models.Test
	OnProgress   ProgressFunc
}

// CapturedViewport is the outcome of one successful viewport capture
type CapturedViewport struct {
	Screenshot  *models.Screenshot
	Errors      []*models.ScreenshotError
	TestResults []*models.TestResult
}

// CaptureResult aggregates a capture across all viewports. Instruction
// results come from the first viewport processed only.
type CaptureResult struct {
	Viewports          []*CapturedViewport
	InstructionResults []models.InstructionResult
	FailedViewports    int
}

// ScriptTrial reports one ad-hoc script execution against a prepared page
type ScriptTrial struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// CaptureEngine drives a browser to produce screenshots and run scripts
type CaptureEngine interface {
	// CapturePage runs the full per-viewport pipeline for a page. The
	// returned error is non-nil only when every viewport failed.
	CapturePage(ctx context.Context, req *CaptureRequest) (*CaptureResult, error)
	// TryScript prepares the page URL at the named viewport and executes
	// the script once. With asTest the script must evaluate to a
	// {passed, message} result; otherwise success means no exception.
	TryScript(ctx context.Context, pageURL, viewportTag, script string, scriptType models.ScriptType, asTest bool) (*ScriptTrial, error)
	// RenderHTML navigates to the URL with consent handling and returns
	// the rendered document markup.
	RenderHTML(ctx context.Context, url string) (string, error)
	// PoolStats snapshots the underlying browser pool
	PoolStats() PoolStats
}

// StoredImage describes a screenshot written to storage, paths relative
// to the screenshots root.
type StoredImage struct {
	ImagePath     string
	ThumbnailPath string
	FileSize      int64
	Width         int
	Height        int
}

// ScreenshotStorage persists screenshot images and thumbnails
type ScreenshotStorage interface {
	// Write stores a PNG and its thumbnail under
	// {pageID}/{YYYY}/{MM}/{epochMs}_{tag}.png
	Write(pageID string, takenAt time.Time, viewportTag string, png []byte) (*StoredImage, error)
	Read(relPath string) ([]byte, error)
	// Remove deletes a stored file; missing files are not an error
	Remove(relPath string) error
}

// Script generation kinds understood by the external collaborator
const (
	GenerationKindScript       = "script"
	GenerationKindTest         = "test"
	GenerationKindActionScript = "action-script"
	GenerationKindActionTest   = "action-test"
)

// GenerateScriptRequest is the payload sent to the generation service
type GenerateScriptRequest struct {
	Kind      string `json:"-"`
	PageURL   string `json:"page_url"`
	Prompt    string `json:"prompt"`
	Viewport  string `json:"viewport,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// GeneratedScript is the generation service's answer
type GeneratedScript struct {
	Script      string            `json:"script"`
	ScriptType  models.ScriptType `json:"script_type"`
	Explanation string            `json:"explanation,omitempty"`
}

// ScriptGenerator calls the external LLM script-generation service.
// Its output is untrusted and must be validated before persistence.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, req *GenerateScriptRequest) (*GeneratedScript, error)
}

// DiscoveredPage is one crawl result
type DiscoveredPage struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// PageDiscoverer finds capture-worthy pages for a domain
type PageDiscoverer interface {
	// Discover returns up to maxPages pages plus the total found before
	// truncation
	Discover(ctx context.Context, domain string, maxPages int) ([]DiscoveredPage, int, error)
}

// DiffStats summarizes a pixel comparison of two screenshots
type DiffStats struct {
	DiffPixels     int     `json:"diff_pixels"`
	TotalPixels    int     `json:"total_pixels"`
	DiffPercentage float64 `json:"diff_percentage"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
}

// ImageDiffer compares two PNG buffers after reconciling dimensions
type ImageDiffer interface {
	// Compare returns stats and, when renderDiff is set, a PNG
	// highlighting changed pixels
	Compare(before, after []byte, renderDiff bool) (*DiffStats, []byte, error)
}
