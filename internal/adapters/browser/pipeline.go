package browser

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/snapwatch/worker/internal/adapters/metrics"
	"github.com/snapwatch/worker/internal/application/actions"
	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/snapwatch/worker/internal/ports"
)

const (
	autoscrollStepPx     = 400
	autoscrollIntervalMs = 100
	autoscrollCeiling    = 30 * time.Second

	// adhocNavigationTimeout bounds navigation for script trials and
	// HTML rendering, which run inside interactive HTTP requests.
	adhocNavigationTimeout = 30 * time.Second

	instructionPause = 500 * time.Millisecond
	postScrollSettle = 2 * time.Second
	resizeSettle     = 500 * time.Millisecond
)

// autoscrollJS walks the page down in fixed increments so lazy-loaded
// content renders before measurement. Resolves when the bottom is
// reached or the ceiling expires.
const autoscrollJS = `(step, interval, ceiling) => new Promise((resolve) => {
	const started = Date.now();
	const timer = setInterval(() => {
		window.scrollBy(0, step);
		const position = window.scrollY + window.innerHeight;
		if (position >= document.body.scrollHeight || Date.now() - started >= ceiling) {
			clearInterval(timer);
			resolve(position >= document.body.scrollHeight);
		}
	}, interval);
})`

// measureJS reports the full document extent. Both body and
// documentElement are consulted since layouts disagree on which one
// carries the scroll size.
const measureJS = `() => {
	const b = document.body;
	const d = document.documentElement;
	return {
		width: Math.max(b.scrollWidth, b.clientWidth, b.offsetWidth,
			d.scrollWidth, d.clientWidth, d.offsetWidth),
		height: Math.max(b.scrollHeight, b.clientHeight, b.offsetHeight,
			d.scrollHeight, d.clientHeight, d.offsetHeight),
	};
}`

// Engine implements ports.CaptureEngine on a browser pool: the full
// per-viewport pipeline, ad-hoc script trials and HTML rendering.
type Engine struct {
	pool    *Pool
	storage ports.ScreenshotStorage
	ids     ports.IDGenerator

	navTimeout   time.Duration
	adhocTimeout time.Duration
	named        map[string]models.Viewport
}

func NewEngine(pool *Pool, storage ports.ScreenshotStorage, ids ports.IDGenerator) *Engine {
	named := make(map[string]models.Viewport, len(models.NamedViewports))
	for tag, vp := range models.NamedViewports {
		named[tag] = vp
	}
	return &Engine{
		pool:         pool,
		storage:      storage,
		ids:          ids,
		navTimeout:   DefaultNavigationTimeout,
		adhocTimeout: adhocNavigationTimeout,
		named:        named,
	}
}

// WithTimeouts overrides the capture navigation and ad-hoc timeouts.
// Zero or negative values keep the defaults.
func (e *Engine) WithTimeouts(navigation, adhoc time.Duration) *Engine {
	if navigation > 0 {
		e.navTimeout = navigation
	}
	if adhoc > 0 {
		e.adhocTimeout = adhoc
	}
	return e
}

// WithNamedWidths overrides the widths the mobile, tablet and desktop
// tags resolve to in ad-hoc runs. Heights stay at the tag standard;
// out-of-range widths keep the defaults.
func (e *Engine) WithNamedWidths(mobile, tablet, desktop int) *Engine {
	for tag, width := range map[string]int{
		models.ViewportTagMobile:  mobile,
		models.ViewportTagTablet:  tablet,
		models.ViewportTagDesktop: desktop,
	} {
		if models.IsValidViewportWidth(width) {
			vp := e.named[tag]
			vp.Width = width
			e.named[tag] = vp
		}
	}
	return e
}

// namedViewport resolves a viewport tag, defaulting to desktop for
// unknown tags.
func (e *Engine) namedViewport(tag string) models.Viewport {
	if vp, ok := e.named[tag]; ok {
		return vp
	}
	return e.named[models.ViewportTagDesktop]
}

// CapturePage processes the request's viewports in descending width
// order. A failed viewport is logged and skipped; the capture as a
// whole fails only when no viewport produced a screenshot.
func (e *Engine) CapturePage(ctx context.Context, req *ports.CaptureRequest) (*ports.CaptureResult, error) {
	widths := req.Viewports
	if len(widths) == 0 {
		widths = models.DefaultViewportWidths
	}
	widths = models.SortWidthsDescending(widths)

	handle, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer e.pool.Release(handle)

	start := time.Now()
	defer func() {
		metrics.CaptureDuration.Observe(time.Since(start).Seconds())
	}()

	result := &ports.CaptureResult{}
	total := len(widths)
	for i, width := range widths {
		tag := models.ViewportTagForWidth(width)
		if req.OnProgress != nil {
			req.OnProgress(tag, i, total)
		}

		captured, instructionResults, err := e.captureViewport(ctx, handle.Browser, req, width)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("Viewport %s (%dpx) failed for page %s: %v", tag, width, req.Page.ID, err)
			result.FailedViewports++
			metrics.ViewportCaptures.WithLabelValues(tag, "error").Inc()
			continue
		}
		if i == 0 {
			result.InstructionResults = instructionResults
		}
		result.Viewports = append(result.Viewports, captured)
		metrics.ViewportCaptures.WithLabelValues(tag, "ok").Inc()
	}

	if len(result.Viewports) == 0 {
		return nil, fmt.Errorf("all %d viewports failed for page %s", total, req.Page.ID)
	}
	return result, nil
}

// captureViewport runs one width through the pipeline: prepare,
// instructions, autoscroll, measure, resize, screenshot, store, then
// collected browser errors and applicable tests.
func (e *Engine) captureViewport(ctx context.Context, browser *rod.Browser, req *ports.CaptureRequest, width int) (*ports.CapturedViewport, []models.InstructionResult, error) {
	vp := models.ViewportForWidth(width)
	tag := vp.Tag

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	// events are collected from before navigation so early failures count
	collector := newEventCollector()
	collector.attach(page)

	if err := preparePage(ctx, page, req.Page.URL, vp, e.navTimeout); err != nil {
		return nil, nil, err
	}

	instructionResults := e.runInstructions(ctx, page, req.Instructions)

	if err := e.settleFullHeight(ctx, page); err != nil {
		return nil, nil, err
	}

	pageWidth, pageHeight, err := measurePage(page)
	if err != nil {
		return nil, nil, err
	}
	if err := setViewport(page, min(pageWidth, width), pageHeight); err != nil {
		return nil, nil, err
	}
	if err := sleep(ctx, resizeSettle); err != nil {
		return nil, nil, err
	}

	png, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("screenshot failed: %w", err)
	}
	if len(png) == 0 {
		return nil, nil, domain.ErrEmptyScreenshot
	}

	stored, err := e.storage.Write(req.Page.ID, time.Now().UTC(), tag, png)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to store screenshot: %w", err)
	}

	shot := models.NewScreenshot(e.ids.GenerateScreenshotID(), req.Page.ID, width)
	shot.ImagePath = stored.ImagePath
	shot.ThumbnailPath = stored.ThumbnailPath
	shot.FileSize = stored.FileSize
	shot.ImageWidth = stored.Width
	shot.ImageHeight = stored.Height

	captured := &ports.CapturedViewport{
		Screenshot:  shot,
		Errors:      collector.collected(e.ids, shot.ID),
		TestResults: e.runTests(ctx, page, req.Tests, tag, shot.ID),
	}
	return captured, instructionResults, nil
}

// runInstructions executes every runnable instruction in order with a
// settling pause after each. Failures are recorded, never propagated.
func (e *Engine) runInstructions(ctx context.Context, page *rod.Page, list []*models.Instruction) []models.InstructionResult {
	var out []models.InstructionResult
	for _, inst := range list {
		if !inst.IsRunnable() {
			continue
		}
		res := models.InstructionResult{InstructionID: inst.ID, Name: inst.Name, Success: true}
		if err := runScript(ctx, page, inst.Script, inst.ScriptType); err != nil {
			res.Success = false
			res.Error = err.Error()
		}
		out = append(out, res)
		if err := sleep(ctx, instructionPause); err != nil {
			return out
		}
	}
	return out
}

// runTests executes the tests applicable to the viewport tag and builds
// result rows bound to the screenshot.
func (e *Engine) runTests(ctx context.Context, page *rod.Page, tests []*models.Test, tag, screenshotID string) []*models.TestResult {
	var out []*models.TestResult
	for _, test := range tests {
		if !test.IsRunnable() || !test.AppliesTo(tag) {
			continue
		}
		start := time.Now()
		passed, message := runTestScript(ctx, page, test.Script, test.ScriptType)
		out = append(out, models.NewTestResult(
			e.ids.GenerateTestResultID(), test.ID, screenshotID, passed, message, time.Since(start)))
	}
	return out
}

// settleFullHeight autoscrolls to the bottom, lets late content settle,
// then returns to the top for a clean full-page capture.
func (e *Engine) settleFullHeight(ctx context.Context, page *rod.Page) error {
	scroll := page.Context(ctx).Timeout(autoscrollCeiling + 5*time.Second)
	if _, err := scroll.Eval(autoscrollJS, autoscrollStepPx, autoscrollIntervalMs, autoscrollCeiling.Milliseconds()); err != nil {
		return fmt.Errorf("autoscroll failed: %w", err)
	}
	if err := sleep(ctx, postScrollSettle); err != nil {
		return err
	}
	if _, err := page.Eval(`() => window.scrollTo(0, 0)`); err != nil {
		return fmt.Errorf("scroll to top failed: %w", err)
	}
	return sleep(ctx, resizeSettle)
}

// measurePage reports the document extent in CSS pixels.
func measurePage(page *rod.Page) (width, height int, err error) {
	res, err := page.Eval(measureJS)
	if err != nil {
		return 0, 0, fmt.Errorf("page measurement failed: %w", err)
	}
	return res.Value.Get("width").Int(), res.Value.Get("height").Int(), nil
}

// runScript executes an instruction-style script of either type; for
// action scripts parse errors surface as execution failures.
func runScript(ctx context.Context, page *rod.Page, script string, scriptType models.ScriptType) error {
	if scriptType == models.ScriptTypeActions {
		seq, err := actions.Parse(script)
		if err != nil {
			return err
		}
		return executeActions(ctx, page, seq)
	}
	_, err := evalUserScript(page, script, DefaultScriptTimeout)
	return err
}

// runTestScript executes a test script of either type and reports the
// pass/fail outcome with a message.
func runTestScript(ctx context.Context, page *rod.Page, script string, scriptType models.ScriptType) (bool, string) {
	if scriptType == models.ScriptTypeActions {
		seq, err := actions.Parse(script)
		if err != nil {
			return false, err.Error()
		}
		return runActionTest(ctx, page, seq)
	}
	return evalTestScript(page, script, DefaultScriptTimeout)
}

// TryScript prepares the page URL at the named viewport and executes
// the script once, with the shorter ad-hoc navigation timeout.
func (e *Engine) TryScript(ctx context.Context, pageURL, viewportTag, script string, scriptType models.ScriptType, asTest bool) (*ports.ScriptTrial, error) {
	handle, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer e.pool.Release(handle)

	page, err := handle.Browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if err := preparePage(ctx, page, pageURL, e.namedViewport(viewportTag), e.adhocTimeout); err != nil {
		return nil, err
	}

	if asTest {
		passed, message := runTestScript(ctx, page, script, scriptType)
		return &ports.ScriptTrial{OK: passed, Message: message}, nil
	}
	if err := runScript(ctx, page, script, scriptType); err != nil {
		return &ports.ScriptTrial{OK: false, Message: err.Error()}, nil
	}
	return &ports.ScriptTrial{OK: true}, nil
}

// RenderHTML navigates to the URL with consent handling and returns the
// rendered document markup.
func (e *Engine) RenderHTML(ctx context.Context, url string) (string, error) {
	handle, err := e.pool.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer e.pool.Release(handle)

	page, err := handle.Browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if err := preparePage(ctx, page, url, e.namedViewport(models.ViewportTagDesktop), e.adhocTimeout); err != nil {
		return "", err
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}
	return html, nil
}

// PoolStats snapshots the underlying browser pool.
func (e *Engine) PoolStats() ports.PoolStats {
	return e.pool.Stats()
}
