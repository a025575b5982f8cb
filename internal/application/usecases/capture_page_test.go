package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/snapwatch/worker/internal/ports"
)

type capturePageFixture struct {
	uc           *CapturePage
	jobs         *mockJobRepo
	pages        *mockPageRepo
	screenshots  *mockScreenshotRepo
	shotErrors   *mockScreenshotErrorRepo
	instructions *mockInstructionRepo
	tests        *mockTestRepo
	testResults  *mockTestResultRepo
	engine       *mockEngine
}

func newCapturePageFixture() *capturePageFixture {
	f := &capturePageFixture{
		jobs:         newMockJobRepo(),
		pages:        newMockPageRepo(),
		screenshots:  newMockScreenshotRepo(),
		shotErrors:   newMockScreenshotErrorRepo(),
		instructions: newMockInstructionRepo(),
		tests:        newMockTestRepo(),
		testResults:  newMockTestResultRepo(),
		engine:       &mockEngine{},
	}
	f.uc = NewCapturePage(
		f.jobs, f.pages, f.screenshots, f.shotErrors,
		f.instructions, f.tests, f.testResults,
		f.engine, &mockIDGen{}, &mockTxManager{},
	)
	return f
}

func capturedViewport(shotID, pageID string, width int) *ports.CapturedViewport {
	shot := models.NewScreenshot(shotID, pageID, width)
	shot.ImagePath = pageID + "/" + shotID + ".png"
	shot.ThumbnailPath = pageID + "/" + shotID + "_thumb.png"
	return &ports.CapturedViewport{Screenshot: shot}
}

func TestCapturePageHappyPath(t *testing.T) {
	f := newCapturePageFixture()
	page := models.NewPage("page-1", "site-1", "https://example.com", "Home")

	first := capturedViewport("shot-a", "page-1", 1920)
	first.Errors = []*models.ScreenshotError{
		models.NewJSError("err-1", "shot-a", "TypeError: boom", "https://example.com/app.js:1"),
	}
	first.TestResults = []*models.TestResult{
		models.NewTestResult("res-1", "test-1", "shot-a", true, "ok", 12*time.Millisecond),
	}
	f.engine.result = &ports.CaptureResult{
		Viewports: []*ports.CapturedViewport{first, capturedViewport("shot-b", "page-1", 375)},
	}

	job, err := f.uc.Execute(context.Background(), page, []int{1920, 375})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if job.Status != models.CaptureJobStatusCompleted {
		t.Errorf("returned job status = %s, want completed", job.Status)
	}

	stored := f.jobs.jobByID(job.ID)
	if stored == nil || stored.Status != models.CaptureJobStatusCompleted {
		t.Fatalf("stored job = %+v, want completed", stored)
	}
	if stored.CurrentViewport != "" {
		t.Errorf("completed job still has current viewport %q", stored.CurrentViewport)
	}

	if count, _ := f.screenshots.CountByPageID(context.Background(), "page-1"); count != 2 {
		t.Errorf("persisted screenshots = %d, want 2", count)
	}
	if errs, _ := f.shotErrors.ListByScreenshotID(context.Background(), "shot-a"); len(errs) != 1 {
		t.Errorf("persisted screenshot errors = %d, want 1", len(errs))
	}
	if results, _ := f.testResults.ListByScreenshotID(context.Background(), "shot-a"); len(results) != 1 {
		t.Errorf("persisted test results = %d, want 1", len(results))
	}
	if _, ok := f.pages.stampedAt("page-1"); !ok {
		t.Error("page capture time was not stamped")
	}
}

func TestCapturePageReportsProgressPerViewport(t *testing.T) {
	f := newCapturePageFixture()
	page := models.NewPage("page-1", "site-1", "https://example.com", "Home")
	f.engine.result = &ports.CaptureResult{
		Viewports: []*ports.CapturedViewport{
			capturedViewport("shot-a", "page-1", 1920),
			capturedViewport("shot-b", "page-1", 375),
		},
	}

	if _, err := f.uc.Execute(context.Background(), page, []int{1920, 375}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	calls := f.jobs.progressCalls()
	want := []string{"desktop:0", "mobile:1"}
	if len(calls) != len(want) {
		t.Fatalf("progress calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("progress call %d = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestCapturePageClaimsPendingJob(t *testing.T) {
	f := newCapturePageFixture()
	page := models.NewPage("page-1", "site-1", "https://example.com", "Home")
	pending := models.NewCaptureJob("job-7", "page-1")
	if err := f.jobs.Create(context.Background(), pending); err != nil {
		t.Fatalf("seeding pending job: %v", err)
	}
	f.engine.result = &ports.CaptureResult{
		Viewports: []*ports.CapturedViewport{capturedViewport("shot-a", "page-1", 1920)},
	}

	job, err := f.uc.Execute(context.Background(), page, []int{1920})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if job.ID != "job-7" {
		t.Errorf("job ID = %s, want the claimed pending job job-7", job.ID)
	}

	all, _ := f.jobs.ListByPageID(context.Background(), "page-1", 0)
	if len(all) != 1 {
		t.Errorf("jobs for page = %d, want 1 (no duplicate created)", len(all))
	}
	if stored := f.jobs.jobByID("job-7"); stored.Status != models.CaptureJobStatusCompleted {
		t.Errorf("claimed job status = %s, want completed", stored.Status)
	}
}

func TestCapturePageEngineFailureFailsJob(t *testing.T) {
	f := newCapturePageFixture()
	page := models.NewPage("page-1", "site-1", "https://example.com", "Home")
	f.engine.err = errors.New("all 3 viewports failed: navigation timeout")

	_, err := f.uc.Execute(context.Background(), page, nil)
	if err == nil {
		t.Fatal("Execute() succeeded, want error")
	}

	all, _ := f.jobs.ListByPageID(context.Background(), "page-1", 0)
	if len(all) != 1 {
		t.Fatalf("jobs for page = %d, want 1", len(all))
	}
	if all[0].Status != models.CaptureJobStatusFailed {
		t.Errorf("job status = %s, want failed", all[0].Status)
	}
	if all[0].ErrorMessage == "" {
		t.Error("failed job has no error message")
	}
	if _, ok := f.pages.stampedAt("page-1"); ok {
		t.Error("failed capture must not stamp the page capture time")
	}
}

func TestCapturePagePersistFailureFailsJob(t *testing.T) {
	f := newCapturePageFixture()
	page := models.NewPage("page-1", "site-1", "https://example.com", "Home")
	f.engine.result = &ports.CaptureResult{
		Viewports: []*ports.CapturedViewport{capturedViewport("shot-a", "page-1", 1920)},
	}
	f.screenshots.createErr = errors.New("connection refused")

	_, err := f.uc.Execute(context.Background(), page, []int{1920})
	if err == nil {
		t.Fatal("Execute() succeeded, want error")
	}

	all, _ := f.jobs.ListByPageID(context.Background(), "page-1", 0)
	if len(all) != 1 || all[0].Status != models.CaptureJobStatusFailed {
		t.Fatalf("job after persist failure = %+v, want failed", all)
	}
	if _, ok := f.pages.stampedAt("page-1"); ok {
		t.Error("failed capture must not stamp the page capture time")
	}
}

func TestCapturePageRecordsInstructionOutcomes(t *testing.T) {
	f := newCapturePageFixture()
	page := models.NewPage("page-1", "site-1", "https://example.com", "Home")
	f.engine.result = &ports.CaptureResult{
		Viewports: []*ports.CapturedViewport{capturedViewport("shot-a", "page-1", 1920)},
		InstructionResults: []models.InstructionResult{
			{InstructionID: "instr-1", Name: "dismiss banner", Success: true},
			{InstructionID: "instr-2", Name: "open menu", Success: false, Error: "selector not found"},
		},
	}

	if _, err := f.uc.Execute(context.Background(), page, []int{1920}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(f.instructions.successes) != 1 || f.instructions.successes[0] != "instr-1" {
		t.Errorf("recorded successes = %v, want [instr-1]", f.instructions.successes)
	}
	if msg := f.instructions.failures["instr-2"]; msg != "selector not found" {
		t.Errorf("recorded failure for instr-2 = %q, want selector not found", msg)
	}
}

func TestCapturePageDefaultsViewports(t *testing.T) {
	f := newCapturePageFixture()
	page := models.NewPage("page-1", "site-1", "https://example.com", "Home")
	f.engine.result = &ports.CaptureResult{
		Viewports: []*ports.CapturedViewport{capturedViewport("shot-a", "page-1", 1920)},
	}

	job, err := f.uc.Execute(context.Background(), page, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	reqs := f.engine.capturedRequests()
	if len(reqs) != 1 {
		t.Fatalf("engine requests = %d, want 1", len(reqs))
	}
	if len(reqs[0].Viewports) != len(models.DefaultViewportWidths) {
		t.Fatalf("request viewports = %v, want defaults %v", reqs[0].Viewports, models.DefaultViewportWidths)
	}
	for i, width := range models.DefaultViewportWidths {
		if reqs[0].Viewports[i] != width {
			t.Errorf("viewport %d = %d, want %d", i, reqs[0].Viewports[i], width)
		}
	}
	if job.ViewportsTotal != len(models.DefaultViewportWidths) {
		t.Errorf("job viewports total = %d, want %d", job.ViewportsTotal, len(models.DefaultViewportWidths))
	}
}

func TestCapturePagePassesInstructionsAndTests(t *testing.T) {
	f := newCapturePageFixture()
	page := models.NewPage("page-1", "site-1", "https://example.com", "Home")
	instruction := models.NewInstruction("instr-1", "page-1", "dismiss banner", "close the cookie banner")
	instruction.Script = "document.querySelector('#consent .accept').click()"
	if err := f.instructions.Create(context.Background(), instruction); err != nil {
		t.Fatalf("seeding instruction: %v", err)
	}
	pageTest := models.NewTest("test-1", "page-1", "title set", "check the title")
	pageTest.Script = "({passed: !!document.title, message: document.title})"
	if err := f.tests.Create(context.Background(), pageTest); err != nil {
		t.Fatalf("seeding test: %v", err)
	}
	f.engine.result = &ports.CaptureResult{
		Viewports: []*ports.CapturedViewport{capturedViewport("shot-a", "page-1", 1920)},
	}

	if _, err := f.uc.Execute(context.Background(), page, []int{1920}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	reqs := f.engine.capturedRequests()
	if len(reqs) != 1 {
		t.Fatalf("engine requests = %d, want 1", len(reqs))
	}
	if len(reqs[0].Instructions) != 1 || reqs[0].Instructions[0].ID != "instr-1" {
		t.Errorf("request instructions = %+v, want the seeded instruction", reqs[0].Instructions)
	}
	if len(reqs[0].Tests) != 1 || reqs[0].Tests[0].ID != "test-1" {
		t.Errorf("request tests = %+v, want the seeded test", reqs[0].Tests)
	}
}

func TestCapturePageRejectsEmptyPageID(t *testing.T) {
	f := newCapturePageFixture()

	_, err := f.uc.Execute(context.Background(), &models.Page{}, nil)
	if !errors.Is(err, domain.ErrInvalidID) {
		t.Errorf("Execute() error = %v, want ErrInvalidID", err)
	}
}
