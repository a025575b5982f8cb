package usecases

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/snapwatch/worker/internal/ports"
)

// ============================================================================
// Common mock implementations shared across tests
// ============================================================================

// mockPageRepo is an in-memory page repository
type mockPageRepo struct {
	mu        sync.Mutex
	pages     map[string]*models.Page
	idsByUser map[string][]string
	stamped   map[string]time.Time
	stampErr  error
}

func newMockPageRepo() *mockPageRepo {
	return &mockPageRepo{
		pages:     make(map[string]*models.Page),
		idsByUser: make(map[string][]string),
		stamped:   make(map[string]time.Time),
	}
}

func (m *mockPageRepo) Create(ctx context.Context, page *models.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page.ID] = page
	return nil
}

func (m *mockPageRepo) GetByID(ctx context.Context, id string) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if page, ok := m.pages[id]; ok {
		return page, nil
	}
	return nil, domain.NewDomainError(domain.ErrPageNotFound, "page not found: "+id)
}

func (m *mockPageRepo) Update(ctx context.Context, page *models.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page.ID] = page
	return nil
}

func (m *mockPageRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, id)
	return nil
}

func (m *mockPageRepo) ListBySiteID(ctx context.Context, siteID string) ([]*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Page
	for _, page := range m.pages {
		if page.SiteID == siteID {
			result = append(result, page)
		}
	}
	return result, nil
}

func (m *mockPageRepo) ListDue(ctx context.Context, now time.Time) ([]*ports.DuePage, error) {
	return nil, nil
}

func (m *mockPageRepo) UpdateLastScreenshotAt(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stampErr != nil {
		return m.stampErr
	}
	m.stamped[id] = at
	return nil
}

func (m *mockPageRepo) ListIDsWithScreenshots(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idsByUser[userID], nil
}

func (m *mockPageRepo) stampedAt(id string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.stamped[id]
	return at, ok
}

// mockScreenshotRepo is an in-memory screenshot repository
type mockScreenshotRepo struct {
	mu        sync.Mutex
	store     map[string]*models.Screenshot
	createErr error
	deleteErr error
	deleted   []string
}

func newMockScreenshotRepo() *mockScreenshotRepo {
	return &mockScreenshotRepo{store: make(map[string]*models.Screenshot)}
}

func (m *mockScreenshotRepo) Create(ctx context.Context, screenshot *models.Screenshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.store[screenshot.ID] = screenshot
	return nil
}

func (m *mockScreenshotRepo) GetByID(ctx context.Context, id string) (*models.Screenshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if shot, ok := m.store[id]; ok {
		return shot, nil
	}
	return nil, domain.NewDomainError(domain.ErrScreenshotNotFound, "screenshot not found: "+id)
}

func (m *mockScreenshotRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.store, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockScreenshotRepo) ListByPageID(ctx context.Context, pageID string, limit, offset int) ([]*models.Screenshot, error) {
	all, err := m.ListByPageIDNewestFirst(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *mockScreenshotRepo) ListByPageIDNewestFirst(ctx context.Context, pageID string) ([]*models.Screenshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Screenshot
	for _, shot := range m.store {
		if shot.PageID == pageID {
			result = append(result, shot)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *mockScreenshotRepo) CountByPageID(ctx context.Context, pageID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, shot := range m.store {
		if shot.PageID == pageID {
			count++
		}
	}
	return count, nil
}

func (m *mockScreenshotRepo) deletedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// mockScreenshotErrorRepo collects browser error records
type mockScreenshotErrorRepo struct {
	mu     sync.Mutex
	errors []*models.ScreenshotError
}

func newMockScreenshotErrorRepo() *mockScreenshotErrorRepo {
	return &mockScreenshotErrorRepo{}
}

func (m *mockScreenshotErrorRepo) Create(ctx context.Context, se *models.ScreenshotError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, se)
	return nil
}

func (m *mockScreenshotErrorRepo) ListByScreenshotID(ctx context.Context, screenshotID string) ([]*models.ScreenshotError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.ScreenshotError
	for _, se := range m.errors {
		if se.ScreenshotID == screenshotID {
			result = append(result, se)
		}
	}
	return result, nil
}

// mockInstructionRepo serves active instructions and records outcomes
type mockInstructionRepo struct {
	mu        sync.Mutex
	active    map[string][]*models.Instruction
	listErr   error
	successes []string
	failures  map[string]string
}

func newMockInstructionRepo() *mockInstructionRepo {
	return &mockInstructionRepo{
		active:   make(map[string][]*models.Instruction),
		failures: make(map[string]string),
	}
}

func (m *mockInstructionRepo) Create(ctx context.Context, instruction *models.Instruction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[instruction.PageID] = append(m.active[instruction.PageID], instruction)
	return nil
}

func (m *mockInstructionRepo) GetByID(ctx context.Context, id string) (*models.Instruction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, list := range m.active {
		for _, instruction := range list {
			if instruction.ID == id {
				return instruction, nil
			}
		}
	}
	return nil, domain.NewDomainError(domain.ErrInstructionNotFound, "instruction not found: "+id)
}

func (m *mockInstructionRepo) Update(ctx context.Context, instruction *models.Instruction) error {
	return nil
}

func (m *mockInstructionRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *mockInstructionRepo) ListActiveByPageID(ctx context.Context, pageID string) ([]*models.Instruction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.active[pageID], nil
}

func (m *mockInstructionRepo) RecordSuccess(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes = append(m.successes, id)
	return nil
}

func (m *mockInstructionRepo) RecordFailure(ctx context.Context, id string, message string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[id] = message
	return nil
}

// mockTestRepo serves active tests
type mockTestRepo struct {
	mu     sync.Mutex
	active map[string][]*models.Test
}

func newMockTestRepo() *mockTestRepo {
	return &mockTestRepo{active: make(map[string][]*models.Test)}
}

func (m *mockTestRepo) Create(ctx context.Context, test *models.Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[test.PageID] = append(m.active[test.PageID], test)
	return nil
}

func (m *mockTestRepo) GetByID(ctx context.Context, id string) (*models.Test, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, list := range m.active {
		for _, test := range list {
			if test.ID == id {
				return test, nil
			}
		}
	}
	return nil, domain.NewDomainError(domain.ErrTestNotFound, "test not found: "+id)
}

func (m *mockTestRepo) Update(ctx context.Context, test *models.Test) error { return nil }

func (m *mockTestRepo) Delete(ctx context.Context, id string) error { return nil }

func (m *mockTestRepo) ListActiveByPageID(ctx context.Context, pageID string) ([]*models.Test, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[pageID], nil
}

// mockTestResultRepo collects test results
type mockTestResultRepo struct {
	mu        sync.Mutex
	results   []*models.TestResult
	createErr error
}

func newMockTestResultRepo() *mockTestResultRepo {
	return &mockTestResultRepo{}
}

func (m *mockTestResultRepo) Create(ctx context.Context, result *models.TestResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.results = append(m.results, result)
	return nil
}

func (m *mockTestResultRepo) ListByScreenshotID(ctx context.Context, screenshotID string) ([]*models.TestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.TestResult
	for _, r := range m.results {
		if r.ScreenshotID == screenshotID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockTestResultRepo) ListByTestID(ctx context.Context, testID string, limit int) ([]*models.TestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.TestResult
	for _, r := range m.results {
		if r.TestID == testID {
			result = append(result, r)
		}
	}
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// mockJobRepo is an in-memory capture job repository enforcing the
// one-non-terminal-job-per-page rule
type mockJobRepo struct {
	mu          sync.Mutex
	jobs        map[string]*models.CaptureJob
	createErr   error
	claimErr    error
	completeErr error
	failErr     error
	streaks     map[string]*ports.FailureStreak
	progress    []string
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{
		jobs:    make(map[string]*models.CaptureJob),
		streaks: make(map[string]*ports.FailureStreak),
	}
}

func copyJob(job *models.CaptureJob) *models.CaptureJob {
	if job == nil {
		return nil
	}
	jobCopy := *job
	return &jobCopy
}

func (m *mockJobRepo) Create(ctx context.Context, job *models.CaptureJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.jobs {
		if existing.PageID == job.PageID && !existing.IsTerminal() {
			return domain.NewDomainError(domain.ErrJobConflict, "page already has an active job")
		}
	}
	m.jobs[job.ID] = copyJob(job)
	return nil
}

func (m *mockJobRepo) GetByID(ctx context.Context, id string) (*models.CaptureJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		return copyJob(job), nil
	}
	return nil, domain.NewDomainError(domain.ErrJobNotFound, "job not found: "+id)
}

func (m *mockJobRepo) ClaimPending(ctx context.Context, pageID string, viewportsTotal int, startedAt time.Time) (*models.CaptureJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimErr != nil {
		return nil, m.claimErr
	}
	var newest *models.CaptureJob
	for _, job := range m.jobs {
		if job.PageID != pageID || job.Status != models.CaptureJobStatusPending {
			continue
		}
		if newest == nil || job.CreatedAt.After(newest.CreatedAt) {
			newest = job
		}
	}
	if newest == nil {
		return nil, nil
	}
	newest.Status = models.CaptureJobStatusCapturing
	newest.ViewportsTotal = viewportsTotal
	at := startedAt
	newest.StartedAt = &at
	return copyJob(newest), nil
}

func (m *mockJobRepo) UpdateProgress(ctx context.Context, id string, currentViewport string, completed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		job.Progress(currentViewport, completed)
	}
	m.progress = append(m.progress, fmt.Sprintf("%s:%d", currentViewport, completed))
	return nil
}

func (m *mockJobRepo) Complete(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completeErr != nil {
		return m.completeErr
	}
	job, ok := m.jobs[id]
	if !ok {
		return domain.NewDomainError(domain.ErrJobNotFound, "job not found: "+id)
	}
	job.Status = models.CaptureJobStatusCompleted
	job.CurrentViewport = ""
	done := at
	job.CompletedAt = &done
	return nil
}

func (m *mockJobRepo) Fail(ctx context.Context, id string, message string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	job, ok := m.jobs[id]
	if !ok {
		return domain.NewDomainError(domain.ErrJobNotFound, "job not found: "+id)
	}
	job.Status = models.CaptureJobStatusFailed
	job.ErrorMessage = message
	done := at
	job.CompletedAt = &done
	return nil
}

func (m *mockJobRepo) ResetStale(ctx context.Context, cutoff time.Time, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, job := range m.jobs {
		if job.Status == models.CaptureJobStatusCapturing && job.StartedAt != nil && job.StartedAt.Before(cutoff) {
			job.Status = models.CaptureJobStatusFailed
			job.ErrorMessage = models.StaleJobErrorMessage
			done := at
			job.CompletedAt = &done
			count++
		}
	}
	return count, nil
}

func (m *mockJobRepo) GetFailureStreak(ctx context.Context, pageID string) (*ports.FailureStreak, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if streak, ok := m.streaks[pageID]; ok {
		return streak, nil
	}
	return &ports.FailureStreak{}, nil
}

func (m *mockJobRepo) ListByPageID(ctx context.Context, pageID string, limit int) ([]*models.CaptureJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.CaptureJob
	for _, job := range m.jobs {
		if job.PageID == pageID {
			result = append(result, copyJob(job))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockJobRepo) jobByID(id string) *models.CaptureJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyJob(m.jobs[id])
}

func (m *mockJobRepo) progressCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.progress...)
}

// mockSettingsRepo serves user settings
type mockSettingsRepo struct {
	mu      sync.Mutex
	byUser  map[string]*models.UserSettings
	enabled []*models.UserSettings
	listErr error
}

func newMockSettingsRepo() *mockSettingsRepo {
	return &mockSettingsRepo{byUser: make(map[string]*models.UserSettings)}
}

func (m *mockSettingsRepo) GetByUserID(ctx context.Context, userID string) (*models.UserSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if settings, ok := m.byUser[userID]; ok {
		return settings, nil
	}
	return nil, domain.NewDomainError(domain.ErrSettingsNotFound, "settings not found for user "+userID)
}

func (m *mockSettingsRepo) Upsert(ctx context.Context, settings *models.UserSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUser[settings.UserID] = settings
	return nil
}

func (m *mockSettingsRepo) ListRetentionEnabled(ctx context.Context) ([]*models.UserSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.enabled, nil
}

// mockStorage is an in-memory screenshot store
type mockStorage struct {
	mu      sync.Mutex
	files   map[string][]byte
	removed []string
	readErr error
}

func newMockStorage() *mockStorage {
	return &mockStorage{files: make(map[string][]byte)}
}

func (m *mockStorage) Write(pageID string, takenAt time.Time, viewportTag string, png []byte) (*ports.StoredImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rel := fmt.Sprintf("%s/%04d/%02d/%d_%s.png", pageID, takenAt.Year(), int(takenAt.Month()), takenAt.UnixMilli(), viewportTag)
	thumb := fmt.Sprintf("%s/%04d/%02d/%d_%s_thumb.png", pageID, takenAt.Year(), int(takenAt.Month()), takenAt.UnixMilli(), viewportTag)
	m.files[rel] = png
	m.files[thumb] = png
	return &ports.StoredImage{ImagePath: rel, ThumbnailPath: thumb, FileSize: int64(len(png))}, nil
}

func (m *mockStorage) Read(relPath string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	data, ok := m.files[relPath]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", relPath)
	}
	return data, nil
}

func (m *mockStorage) Remove(relPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, relPath)
	m.removed = append(m.removed, relPath)
	return nil
}

func (m *mockStorage) put(relPath string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[relPath] = data
}

func (m *mockStorage) removedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}

// mockEngine is a scripted capture engine. CapturePage drives the
// progress callback the way the real engine does before returning the
// configured result.
type mockEngine struct {
	mu       sync.Mutex
	result   *ports.CaptureResult
	err      error
	trial    *ports.ScriptTrial
	trialErr error
	html     string
	stats    ports.PoolStats
	requests []*ports.CaptureRequest
	tried    []string
}

func (m *mockEngine) CapturePage(ctx context.Context, req *ports.CaptureRequest) (*ports.CaptureResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if req.OnProgress != nil {
		for i, width := range req.Viewports {
			req.OnProgress(models.ViewportTagForWidth(width), i, len(req.Viewports))
		}
	}
	return m.result, m.err
}

func (m *mockEngine) TryScript(ctx context.Context, pageURL, viewportTag, script string, scriptType models.ScriptType, asTest bool) (*ports.ScriptTrial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tried = append(m.tried, script)
	if m.trialErr != nil {
		return nil, m.trialErr
	}
	if m.trial != nil {
		return m.trial, nil
	}
	return &ports.ScriptTrial{OK: true}, nil
}

func (m *mockEngine) RenderHTML(ctx context.Context, url string) (string, error) {
	return m.html, nil
}

func (m *mockEngine) PoolStats() ports.PoolStats {
	return m.stats
}

func (m *mockEngine) capturedRequests() []*ports.CaptureRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ports.CaptureRequest(nil), m.requests...)
}

func (m *mockEngine) triedScripts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tried...)
}

// mockGenerator is a scripted script-generation service
type mockGenerator struct {
	mu     sync.Mutex
	script *ports.GeneratedScript
	err    error
	reqs   []*ports.GenerateScriptRequest
}

func (m *mockGenerator) GenerateScript(ctx context.Context, req *ports.GenerateScriptRequest) (*ports.GeneratedScript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.script, nil
}

// mockDiffer is a scripted image differ
type mockDiffer struct {
	mu     sync.Mutex
	stats  *ports.DiffStats
	diff   []byte
	err    error
	before []byte
	after  []byte
	render bool
}

func (m *mockDiffer) Compare(before, after []byte, renderDiff bool) (*ports.DiffStats, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.before = before
	m.after = after
	m.render = renderDiff
	if m.err != nil {
		return nil, nil, m.err
	}
	if renderDiff {
		return m.stats, m.diff, nil
	}
	return m.stats, nil, nil
}

// mockDiscoverer is a scripted page discoverer
type mockDiscoverer struct {
	mu       sync.Mutex
	pages    []ports.DiscoveredPage
	total    int
	err      error
	domains  []string
	maxPages []int
}

func (m *mockDiscoverer) Discover(ctx context.Context, domain string, maxPages int) ([]ports.DiscoveredPage, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domains = append(m.domains, domain)
	m.maxPages = append(m.maxPages, maxPages)
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.pages, m.total, nil
}

// mockTxManager runs the function directly; repositories under test do
// not distinguish transactional from plain calls.
type mockTxManager struct {
	calls int
	err   error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	return fn(ctx)
}

// mockIDGen issues sequential prefixed IDs
type mockIDGen struct {
	mu sync.Mutex
	n  int
}

func (m *mockIDGen) next(prefix string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	return fmt.Sprintf("%s-%d", prefix, m.n)
}

func (m *mockIDGen) GenerateSiteID() string            { return m.next("site") }
func (m *mockIDGen) GeneratePageID() string            { return m.next("page") }
func (m *mockIDGen) GenerateScreenshotID() string      { return m.next("shot") }
func (m *mockIDGen) GenerateScreenshotErrorID() string { return m.next("shoterr") }
func (m *mockIDGen) GenerateInstructionID() string     { return m.next("instr") }
func (m *mockIDGen) GenerateTestID() string            { return m.next("test") }
func (m *mockIDGen) GenerateTestResultID() string      { return m.next("result") }
func (m *mockIDGen) GenerateCaptureJobID() string      { return m.next("job") }
func (m *mockIDGen) GenerateUserSettingsID() string    { return m.next("settings") }
func (m *mockIDGen) GenerateRequestID() string         { return m.next("req") }
