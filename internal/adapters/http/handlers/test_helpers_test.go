package handlers

import (
	"context"
	"time"

	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/snapwatch/worker/internal/ports"
)

// MockCaptureEngine is a mock capture engine for testing
type MockCaptureEngine struct {
	trial    *ports.ScriptTrial
	trialErr error
	stats    ports.PoolStats
	tried    []string
}

func (m *MockCaptureEngine) CapturePage(ctx context.Context, req *ports.CaptureRequest) (*ports.CaptureResult, error) {
	return &ports.CaptureResult{}, nil
}

func (m *MockCaptureEngine) TryScript(ctx context.Context, pageURL, viewportTag, script string, scriptType models.ScriptType, asTest bool) (*ports.ScriptTrial, error) {
	m.tried = append(m.tried, script)
	if m.trialErr != nil {
		return nil, m.trialErr
	}
	if m.trial != nil {
		return m.trial, nil
	}
	return &ports.ScriptTrial{OK: true}, nil
}

func (m *MockCaptureEngine) RenderHTML(ctx context.Context, url string) (string, error) {
	return "", nil
}

func (m *MockCaptureEngine) PoolStats() ports.PoolStats {
	return m.stats
}

// MockScriptGenerator is a mock generation service client for testing
type MockScriptGenerator struct {
	script   *ports.GeneratedScript
	err      error
	requests []*ports.GenerateScriptRequest
}

func (m *MockScriptGenerator) GenerateScript(ctx context.Context, req *ports.GenerateScriptRequest) (*ports.GeneratedScript, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.script, nil
}

// MockPageDiscoverer is a mock page discoverer for testing
type MockPageDiscoverer struct {
	pages []ports.DiscoveredPage
	total int
	err   error
}

func (m *MockPageDiscoverer) Discover(ctx context.Context, domain string, maxPages int) ([]ports.DiscoveredPage, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.pages, m.total, nil
}

// MockScreenshotRepository is a map-backed screenshot repository for testing
type MockScreenshotRepository struct {
	shots map[string]*models.Screenshot
}

func (m *MockScreenshotRepository) put(shot *models.Screenshot) {
	if m.shots == nil {
		m.shots = make(map[string]*models.Screenshot)
	}
	m.shots[shot.ID] = shot
}

func (m *MockScreenshotRepository) Create(ctx context.Context, screenshot *models.Screenshot) error {
	m.put(screenshot)
	return nil
}

func (m *MockScreenshotRepository) GetByID(ctx context.Context, id string) (*models.Screenshot, error) {
	if shot, ok := m.shots[id]; ok {
		return shot, nil
	}
	return nil, domain.ErrScreenshotNotFound
}

func (m *MockScreenshotRepository) Delete(ctx context.Context, id string) error {
	delete(m.shots, id)
	return nil
}

func (m *MockScreenshotRepository) ListByPageID(ctx context.Context, pageID string, limit, offset int) ([]*models.Screenshot, error) {
	return nil, nil
}

func (m *MockScreenshotRepository) ListByPageIDNewestFirst(ctx context.Context, pageID string) ([]*models.Screenshot, error) {
	return nil, nil
}

func (m *MockScreenshotRepository) CountByPageID(ctx context.Context, pageID string) (int, error) {
	return len(m.shots), nil
}

// MockScreenshotStorage is an in-memory screenshot store for testing
type MockScreenshotStorage struct {
	files map[string][]byte
}

func (m *MockScreenshotStorage) putFile(path string, data []byte) {
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[path] = data
}

func (m *MockScreenshotStorage) Write(pageID string, takenAt time.Time, viewportTag string, png []byte) (*ports.StoredImage, error) {
	path := pageID + "/" + viewportTag + ".png"
	m.putFile(path, png)
	return &ports.StoredImage{ImagePath: path, FileSize: int64(len(png))}, nil
}

func (m *MockScreenshotStorage) Read(relPath string) ([]byte, error) {
	if data, ok := m.files[relPath]; ok {
		return data, nil
	}
	return nil, domain.ErrScreenshotMissing
}

func (m *MockScreenshotStorage) Remove(relPath string) error {
	delete(m.files, relPath)
	return nil
}

// MockImageDiffer is a canned-response differ for testing
type MockImageDiffer struct {
	stats *ports.DiffStats
	diff  []byte
	err   error
}

func (m *MockImageDiffer) Compare(before, after []byte, renderDiff bool) (*ports.DiffStats, []byte, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	if renderDiff {
		return m.stats, m.diff, nil
	}
	return m.stats, nil, nil
}
