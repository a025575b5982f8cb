package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/snapwatch/worker/internal/application/usecases"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/snapwatch/worker/internal/ports"
)

func newCompareHandler() (*CompareHandler, *MockScreenshotRepository, *MockScreenshotStorage) {
	repo := &MockScreenshotRepository{}
	storage := &MockScreenshotStorage{}
	differ := &MockImageDiffer{
		stats: &ports.DiffStats{
			DiffPixels:     120,
			TotalPixels:    1000,
			DiffPercentage: 12,
			Width:          100,
			Height:         10,
		},
		diff: []byte("diff-image-bytes"),
	}
	handler := NewCompareHandler(usecases.NewCompareScreenshots(repo, storage, differ))
	return handler, repo, storage
}

func seedScreenshot(repo *MockScreenshotRepository, storage *MockScreenshotStorage, id, pageID string, createdAt time.Time) {
	path := pageID + "/" + id + ".png"
	repo.put(&models.Screenshot{
		ID:        id,
		PageID:    pageID,
		Viewport:  models.ViewportTagDesktop,
		ImagePath: path,
		CreatedAt: createdAt,
	})
	storage.putFile(path, []byte("png-"+id))
}

func TestCompareHandler_Compare(t *testing.T) {
	handler, repo, storage := newCompareHandler()
	now := time.Now().UTC()
	seedScreenshot(repo, storage, "shot-old", "page-1", now.Add(-time.Hour))
	seedScreenshot(repo, storage, "shot-new", "page-1", now)

	rr := postJSON(t, handler.Compare, "/compare-screenshots", compareScreenshotsRequest{
		ScreenshotID1: "shot-new",
		ScreenshotID2: "shot-old",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response compareScreenshotsResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if !response.Success {
		t.Error("expected success true")
	}
	if response.Stats == nil || response.Stats.DiffPixels != 120 {
		t.Errorf("unexpected stats: %+v", response.Stats)
	}
	if response.DiffPNGBase64 != "" {
		t.Error("diff image should be omitted unless requested")
	}
}

func TestCompareHandler_Compare_IncludeDiff(t *testing.T) {
	handler, repo, storage := newCompareHandler()
	now := time.Now().UTC()
	seedScreenshot(repo, storage, "shot-a", "page-1", now.Add(-time.Hour))
	seedScreenshot(repo, storage, "shot-b", "page-1", now)

	rr := postJSON(t, handler.Compare, "/compare-screenshots", compareScreenshotsRequest{
		ScreenshotID1: "shot-a",
		ScreenshotID2: "shot-b",
		IncludeDiff:   true,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response compareScreenshotsResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(response.DiffPNGBase64)
	if err != nil {
		t.Fatalf("diff_png_base64 is not valid base64: %v", err)
	}
	if string(decoded) != "diff-image-bytes" {
		t.Errorf("unexpected diff image: %q", decoded)
	}
}

func TestCompareHandler_Compare_SameID(t *testing.T) {
	handler, repo, storage := newCompareHandler()
	seedScreenshot(repo, storage, "shot-a", "page-1", time.Now().UTC())

	rr := postJSON(t, handler.Compare, "/compare-screenshots", compareScreenshotsRequest{
		ScreenshotID1: "shot-a",
		ScreenshotID2: "shot-a",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestCompareHandler_Compare_UnknownID(t *testing.T) {
	handler, repo, storage := newCompareHandler()
	seedScreenshot(repo, storage, "shot-a", "page-1", time.Now().UTC())

	rr := postJSON(t, handler.Compare, "/compare-screenshots", compareScreenshotsRequest{
		ScreenshotID1: "shot-a",
		ScreenshotID2: "shot-missing",
	})

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestCompareHandler_Compare_DifferentPages(t *testing.T) {
	handler, repo, storage := newCompareHandler()
	now := time.Now().UTC()
	seedScreenshot(repo, storage, "shot-a", "page-1", now.Add(-time.Hour))
	seedScreenshot(repo, storage, "shot-b", "page-2", now)

	rr := postJSON(t, handler.Compare, "/compare-screenshots", compareScreenshotsRequest{
		ScreenshotID1: "shot-a",
		ScreenshotID2: "shot-b",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
