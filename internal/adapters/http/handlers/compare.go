package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/snapwatch/worker/internal/application/usecases"
	"github.com/snapwatch/worker/internal/ports"
)

// CompareHandler serves ad-hoc screenshot comparison
type CompareHandler struct {
	compare *usecases.CompareScreenshots
}

func NewCompareHandler(compare *usecases.CompareScreenshots) *CompareHandler {
	return &CompareHandler{compare: compare}
}

type compareScreenshotsRequest struct {
	ScreenshotID1 string `json:"screenshot_id_1"`
	ScreenshotID2 string `json:"screenshot_id_2"`
	IncludeDiff   bool   `json:"include_diff,omitempty"`
}

type compareScreenshotsResponse struct {
	Success       bool             `json:"success"`
	Stats         *ports.DiffStats `json:"stats"`
	DiffPNGBase64 string           `json:"diff_png_base64,omitempty"`
}

// Compare handles POST /compare-screenshots
func (h *CompareHandler) Compare(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[compareScreenshotsRequest](r, w)
	if !ok {
		return
	}

	out, err := h.compare.Execute(r.Context(), usecases.CompareScreenshotsInput{
		ScreenshotID1: req.ScreenshotID1,
		ScreenshotID2: req.ScreenshotID2,
		IncludeDiff:   req.IncludeDiff,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := compareScreenshotsResponse{Success: true, Stats: out.Stats}
	if len(out.DiffPNG) > 0 {
		resp.DiffPNGBase64 = base64.StdEncoding.EncodeToString(out.DiffPNG)
	}
	respondJSON(w, resp, http.StatusOK)
}
