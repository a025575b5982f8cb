package models

import (
	"time"
)

// Screenshot is one captured viewport image. Immutable after creation.
type Screenshot struct {
	ID            string `json:"id"`
	PageID        string `json:"page_id"`
	Viewport      string `json:"viewport"`
	ViewportWidth int    `json:"viewport_width"`

	// Paths are relative to the screenshots root
	ImagePath     string `json:"image_path"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`

	FileSize    int64 `json:"file_size"`
	ImageWidth  int   `json:"image_width"`
	ImageHeight int   `json:"image_height"`

	CreatedAt time.Time `json:"created_at"`
}

func NewScreenshot(id, pageID string, viewportWidth int) *Screenshot {
	return &Screenshot{
		ID:            id,
		PageID:        pageID,
		Viewport:      ViewportTagForWidth(viewportWidth),
		ViewportWidth: viewportWidth,
		CreatedAt:     time.Now().UTC(),
	}
}

// ScreenshotErrorKind discriminates browser-observed error records
type ScreenshotErrorKind string

const (
	ScreenshotErrorKindJS      ScreenshotErrorKind = "js"
	ScreenshotErrorKindNetwork ScreenshotErrorKind = "network"
)

// ScreenshotError is a JS console error or network failure observed
// while the owning screenshot's viewport was being captured.
type ScreenshotError struct {
	ID           string              `json:"id"`
	ScreenshotID string              `json:"screenshot_id"`
	Kind         ScreenshotErrorKind `json:"kind"`

	// JS errors
	Message string `json:"message,omitempty"`
	Source  string `json:"source,omitempty"`

	// Network failures
	URL          string `json:"url,omitempty"`
	Method       string `json:"method,omitempty"`
	ResourceType string `json:"resource_type,omitempty"`
	StatusText   string `json:"status_text,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func NewJSError(id, screenshotID, message, source string) *ScreenshotError {
	return &ScreenshotError{
		ID:           id,
		ScreenshotID: screenshotID,
		Kind:         ScreenshotErrorKindJS,
		Message:      message,
		Source:       source,
		CreatedAt:    time.Now().UTC(),
	}
}

func NewNetworkError(id, screenshotID, url, method, resourceType, statusText string) *ScreenshotError {
	return &ScreenshotError{
		ID:           id,
		ScreenshotID: screenshotID,
		Kind:         ScreenshotErrorKindNetwork,
		URL:          url,
		Method:       method,
		ResourceType: resourceType,
		StatusText:   statusText,
		CreatedAt:    time.Now().UTC(),
	}
}
