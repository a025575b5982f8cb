package models

import (
	"time"
)

// Test is an assertion script run against each captured viewport,
// optionally filtered to a subset of viewport tags.
type Test struct {
	ID         string     `json:"id"`
	PageID     string     `json:"page_id"`
	Name       string     `json:"name"`
	Prompt     string     `json:"prompt"`
	Script     string     `json:"script"`
	ScriptType ScriptType `json:"script_type"`
	IsActive   bool       `json:"is_active"`

	// Viewports limits execution to the listed tags; nil or empty means
	// the test runs for every captured viewport.
	Viewports []string `json:"viewports,omitempty"`

	LastError     string     `json:"last_error,omitempty"`
	LastErrorAt   *time.Time `json:"last_error_at,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	ErrorCount    int        `json:"error_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewTest(id, pageID, name, prompt string) *Test {
	now := time.Now().UTC()
	return &Test{
		ID:         id,
		PageID:     pageID,
		Name:       name,
		Prompt:     prompt,
		ScriptType: ScriptTypeEval,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// AppliesTo reports whether the test should run for a viewport tag.
func (t *Test) AppliesTo(viewportTag string) bool {
	if len(t.Viewports) == 0 {
		return true
	}
	for _, v := range t.Viewports {
		if v == viewportTag {
			return true
		}
	}
	return false
}

// IsRunnable reports whether the capture pipeline should execute this test.
func (t *Test) IsRunnable() bool {
	return t.IsActive && t.Script != ""
}

// TestResult records one test execution against one screenshot.
// A test runs at most once per screenshot.
type TestResult struct {
	ID              string    `json:"id"`
	TestID          string    `json:"test_id"`
	ScreenshotID    string    `json:"screenshot_id"`
	Passed          bool      `json:"passed"`
	Message         string    `json:"message,omitempty"`
	ExecutionTimeMs int64     `json:"execution_time_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

func NewTestResult(id, testID, screenshotID string, passed bool, message string, executionTime time.Duration) *TestResult {
	return &TestResult{
		ID:              id,
		TestID:          testID,
		ScreenshotID:    screenshotID,
		Passed:          passed,
		Message:         message,
		ExecutionTimeMs: executionTime.Milliseconds(),
		CreatedAt:       time.Now().UTC(),
	}
}
