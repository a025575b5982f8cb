package models

import (
	"time"
)

type CaptureJobStatus string

const (
	CaptureJobStatusPending   CaptureJobStatus = "pending"
	CaptureJobStatusCapturing CaptureJobStatus = "capturing"
	CaptureJobStatusCompleted CaptureJobStatus = "completed"
	CaptureJobStatusFailed    CaptureJobStatus = "failed"
)

// StaleJobErrorMessage is written when a capturing job is forcibly
// failed because its worker restarted or crashed.
const StaleJobErrorMessage = "Job timed out (worker restarted or crashed)"

// CaptureJob tracks one capture attempt for a page across all of its
// viewports. At most one non-terminal job exists per page.
type CaptureJob struct {
	ID     string           `json:"id"`
	PageID string           `json:"page_id"`
	Status CaptureJobStatus `json:"status"`

	CurrentViewport    string `json:"current_viewport,omitempty"`
	ViewportsCompleted int    `json:"viewports_completed"`
	ViewportsTotal     int    `json:"viewports_total"`
	ErrorMessage       string `json:"error_message,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewCaptureJob creates a user-triggered job awaiting pickup.
func NewCaptureJob(id, pageID string) *CaptureJob {
	return &CaptureJob{
		ID:        id,
		PageID:    pageID,
		Status:    CaptureJobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// NewRunningCaptureJob creates a job already claimed by the scheduler,
// used when no pending job existed for a due page.
func NewRunningCaptureJob(id, pageID string, viewportsTotal int) *CaptureJob {
	now := time.Now().UTC()
	return &CaptureJob{
		ID:             id,
		PageID:         pageID,
		Status:         CaptureJobStatusCapturing,
		ViewportsTotal: viewportsTotal,
		StartedAt:      &now,
		CreatedAt:      now,
	}
}

func (j *CaptureJob) IsTerminal() bool {
	return j.Status == CaptureJobStatusCompleted || j.Status == CaptureJobStatusFailed
}

// Begin transitions the job from pending to capturing.
func (j *CaptureJob) Begin(viewportsTotal int) error {
	if err := ValidateJobTransition(j.Status, CaptureJobStatusCapturing); err != nil {
		return err
	}
	now := time.Now().UTC()
	j.Status = CaptureJobStatusCapturing
	j.ViewportsTotal = viewportsTotal
	j.StartedAt = &now
	return nil
}

// Progress records the viewport about to be captured.
func (j *CaptureJob) Progress(viewportTag string, completed int) {
	j.CurrentViewport = viewportTag
	if completed > j.ViewportsCompleted {
		j.ViewportsCompleted = completed
	}
}

// Complete transitions the job to its successful terminal state.
func (j *CaptureJob) Complete() error {
	if err := ValidateJobTransition(j.Status, CaptureJobStatusCompleted); err != nil {
		return err
	}
	now := time.Now().UTC()
	j.Status = CaptureJobStatusCompleted
	j.CurrentViewport = ""
	j.CompletedAt = &now
	return nil
}

// Fail transitions the job to its failed terminal state with a message.
func (j *CaptureJob) Fail(message string) error {
	if err := ValidateJobTransition(j.Status, CaptureJobStatusFailed); err != nil {
		return err
	}
	now := time.Now().UTC()
	j.Status = CaptureJobStatusFailed
	j.ErrorMessage = message
	j.CompletedAt = &now
	return nil
}

// IsStale reports whether a capturing job has exceeded the stale timeout.
func (j *CaptureJob) IsStale(now time.Time, timeout time.Duration) bool {
	if j.Status != CaptureJobStatusCapturing || j.StartedAt == nil {
		return false
	}
	return now.Sub(*j.StartedAt) > timeout
}
