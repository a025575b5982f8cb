package models

import (
	"fmt"
)

// CaptureJobTransition represents a state transition
type CaptureJobTransition struct {
	From CaptureJobStatus
	To   CaptureJobStatus
}

// validJobTransitions defines the allowed job state machine:
// pending → capturing → {completed, failed}. A pending job may also be
// failed directly when its page disappears before pickup.
var validJobTransitions = map[CaptureJobTransition]bool{
	{CaptureJobStatusPending, CaptureJobStatusCapturing}: true,
	{CaptureJobStatusPending, CaptureJobStatusFailed}:    true,

	{CaptureJobStatusCapturing, CaptureJobStatusCompleted}: true,
	{CaptureJobStatusCapturing, CaptureJobStatusFailed}:    true,

	// completed and failed are terminal
}

// ValidateJobTransition checks a transition and returns an error if invalid
func ValidateJobTransition(from, to CaptureJobStatus) error {
	if from == to {
		return nil
	}
	if !validJobTransitions[CaptureJobTransition{From: from, To: to}] {
		return NewInvalidJobTransitionError(from, to)
	}
	return nil
}

// IsValidJobTransition checks if a transition between two states is valid
func IsValidJobTransition(from, to CaptureJobStatus) bool {
	return ValidateJobTransition(from, to) == nil
}

// InvalidJobTransitionError represents an error for invalid job transitions
type InvalidJobTransitionError struct {
	From    CaptureJobStatus
	To      CaptureJobStatus
	Message string
}

func (e *InvalidJobTransitionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("invalid capture job transition from '%s' to '%s'", e.From, e.To)
}

func NewInvalidJobTransitionError(from, to CaptureJobStatus) *InvalidJobTransitionError {
	message := fmt.Sprintf("invalid capture job transition from '%s' to '%s'", from, to)
	if from == CaptureJobStatusCompleted || from == CaptureJobStatusFailed {
		message = fmt.Sprintf("cannot transition from terminal state '%s'", from)
	}
	return &InvalidJobTransitionError{
		From:    from,
		To:      to,
		Message: message,
	}
}
