package domain

import "errors"

// Common domain errors
var (
	// Site errors
	ErrSiteNotFound   = errors.New("site not found")
	ErrSiteInactive   = errors.New("site is inactive")
	ErrInvalidDomain  = errors.New("invalid site domain")
	ErrDuplicateSite  = errors.New("site already exists")
	ErrInvalidSiteURL = errors.New("invalid site URL")

	// Page errors
	ErrPageNotFound     = errors.New("page not found")
	ErrPageInactive     = errors.New("page is inactive")
	ErrInvalidPageURL   = errors.New("invalid page URL")
	ErrInvalidViewport  = errors.New("invalid viewport width")
	ErrInvalidInterval  = errors.New("invalid screenshot interval")
	ErrDuplicatePageURL = errors.New("page URL already exists for site")

	// Screenshot errors
	ErrScreenshotNotFound = errors.New("screenshot not found")
	ErrScreenshotMissing  = errors.New("screenshot file missing from storage")
	ErrEmptyScreenshot    = errors.New("screenshot produced no data")

	// Capture job errors
	ErrJobNotFound        = errors.New("capture job not found")
	ErrJobConflict        = errors.New("a capture job is already pending or running for this page")
	ErrInvalidJobStatus   = errors.New("invalid capture job status transition")
	ErrJobAlreadyFinished = errors.New("capture job already finished")

	// Browser errors
	ErrPoolClosed      = errors.New("browser pool is closed")
	ErrAcquireTimeout  = errors.New("timed out waiting for a browser from the pool")
	ErrBrowserCrashed  = errors.New("browser instance crashed")
	ErrNavigationError = errors.New("page navigation failed")

	// Instruction and test errors
	ErrInstructionNotFound = errors.New("instruction script not found")
	ErrTestNotFound        = errors.New("test script not found")
	ErrScriptInvalid       = errors.New("script failed validation")
	ErrUnknownActionType   = errors.New("unknown action type")

	// Generation errors
	ErrGenerationUnavailable = errors.New("script generation service unavailable")
	ErrGenerationFailed      = errors.New("script generation failed")

	// Comparison errors
	ErrComparisonFailed   = errors.New("screenshot comparison failed")
	ErrDecodeImage        = errors.New("failed to decode screenshot image")
	ErrSameScreenshot     = errors.New("cannot compare a screenshot with itself")
	ErrDifferentPageOwner = errors.New("screenshots belong to different pages")

	// Settings errors
	ErrSettingsNotFound = errors.New("user settings not found")

	// Validation errors
	ErrInvalidID    = errors.New("invalid ID format")
	ErrEmptyContent = errors.New("content cannot be empty")
	ErrInvalidState = errors.New("invalid state transition")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
)

// DomainError wraps a domain error with additional context
type DomainError struct {
	Err     error
	Message string
	Code    string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewDomainError(err error, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
	}
}

func NewDomainErrorWithCode(err error, message, code string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}
