package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeNotStarted   = "RENDERER_NOT_STARTED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeTimeout      = "RENDER_TIMEOUT"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeConversion   = "CONTENT_CONVERSION_FAILED"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RenderError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type RenderError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// NewRenderError creates a new RenderError.
func NewRenderError(code, message string, err error) *RenderError {
	return &RenderError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *RenderError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
