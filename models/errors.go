package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeInternal     = "INTERNAL_ERROR"

	// Browser session codes.
	ErrCodeSessionFailed   = "SESSION_FAILED"
	ErrCodeNavigation      = "NAVIGATION_FAILED"
	ErrCodeSelectorTimeout = "SELECTOR_TIMEOUT"
	ErrCodeTimeout         = "ANALYZE_TIMEOUT"

	// Inference codes.
	ErrCodeLLMFailure     = "LLM_FAILURE"
	ErrCodeLLMAuthFailure = "LLM_AUTH_FAILURE"
	ErrCodeLLMRateLimited = "LLM_RATE_LIMITED"
)

// FieldError names a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// AnalyzeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
// Fields is populated only for validation errors.
type AnalyzeError struct {
	Code    string
	Message string
	Fields  []FieldError
	Err     error // wrapped original error
}

func (e *AnalyzeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AnalyzeError) Unwrap() error {
	return e.Err
}

// NewAnalyzeError creates a new AnalyzeError.
func NewAnalyzeError(code, message string, err error) *AnalyzeError {
	return &AnalyzeError{Code: code, Message: message, Err: err}
}

// NewValidationError creates an AnalyzeError carrying field-level detail.
func NewValidationError(fields []FieldError) *AnalyzeError {
	return &AnalyzeError{
		Code:    ErrCodeInvalidInput,
		Message: "request validation failed",
		Fields:  fields,
	}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *AnalyzeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message, Details: e.Fields}
}
