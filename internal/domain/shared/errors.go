package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped copies compare equal to the sentinels
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared across the label pipeline
const (
	CodeNotFound              = "NOT_FOUND"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeInvalidState          = "INVALID_STATE"
	CodeMissingDependency     = "MISSING_DEPENDENCY"
	CodeInvalidBarcodePayload = "INVALID_BARCODE_PAYLOAD"
	CodeBarcodeDrawFailed     = "BARCODE_DRAW_FAILED"
	CodeRasterizationFailed   = "RASTERIZATION_FAILED"
	CodeJobInProgress         = "JOB_IN_PROGRESS"
	CodeSessionUnavailable    = "PRINT_SESSION_UNAVAILABLE"
)

// Common domain errors
var (
	ErrNotFound           = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput       = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState       = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrMissingDependency  = NewDomainError(CodeMissingDependency, "A required component is not available")
	ErrJobInProgress      = NewDomainError(CodeJobInProgress, "Another label job is already running, wait for it to finish")
	ErrSessionUnavailable = NewDomainError(CodeSessionUnavailable, "The print window could not be opened, allow pop-ups and try again")
)

// CodeOf returns the domain error code carried by err, or an empty string
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
