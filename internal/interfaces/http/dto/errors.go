package dto

import (
	"net/http"

	"github.com/erp/labels/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Resource error codes
const (
	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeInvalidState = "ERR_INVALID_STATE"
)

// Label job error codes
const (
	// ErrCodeJobInProgress is returned while another label job runs
	ErrCodeJobInProgress = "ERR_JOB_IN_PROGRESS"
	// ErrCodeMissingDependency is returned when a component is not configured
	ErrCodeMissingDependency = "ERR_MISSING_DEPENDENCY"
	// ErrCodeSessionUnavailable is returned when the print session cannot be opened
	ErrCodeSessionUnavailable = "ERR_PRINT_SESSION_UNAVAILABLE"
	ErrCodeInvalidBarcode     = "ERR_INVALID_BARCODE_PAYLOAD"
	ErrCodeBarcodeDrawFailed  = "ERR_BARCODE_DRAW_FAILED"
	ErrCodeRasterization      = "ERR_RASTERIZATION_FAILED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeInvalidState: http.StatusUnprocessableEntity,

	ErrCodeJobInProgress:      http.StatusConflict,
	ErrCodeMissingDependency:  http.StatusServiceUnavailable,
	ErrCodeSessionUnavailable: http.StatusServiceUnavailable,
	ErrCodeInvalidBarcode:     http.StatusUnprocessableEntity,
	ErrCodeBarcodeDrawFailed:  http.StatusUnprocessableEntity,
	ErrCodeRasterization:      http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeNotFound:              ErrCodeNotFound,
	shared.CodeInvalidInput:          ErrCodeInvalidInput,
	shared.CodeInvalidState:          ErrCodeInvalidState,
	shared.CodeMissingDependency:     ErrCodeMissingDependency,
	shared.CodeInvalidBarcodePayload: ErrCodeInvalidBarcode,
	shared.CodeBarcodeDrawFailed:     ErrCodeBarcodeDrawFailed,
	shared.CodeRasterizationFailed:   ErrCodeRasterization,
	shared.CodeJobInProgress:         ErrCodeJobInProgress,
	shared.CodeSessionUnavailable:    ErrCodeSessionUnavailable,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format or unknown pass through.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
