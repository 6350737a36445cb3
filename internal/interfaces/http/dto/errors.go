package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidCostMethod is returned when a cost method outside the closed set is configured
	ErrCodeInvalidCostMethod = "ERR_VALIDATION_COST_METHOD"
	ErrCodeInvalidQuantity   = "ERR_VALIDATION_QUANTITY"
	ErrCodeInvalidCost       = "ERR_VALIDATION_COST"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
)

// Resource error codes
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeConflict      = "ERR_CONFLICT"
	// ErrCodeContention is returned when a batch lock could not be acquired in time; retry the whole quote and commit
	ErrCodeContention = "ERR_CONTENTION"
	// ErrCodeDuplicateCommit is returned when a consumption reference was already committed
	ErrCodeDuplicateCommit = "ERR_DUPLICATE_COMMIT"
	// ErrCodeDuplicateRequest is returned when an Idempotency-Key was already used
	ErrCodeDuplicateRequest = "ERR_DUPLICATE_REQUEST"
)

// Business rule error codes
const (
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeInvariantViolation is returned when a decrement would take a batch below zero
	ErrCodeInvariantViolation = "ERR_INVARIANT_VIOLATION"
	ErrCodeInsufficientStock  = "ERR_INSUFFICIENT_STOCK"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
)

// Request limits
const (
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:        http.StatusBadRequest,
	ErrCodeInvalidCostMethod: http.StatusBadRequest,
	ErrCodeInvalidQuantity:   http.StatusBadRequest,
	ErrCodeInvalidCost:       http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeAlreadyExists:    http.StatusConflict,
	ErrCodeConflict:         http.StatusConflict,
	ErrCodeContention:       http.StatusConflict,
	ErrCodeDuplicateCommit:  http.StatusConflict,
	ErrCodeDuplicateRequest: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodeInvariantViolation: http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:  http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
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
	"NOT_FOUND":            ErrCodeNotFound,
	"BATCH_NOT_FOUND":      ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"CONCURRENCY_CONFLICT": ErrCodeConflict,
	"CONTENTION":           ErrCodeContention,
	"DUPLICATE_COMMIT":     ErrCodeDuplicateCommit,
	"INVALID_STATE":        ErrCodeInvalidState,
	"INVARIANT_VIOLATION":  ErrCodeInvariantViolation,
	"INSUFFICIENT_STOCK":   ErrCodeInsufficientStock,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_SOURCE_TYPE":  ErrCodeInvalidInput,
	"INVALID_BATCH_NUMBER": ErrCodeInvalidInput,
	"INVALID_COST_METHOD":  ErrCodeInvalidCostMethod,
	"INVALID_QUANTITY":     ErrCodeInvalidQuantity,
	"INVALID_COST":         ErrCodeInvalidCost,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format or unknown are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
