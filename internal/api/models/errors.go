package models

import "net/http"

// ErrorCode represents standard error codes
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrContention         ErrorCode = "CONTENTION"
	ErrInvariantViolation ErrorCode = "INVARIANT_VIOLATION"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
)

// APIError represents a structured error response
type APIError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Retryable bool                   `json:"retryable,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// HTTPError wraps an APIError with an HTTP status code
type HTTPError struct {
	StatusCode int
	Error      APIError
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, code ErrorCode, message string, details map[string]interface{}) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Error: APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// Common error constructors

func ErrBadRequest(message string, details map[string]interface{}) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, ErrInvalidRequest, message, details)
}

func ErrValidation(message string, details map[string]interface{}) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, ErrValidationFailed, message, details)
}

func ErrNotFoundError(kind, id string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, ErrNotFound,
		kind+" not found",
		map[string]interface{}{kind + "_id": id})
}

func ErrContentionError(assetID string) *HTTPError {
	httpErr := NewHTTPError(http.StatusConflict, ErrContention,
		"Asset is busy, retry the request",
		map[string]interface{}{"asset_id": assetID})
	httpErr.Error.Retryable = true
	return httpErr
}

func ErrInvariant(message string) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, ErrInvariantViolation, message, nil)
}

func ErrInternal(message string) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, ErrInternalError, message, nil)
}
