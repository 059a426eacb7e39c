package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies a failure for the HTTP layer
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeProcessing ErrorType = "processing"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeCanceled   ErrorType = "canceled"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeTooLarge   ErrorType = "too_large"
	ErrorTypeInternal   ErrorType = "internal"
)

var statusByType = map[ErrorType]int{
	ErrorTypeValidation: http.StatusBadRequest,
	ErrorTypeNetwork:    http.StatusBadGateway,
	ErrorTypeProcessing: http.StatusUnprocessableEntity,
	ErrorTypeTimeout:    http.StatusGatewayTimeout,
	ErrorTypeCanceled:   http.StatusRequestTimeout,
	ErrorTypeNotFound:   http.StatusNotFound,
	ErrorTypeTooLarge:   http.StatusRequestEntityTooLarge,
	ErrorTypeInternal:   http.StatusInternalServerError,
}

// AppError is a failure surfaced to API callers. Cause keeps the original
// error reachable through errors.Is / errors.As.
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails returns a copy of the error carrying extra detail text
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// New builds an AppError whose status code follows its type
func New(t ErrorType, message string, cause error) *AppError {
	status, ok := statusByType[t]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

func NewValidationError(message string, cause error) *AppError {
	return New(ErrorTypeValidation, message, cause)
}

func NewNetworkError(message string, cause error) *AppError {
	return New(ErrorTypeNetwork, message, cause)
}

func NewProcessingError(message string, cause error) *AppError {
	return New(ErrorTypeProcessing, message, cause)
}

func NewTimeoutError(message string, cause error) *AppError {
	return New(ErrorTypeTimeout, message, cause)
}

func NewInternalError(message string, cause error) *AppError {
	return New(ErrorTypeInternal, message, cause)
}

func NewNotFoundError(message string, cause error) *AppError {
	return New(ErrorTypeNotFound, message, cause)
}

// Classify returns the AppError in err's chain, or derives one from
// context and request-body errors. Anything else is internal.
func Classify(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return New(ErrorTypeTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), err)
	case errors.Is(err, context.DeadlineExceeded):
		return New(ErrorTypeTimeout, "deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return New(ErrorTypeCanceled, "request canceled", err)
	default:
		return New(ErrorTypeInternal, "internal error", err)
	}
}

// IsType checks if the error chain contains an AppError of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code for err
func GetStatusCode(err error) int {
	return Classify(err).StatusCode
}
