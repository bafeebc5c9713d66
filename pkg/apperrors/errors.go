package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents a structured application error
type AppError struct {
	Code       string      `json:"code"`              // Machine-readable error code
	Message    string      `json:"error"`             // Human-readable message
	Details    interface{} `json:"details,omitempty"` // Optional payload (e.g. partial results)
	HTTPStatus int         `json:"-"`
	Err        error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails attaches a payload rendered under "details".
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// --- Error constructors ---

func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

func NewBadRequest(code, message string) *AppError {
	return New(http.StatusBadRequest, code, message)
}

func NewUnauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func NewForbidden(message string) *AppError {
	return New(http.StatusForbidden, ErrCodeInsufficientPermissions, message)
}

func NewNotFound(code, message string) *AppError {
	return New(http.StatusNotFound, code, message)
}

func NewTooManyRequests(message string) *AppError {
	return New(http.StatusTooManyRequests, ErrCodeRateLimitExceeded, message)
}

// NewInternal creates a 500 with an opaque message; err is only logged.
func NewInternal(code, message string, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Err:        err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// AsAppError unwraps err looking for an AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
