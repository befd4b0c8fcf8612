package errors

import (
	"errors"
	"fmt"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeNotFound        ErrCode = "NOT_FOUND"
	ErrCodeUpstream        ErrCode = "UPSTREAM_ERROR"
	ErrCodeSBOMUnavailable ErrCode = "SBOM_UNAVAILABLE"
	ErrCodeInternal        ErrCode = "INTERNAL_ERROR"
	ErrCodeBadRequest      ErrCode = "BAD_REQUEST"
)

// AppError represents an application error
type AppError struct {
	Code       ErrCode
	Message    string
	StatusCode int // upstream HTTP status, zero when not applicable
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewUpstreamError creates an error for a non-200 answer from the GitHub API
func NewUpstreamError(message string, statusCode int, err error) *AppError {
	return &AppError{
		Code:       ErrCodeUpstream,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// NewSBOMUnavailableError creates an error for a repository whose SBOM the API refused to serve.
// Message is the API error message.
func NewSBOMUnavailableError(message string, statusCode int, err error) *AppError {
	return &AppError{
		Code:       ErrCodeSBOMUnavailable,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
	}
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsUpstream checks if the error is an upstream API error
func IsUpstream(err error) bool {
	return hasCode(err, ErrCodeUpstream)
}

// IsSBOMUnavailable checks if the error is a refused SBOM request
func IsSBOMUnavailable(err error) bool {
	return hasCode(err, ErrCodeSBOMUnavailable)
}

func hasCode(err error, code ErrCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
