package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("code=%d, message=%s, details=%s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("code=%d, message=%s", e.Code, e.Message)
}

// Common errors
var (
	ErrNotFound       = &AppError{Code: http.StatusNotFound, Message: "Resource not found"}
	ErrUnauthorized   = &AppError{Code: http.StatusUnauthorized, Message: "Unauthorized"}
	ErrBadRequest     = &AppError{Code: http.StatusBadRequest, Message: "Bad request"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Message: "Internal server error"}
	ErrUnavailable    = &AppError{Code: http.StatusServiceUnavailable, Message: "FileFlows is unavailable"}
	ErrUnknownCommand = &AppError{Code: http.StatusNotFound, Message: "Unknown command"}
)

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// WithDetails adds details to an error
func WithDetails(err *AppError, details string) *AppError {
	return &AppError{
		Code:    err.Code,
		Message: err.Message,
		Details: details,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetStatusCode returns the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// FromFileFlows maps an error returned by the FileFlows client onto the
// HTTP surface. Every upstream failure is a 502; an invalid command is the
// caller's fault.
func FromFileFlows(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	if stderrors.Is(err, fileflows.ErrInvalidCommand) {
		return WithDetails(ErrBadRequest, err.Error())
	}

	switch fileflows.KindOf(err) {
	case fileflows.KindConnection:
		return &AppError{Code: http.StatusBadGateway, Message: "FileFlows is unreachable", Details: err.Error()}
	case fileflows.KindAuth:
		return &AppError{Code: http.StatusBadGateway, Message: "FileFlows rejected the credentials", Details: err.Error()}
	case fileflows.KindProtocol:
		return &AppError{Code: http.StatusBadGateway, Message: "FileFlows returned an unexpected response", Details: err.Error()}
	}
	return WithDetails(ErrInternalServer, err.Error())
}
