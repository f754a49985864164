package errors

import (
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Status  int // HTTP status reported by the backend, 0 when not applicable
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Status:  appErr.Status,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeNetworkError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// GetStatus returns the backend HTTP status carried by the error, 0 if none
func GetStatus(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Status
	}
	return 0
}

// IsSessionExpired reports whether the error marks an expired session (401)
func IsSessionExpired(err error) bool {
	return GetCode(err) == CodeSessionExpired
}

// Predefined error codes
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeValidationError = "VALIDATION_ERROR"
	CodeAuthError       = "AUTH_ERROR"
	CodeSessionExpired  = "SESSION_EXPIRED"
	CodeNetworkError    = "NETWORK_ERROR"
	CodeServerError     = "SERVER_ERROR"
	CodeDataShape       = "DATA_SHAPE_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeDatabaseError   = "DATABASE_ERROR"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func AuthError(message string) *AppError {
	return New(CodeAuthError, message)
}

// SessionExpired marks a 401 on any protected call: the session must be
// torn down and the user sent back to login.
func SessionExpired() *AppError {
	return &AppError{
		Code:    CodeSessionExpired,
		Message: "Session expired. Please login again.",
		Status:  401,
	}
}

func NetworkError(cause error) *AppError {
	return &AppError{
		Code:    CodeNetworkError,
		Message: "backend unreachable",
		Cause:   cause,
	}
}

// ServerError surfaces the backend's own message when it sent one,
// otherwise the caller's fallback string.
func ServerError(status int, message, fallback string) *AppError {
	if message == "" {
		message = fallback
	}
	return &AppError{
		Code:    CodeServerError,
		Message: message,
		Status:  status,
	}
}

func DataShape(message string) *AppError {
	return New(CodeDataShape, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}
