package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage is used when a Redis key does not exist.
	RedisNotFoundMessage = "redis key not found"
	// RemoteErrorMessage describes failures of a backend collaborator call.
	RemoteErrorMessage = "remote collaborator call failed"
	// ValidationErrorMessage describes rejected input.
	ValidationErrorMessage = "invalid request"
)

// Sentinel kinds, matched through errors.Is on any AppError chain.
var (
	ErrUnknownTool     = errors.New("unknown tool")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrRemote          = errors.New("remote collaborator failure")
	ErrSchemaViolation = errors.New("structured output schema violation")
	ErrNotFound        = errors.New("not found")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// WrapRemote marks a failed collaborator call. A zero status means the
// request never produced a response (transport failure).
func WrapRemote(op string, status int, cause error) *AppError {
	if status == 0 {
		status = http.StatusBadGateway
	}
	return New(fmt.Errorf("%w: %s: %v", ErrRemote, op, cause), status, RemoteErrorMessage)
}

// Invalid marks caller supplied input as rejected.
func Invalid(format string, args ...any) *AppError {
	return New(fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...)), http.StatusBadRequest, ValidationErrorMessage)
}

// NotFound reports a missing entity.
func NotFound(what string) *AppError {
	return New(fmt.Errorf("%w: %s", ErrNotFound, what), http.StatusNotFound, what+" not found")
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}
