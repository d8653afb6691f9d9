package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of an error
type ErrorType uint

const (
	// ErrorTypeUnknown represents an unknown error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeInvalidArgument represents a missing or malformed input
	ErrorTypeInvalidArgument
	// ErrorTypeConfiguration represents an input combination the engine refuses to price
	ErrorTypeConfiguration
	// ErrorTypeNotFound represents a failed lookup
	ErrorTypeNotFound
	// ErrorTypeAlreadyExists represents an already exists error
	ErrorTypeAlreadyExists
	// ErrorTypeUnavailable represents a downstream dependency that cannot be reached
	ErrorTypeUnavailable
	// ErrorTypeTimeout represents a timeout error
	ErrorTypeTimeout
	// ErrorTypeInternal represents an internal error
	ErrorTypeInternal
)

// String returns the lower-case name used in logs and metric labels
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeInvalidArgument:
		return "invalid_argument"
	case ErrorTypeConfiguration:
		return "configuration"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeAlreadyExists:
		return "already_exists"
	case ErrorTypeUnavailable:
		return "unavailable"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap wraps an error with a message, keeping the type of the wrapped error
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:    TypeOf(err),
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithType returns a copy of err carrying the given type
func WithType(err error, errType ErrorType) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if As(err, &appErr) {
		return &AppError{
			Type:    errType,
			Message: appErr.Message,
			Err:     appErr.Err,
		}
	}
	return &AppError{
		Type:    errType,
		Message: err.Error(),
		Err:     err,
	}
}

// TypeOf returns the type of the first AppError in err's chain
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err carries the given type. Errors without an
// AppError in their chain carry no type, so asking for ErrorTypeUnknown is
// always false.
func IsType(err error, errType ErrorType) bool {
	return err != nil && errType != ErrorTypeUnknown && TypeOf(err) == errType
}

// Is reports whether err or any of the errors in its chain is target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// InvalidArgument creates a new InvalidArgument error
func InvalidArgument(message string) error {
	return &AppError{
		Type:    ErrorTypeInvalidArgument,
		Message: message,
	}
}

// InvalidArgumentf creates a new InvalidArgument error with a formatted message
func InvalidArgumentf(format string, args ...interface{}) error {
	return InvalidArgument(fmt.Sprintf(format, args...))
}

// Configuration creates a new Configuration error
func Configuration(message string) error {
	return &AppError{
		Type:    ErrorTypeConfiguration,
		Message: message,
	}
}

// Configurationf creates a new Configuration error with a formatted message
func Configurationf(format string, args ...interface{}) error {
	return Configuration(fmt.Sprintf(format, args...))
}

// NotFound creates a new NotFound error
func NotFound(message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// AlreadyExists creates a new AlreadyExists error
func AlreadyExists(message string) error {
	return &AppError{
		Type:    ErrorTypeAlreadyExists,
		Message: message,
	}
}

// Unavailable creates a new Unavailable error
func Unavailable(message string) error {
	return &AppError{
		Type:    ErrorTypeUnavailable,
		Message: message,
	}
}

// Timeout creates a new Timeout error
func Timeout(message string) error {
	return &AppError{
		Type:    ErrorTypeTimeout,
		Message: message,
	}
}

// Internal creates a new Internal error
func Internal(message string) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
	}
}

// ErrExpired marks measures that are undefined once protection has ended
var ErrExpired = errors.New("cds already expired")
