package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeValidation indicates a malformed or incomplete analysis submission.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeNormalization indicates photometry that cannot be brought into canonical form.
	ErrCodeNormalization ErrorCode = "normalization"
	// ErrCodeFit indicates the external fitting routine produced no usable output.
	ErrCodeFit ErrorCode = "fit"
	// ErrCodeDelivery indicates the result webhook could not be reached.
	ErrCodeDelivery ErrorCode = "delivery"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeUnavailable indicates the service is not accepting work.
	ErrCodeUnavailable ErrorCode = "unavailable"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field names the offending request key for validation errors (optional)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with the given code.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf(format, args...))
}

// ValidationField creates a new Validation error for a specific request key.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf(format, args...))
}

// Unavailable creates a new Unavailable error.
func Unavailable(message string) *AppError {
	return New(ErrCodeUnavailable, message)
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return New(ErrCodeInternal, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsNormalization checks if an error is a Normalization error.
func IsNormalization(err error) bool {
	return isCode(err, ErrCodeNormalization)
}

// IsFit checks if an error is a Fit error.
func IsFit(err error) bool {
	return isCode(err, ErrCodeFit)
}

// IsDelivery checks if an error is a Delivery error.
func IsDelivery(err error) bool {
	return isCode(err, ErrCodeDelivery)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsUnavailable checks if an error is an Unavailable error.
func IsUnavailable(err error) bool {
	return isCode(err, ErrCodeUnavailable)
}

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool {
	return isCode(err, ErrCodeTimeout)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
