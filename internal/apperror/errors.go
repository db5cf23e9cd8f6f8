// Package apperror provides domain-specific error types for the media
// service. These errors carry an HTTP status code and a user-safe message.
// The Echo error handler maps them to JSON responses automatically.
//
// NEVER return raw database, filesystem, or decoder errors to the client.
// Always wrap them in an apperror type.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the base error type for all domain errors. It carries an
// HTTP status code, a machine-readable error type, and a human-readable
// message safe to show to the client.
type AppError struct {
	// Code is the HTTP status code (e.g., 404, 400, 500).
	Code int `json:"-"`

	// Type is a machine-readable error classifier (e.g., "not_found").
	Type string `json:"type"`

	// Message is a short reason string safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed to client.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Error type identifiers.
const (
	TypeValidation = "validation_error"
	TypeNotFound   = "not_found"
	TypeProcessing = "processing_error"
	TypeStorage    = "storage_error"
	TypeInternal   = "internal_error"
	TypeBadRequest = "bad_request"
)

// --- Constructors ---

// NewNotFound creates a 404 Not Found error. Callers include the id of the
// missing product or record in the message.
func NewNotFound(message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    TypeNotFound,
		Message: message,
	}
}

// NewBadRequest creates a 400 Bad Request error for malformed requests
// (unknown product family, unparseable ids).
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    TypeBadRequest,
		Message: message,
	}
}

// NewValidation creates a 400 error for a rejected upload. The message names
// the offending rule.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    TypeValidation,
		Message: message,
	}
}

// NewProcessing creates a 422 error for image decode/encode failures. The
// client message carries the decoder's error class and message.
func NewProcessing(err error) *AppError {
	return &AppError{
		Code:     http.StatusUnprocessableEntity,
		Type:     TypeProcessing,
		Message:  fmt.Sprintf("error al procesar la imagen: %T: %v", rootCause(err), err),
		Internal: err,
	}
}

// rootCause walks the wrap chain down to the innermost error.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// NewStorage creates a 500 error for filesystem write failures. Derivatives
// written before the failure stay on disk as orphans.
func NewStorage(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     TypeStorage,
		Message:  "error al guardar archivos",
		Internal: err,
	}
}

// NewInternal creates a 500 Internal Server Error. The real error is stored
// in Internal for logging but the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     TypeInternal,
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// SafeMessage returns the client-safe error message from an error. For any
// error that is not an AppError, returns a generic message.
func SafeMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "an unexpected error occurred"
}

// SafeCode returns the HTTP status code from an AppError, or 500 for
// any other error type.
func SafeCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// Is reports whether err is an AppError of the given type.
func Is(err error, typ string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == typ
}
