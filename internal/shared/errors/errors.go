// Package errors defines the application error taxonomy shared by use cases
// and the HTTP layer. Each AppError carries the HTTP status it maps to.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation            ErrorType = "validation_error"
	ErrorTypeNotFound              ErrorType = "not_found"
	ErrorTypeConflict              ErrorType = "conflict"
	ErrorTypeUnauthorized          ErrorType = "unauthorized"
	ErrorTypeForbidden             ErrorType = "forbidden"
	ErrorTypeInternal              ErrorType = "internal_error"
	ErrorTypeBadRequest            ErrorType = "bad_request"
	ErrorTypeBillingProvider       ErrorType = "billing_provider_error"
	ErrorTypePersistence           ErrorType = "persistence_error"
	ErrorTypeSignatureVerification ErrorType = "signature_verification_error"
)

var statusByType = map[ErrorType]int{
	ErrorTypeValidation:            http.StatusBadRequest,
	ErrorTypeNotFound:              http.StatusNotFound,
	ErrorTypeConflict:              http.StatusConflict,
	ErrorTypeUnauthorized:          http.StatusUnauthorized,
	ErrorTypeForbidden:             http.StatusForbidden,
	ErrorTypeInternal:              http.StatusInternalServerError,
	ErrorTypeBadRequest:            http.StatusBadRequest,
	ErrorTypeBillingProvider:       http.StatusBadGateway,
	ErrorTypePersistence:           http.StatusInternalServerError,
	ErrorTypeSignatureVerification: http.StatusBadRequest,
}

// AppError represents an application error with additional context
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`

	cause error
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying provider or driver error, if any.
func (e *AppError) Unwrap() error {
	return e.cause
}

func newAppError(t ErrorType, message string, details []string) *AppError {
	e := &AppError{Type: t, Message: message, Code: statusByType[t]}
	if len(details) > 0 {
		e.Details = details[0]
	}
	return e
}

func NewValidationError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeValidation, message, details)
}

func NewNotFoundError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeNotFound, message, details)
}

func NewConflictError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeConflict, message, details)
}

func NewUnauthorizedError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeUnauthorized, message, details)
}

func NewForbiddenError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeForbidden, message, details)
}

func NewInternalError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeInternal, message, details)
}

func NewBadRequestError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeBadRequest, message, details)
}

// NewBillingProviderError wraps a failed or unreachable billing API call.
func NewBillingProviderError(message string, cause error) *AppError {
	e := newAppError(ErrorTypeBillingProvider, message, nil)
	e.cause = cause
	return e
}

// NewPersistenceError wraps a failed datastore read or write.
func NewPersistenceError(message string, cause error) *AppError {
	e := newAppError(ErrorTypePersistence, message, nil)
	e.cause = cause
	return e
}

// NewSignatureVerificationError marks a webhook payload whose signature did
// not verify against the configured secret.
func NewSignatureVerificationError(message string, cause error) *AppError {
	e := newAppError(ErrorTypeSignatureVerification, message, nil)
	e.cause = cause
	return e
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func IsAppError(err error) bool {
	return GetAppError(err) != nil
}

func isType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

func IsNotFoundError(err error) bool   { return isType(err, ErrorTypeNotFound) }
func IsConflictError(err error) bool   { return isType(err, ErrorTypeConflict) }
func IsValidationError(err error) bool { return isType(err, ErrorTypeValidation) }

func IsBillingProviderError(err error) bool { return isType(err, ErrorTypeBillingProvider) }
func IsPersistenceError(err error) bool     { return isType(err, ErrorTypePersistence) }

func IsSignatureVerificationError(err error) bool {
	return isType(err, ErrorTypeSignatureVerification)
}

// IsDuplicateError reports whether a driver error is a unique-key violation
// (Postgres, SQLite).
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
