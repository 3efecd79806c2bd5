package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a DomainError independently of its transport mapping.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindTransient    ErrorKind = "transient_failure"
	KindValidation   ErrorKind = "validation"
	KindUnauthorized ErrorKind = "unauthorized"
	KindInternal     ErrorKind = "internal"
)

// DomainError standardizes application errors.
type DomainError struct {
	Kind       ErrorKind
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(kind ErrorKind, code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(KindValidation, "VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Kind:       KindNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(KindUnauthorized, "UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(KindConflict, "CONFLICT", message, http.StatusConflict, details)
}

// NewTransient marks a failure of an out-of-process dependency. Callers may retry;
// it must never be read as a negative authorization decision.
func NewTransient(operation string, err error) error {
	return &DomainError{
		Kind:       KindTransient,
		Code:       "DEPENDENCY_UNAVAILABLE",
		Message:    operation + " failed",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewTimeout is a transient failure caused by an exceeded per-call deadline.
func NewTimeout(operation string, err error) error {
	return &DomainError{
		Kind:       KindTransient,
		Code:       "TIMEOUT",
		Message:    operation + " timed out",
		HTTPStatus: http.StatusGatewayTimeout,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Kind:       KindInternal,
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// FromContext converts context errors into transient failures, leaving other errors wrapped
// as DEPENDENCY_UNAVAILABLE.
func FromContext(operation string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeout(operation, err)
	}
	return NewTransient(operation, err)
}

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

func IsConflict(err error) bool {
	return err != nil && KindOf(err) == KindConflict
}

func IsTransient(err error) bool {
	return err != nil && KindOf(err) == KindTransient
}

// IsTimeout reports whether err is a transient failure caused by a deadline.
func IsTimeout(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == "TIMEOUT"
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeout("request", err).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}
