// Package apperrors implements the error taxonomy shared by the storage,
// shadow, certs and processor layers, whose fallible operations return an
// *AppError carrying one of the Kind values below (a raw bbolt write error
// can still pass through the store unwrapped). The mqttbroker, logging and
// timeseries packages return plain errors.
package apperrors

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies an AppError for logging and HTTP status mapping.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindMismatch      Kind = "mismatch"
	KindInvalidKey    Kind = "invalid_key"
	KindValueCodec    Kind = "value_codec"
	KindTxnExhausted  Kind = "txn_exhausted"
	KindKv            Kind = "kv_error"
	KindSerialization Kind = "serialization"
	KindConnection    Kind = "connection"
)

// StatusCode maps a Kind to the HTTP status taxonomy from the spec.
func (k Kind) StatusCode() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindMismatch:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the concrete error type returned across package boundaries.
type AppError struct {
	Kind    Kind
	Message string
	Details string
	Cause   error
}

func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *AppError {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap attaches kind/message context to an underlying error, preserving it
// as Cause (returned by Unwrap) so errors.Is/errors.As keep working.
// pkg/errors.Cause stops at the *AppError, which has no Cause method.
func Wrap(cause error, kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message, Cause: errors.WithStack(cause)}
}

func Wrapf(cause error, kind Kind, format string, args ...interface{}) *AppError {
	return Wrap(cause, kind, fmt.Sprintf(format, args...))
}

func (e *AppError) Error() string {
	s := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Details != "" {
		s += fmt.Sprintf(" (%s)", e.Details)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(": %s", e.Cause)
	}
	return s
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails sets free-form detail on the error in place, replacing any
// earlier detail, and returns it so callers can chain it at the
// construction site.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithDetailsf(format string, args ...interface{}) *AppError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// Is reports whether err is an *AppError of the given kind.
func Is(err error, kind Kind) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}
