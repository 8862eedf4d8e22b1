// Package errors carries a stable error code alongside the cause so the HTTP
// layer can pick a status and a safe public message without string matching.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code surfaces over HTTP. When DetailsAllowed is false the
// caller sees PublicMessage and never the error's own message.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

func clientFault(status int, msg string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: msg, DetailsAllowed: details}
}

var serverFault = Metadata{
	HTTPStatus:    http.StatusInternalServerError,
	Retryable:     true,
	PublicMessage: "internal server error",
}

// Bad request messages are written for the caller ("insufficient stock for X"),
// so their public message is only a fallback.
var catalogue = map[Code]Metadata{
	CodeValidation:   clientFault(http.StatusBadRequest, "validation failed", true),
	CodeBadRequest:   clientFault(http.StatusBadRequest, "request rejected", true),
	CodeUnauthorized: clientFault(http.StatusUnauthorized, "authentication required", false),
	CodeForbidden:    clientFault(http.StatusForbidden, "access denied", false),
	CodeNotFound:     clientFault(http.StatusNotFound, "resource not found", false),
	CodeConflict:     clientFault(http.StatusConflict, "conflict detected", false),
	CodeIdempotency:  clientFault(http.StatusConflict, "idempotency key reused", true),
	CodeRateLimit:    clientFault(http.StatusTooManyRequests, "rate limit exceeded", false),
	CodeInternal:     serverFault,
	CodeDependency:   serverFault,
}

// MetadataFor treats unknown codes as internal errors.
func MetadataFor(code Code) Metadata {
	if meta, ok := catalogue[code]; ok {
		return meta
	}
	return serverFault
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to err. A nil err yields a plain New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// WithDetails sets the structured payload exposed when the code allows it.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return string(e.code) + ": " + e.message
	default:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code of the first typed error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	return As(err).Code()
}
