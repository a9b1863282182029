// Package errors carries the typed error codes every layer returns and the
// table that maps them onto HTTP statuses and callable RPC statuses.
package errors

import (
	stdErrors "errors"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code surfaces over HTTP and the callable RPC surface.
type Metadata struct {
	HTTPStatus     int
	RPCStatus      string
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	noDetails   = false
	withDetails = true
	final       = false
	retryable   = true
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, "invalid-argument", final, "validation failed", withDetails},
	CodeUnauthorized:  {http.StatusUnauthorized, "unauthenticated", final, "authentication required", noDetails},
	CodeForbidden:     {http.StatusForbidden, "permission-denied", final, "access denied", noDetails},
	CodeNotFound:      {http.StatusNotFound, "not-found", final, "resource not found", noDetails},
	CodeConflict:      {http.StatusConflict, "aborted", final, "conflict detected", noDetails},
	CodeStateConflict: {http.StatusUnprocessableEntity, "failed-precondition", final, "state transition disallowed", withDetails},
	CodeIdempotency:   {http.StatusConflict, "already-exists", final, "idempotency key reused", withDetails},
	CodeRateLimit:     {http.StatusTooManyRequests, "resource-exhausted", final, "rate limit exceeded", noDetails},
	CodeInternal:      {http.StatusInternalServerError, "internal", retryable, "internal server error", noDetails},
	CodeDependency:    {http.StatusServiceUnavailable, "unavailable", retryable, "dependency unavailable", withDetails},
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	meta, ok := metadataByCode[code]
	if !ok {
		return metadataByCode[CodeInternal]
	}
	return meta
}

// Error is a coded error with an optional cause and client-visible details.
// All methods accept a nil receiver.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
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

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	return As(err).Code()
}

func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
