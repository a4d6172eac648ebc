package api

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map these to HTTP status codes; business logic only
// ever deals in kinds.
type ErrorKind int

const (
	// KindValidation: malformed or out-of-range input, invalid enum value.
	KindValidation ErrorKind = iota + 1
	// KindNotFound: missing entity by id or code.
	KindNotFound
	// KindConflict: state-guard violation, operation not valid in the
	// current estado.
	KindConflict
	// KindForbidden: actor lacks the required role or ownership.
	KindForbidden
	// KindUnauthorized: missing or invalid credential.
	KindUnauthorized
	// KindDependency: an external collaborator is unreachable or erroring.
	KindDependency
	// KindCapacity: the generation ceiling or item pool is exhausted.
	KindCapacity
)

// Error is the domain error type. Detalles carries optional diagnostic fields
// surfaced verbatim in error responses (for example the offending current
// estado).
type Error struct {
	Kind     ErrorKind
	Mensaje  string
	Detalles map[string]any
	causa    error
}

func (e *Error) Error() string { return e.Mensaje }

func (e *Error) Unwrap() error { return e.causa }

// Con attaches a diagnostic field and returns the error for chaining.
func (e *Error) Con(clave string, valor any) *Error {
	if e.Detalles == nil {
		e.Detalles = map[string]any{}
	}
	e.Detalles[clave] = valor
	return e
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Mensaje: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func NotFoundf(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Conflictf(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

func Forbiddenf(format string, args ...any) *Error {
	return newError(KindForbidden, format, args...)
}

func Unauthorizedf(format string, args ...any) *Error {
	return newError(KindUnauthorized, format, args...)
}

func Capacityf(format string, args ...any) *Error {
	return newError(KindCapacity, format, args...)
}

// Dependency wraps a collaborator failure so the original error stays
// reachable through errors.Unwrap.
func Dependency(err error, format string, args ...any) *Error {
	e := newError(KindDependency, format, args...)
	e.causa = err
	return e
}

// KindOf extracts the domain kind from err, unwrapping as needed. Returns 0
// when err is not a domain error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// EsKind reports whether err is a domain error of the given kind.
func EsKind(err error, kind ErrorKind) bool { return KindOf(err) == kind }
