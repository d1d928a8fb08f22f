// Package apperr define el tipo de error de dominio que cruza desde los
// servicios hasta la capa HTTP.
package apperr

import (
	"errors"
	"net/http"
)

// Kind clasifica un error de dominio. El conjunto es cerrado.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindBadRequest
	KindValidation
	KindTooManyRequests
)

// FieldError describe un campo invalido de la solicitud.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error es el error de dominio con tipo, mensaje para el usuario y causa.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message == "" {
		return e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is compara por tipo para permitir errors.Is(err, &Error{Kind: KindNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Conflict(message string) *Error     { return New(KindConflict, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }
func BadRequest(message string) *Error   { return New(KindBadRequest, message) }
func TooManyRequests(message string) *Error {
	return New(KindTooManyRequests, message)
}

func Internal(message string, cause error) *Error {
	return Wrap(KindInternal, message, cause)
}

func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "Validation Error", Fields: fields}
}

// As extrae el *Error de la cadena, si existe.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf devuelve el tipo del error; cualquier error desconocido es interno.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus traduce el tipo a un codigo HTTP.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindBadRequest:
		return http.StatusBadRequest
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// Status devuelve el texto de estado usado en el sobre de error.
func (k Kind) Status() string {
	switch k {
	case KindValidation:
		return "Validation Error"
	case KindConflict:
		return "Conflict"
	default:
		return http.StatusText(k.HTTPStatus())
	}
}

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad_request"
	case KindValidation:
		return "validation"
	case KindTooManyRequests:
		return "too_many_requests"
	case KindInternal:
		return "internal"
	}
	return "internal"
}
