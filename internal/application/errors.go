package application

import (
	"errors"
	"net/http"
)

// Kind classifies an operation failure. The HTTP boundary maps each kind to
// exactly one status code; nothing else about the failure leaks outward.
type Kind int

const (
	KindValidation     Kind = iota + 1 // 400 - caller input malformed or missing
	KindConflict                       // 409 - uniqueness violation
	KindNotFound                       // 404
	KindAuthentication                 // 401 - bad credentials or bad/stale/expired token
	KindUpload                         // 400 - media host failure
	KindInternal                       // 500
)

// Error is the single error type the application layer surfaces.
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying cause, never shown to callers
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

func invalid(msg string) *Error      { return &Error{Kind: KindValidation, Message: msg} }
func conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }
func notFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func unauthorized(msg string) *Error { return &Error{Kind: KindAuthentication, Message: msg} }
func uploadFailed(msg string) *Error { return &Error{Kind: KindUpload, Message: msg} }
func internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// StatusOf translates an error into an HTTP status code. Unknown errors are
// treated as internal.
func StatusOf(err error) int {
	var ae *Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case KindValidation, KindUpload:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
