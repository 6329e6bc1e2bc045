package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an application error
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindUnavailable
	KindStorage
)

// Sentinels for errors.Is checks
var (
	ErrNotFound    = &Error{Kind: KindNotFound, Detail: "not found"}
	ErrValidation  = &Error{Kind: KindValidation, Detail: "validation failed"}
	ErrUnavailable = &Error{Kind: KindUnavailable, Detail: "external API unavailable"}
	ErrStorage     = &Error{Kind: KindStorage, Detail: "storage operation failed"}
)

// Error carries a caller-facing detail and the internal cause.
// Only Detail is ever written to a response.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func NotFound(detail string) error {
	return &Error{Kind: KindNotFound, Detail: detail}
}

func Validation(detail string) error {
	return &Error{Kind: KindValidation, Detail: detail}
}

func Unavailable(detail string, cause error) error {
	return &Error{Kind: KindUnavailable, Detail: detail, Err: cause}
}

func Storage(detail string, cause error) error {
	return &Error{Kind: KindStorage, Detail: detail, Err: cause}
}

// Status maps an error to the HTTP status code it should produce
func Status(err error) int {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Detail returns the caller-facing message for err. Errors outside the
// taxonomy collapse into fallback so driver text never leaks.
func Detail(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Detail != "" {
		return appErr.Detail
	}
	return fallback
}
