package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInvariant    Kind = "invariant"
	KindUpstream     Kind = "upstream"
	KindInternal     Kind = "internal"
)

// Error is a domain error with a stable code and a message safe to show users.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

// As returns the outermost *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if ae, ok := As(err); ok && ae.Kind != "" {
		return ae.Kind
	}
	return KindInternal
}

func CodeOf(err error) string {
	if ae, ok := As(err); ok && ae.Code != "" {
		return ae.Code
	}
	return "internal_error"
}

// PublicMessage is the text rendered in an error body. Internal errors never leak their cause.
func PublicMessage(err error) string {
	if ae, ok := As(err); ok {
		if ae.Message != "" {
			return ae.Message
		}
		if ae.Kind != KindInternal && ae.Kind != KindUpstream && ae.Err != nil {
			return ae.Err.Error()
		}
	}
	return "Internal server error"
}

func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindInvariant:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
