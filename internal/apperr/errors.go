// Package apperr carries the error kinds every engine operation reports.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound     Kind = "NotFound"
	KindInvalidState Kind = "InvalidState"
	KindOutOfStock   Kind = "OutOfStock"
	KindAuthRequired Kind = "AuthRequired"
	KindValidation   Kind = "ValidationError"
	KindNetwork      Kind = "NetworkError"
	KindInternal     Kind = "Internal"
)

// Error is a human readable message tagged with a Kind.
// Err is the optional underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func InvalidState(format string, args ...any) *Error {
	return New(KindInvalidState, format, args...)
}

func OutOfStock(format string, args ...any) *Error {
	return New(KindOutOfStock, format, args...)
}

func AuthRequired(format string, args ...any) *Error {
	return New(KindAuthRequired, format, args...)
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func Network(err error, msg string) *Error {
	return Wrap(KindNetwork, err, msg)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message is the text shown to a user: the tagged message when there is one,
// otherwise err.Error().
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
