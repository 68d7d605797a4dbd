// Package apperror carries the failure kinds the services report to callers.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation          Kind = "validation"
	KindDuplicate           Kind = "duplicate"
	KindNotFound            Kind = "not_found"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindInvalidDocument     Kind = "invalid_document"
	KindPartialFailure      Kind = "partial_failure"
	KindConflict            Kind = "conflict"
	KindInternal            Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, apperror.ErrNotFound) match on kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrDuplicate           = &Error{Kind: KindDuplicate}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable}
	ErrInvalidDocument     = &Error{Kind: KindInvalidDocument}
	ErrPartialFailure      = &Error{Kind: KindPartialFailure}
	ErrConflict            = &Error{Kind: KindConflict}
)

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

func Duplicate(format string, args ...interface{}) *Error {
	return New(KindDuplicate, format, args...)
}

func Upstream(err error, format string, args ...interface{}) *Error {
	return Wrap(KindUpstreamUnavailable, err, format, args...)
}

func InvalidDocument(format string, args ...interface{}) *Error {
	return New(KindInvalidDocument, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
