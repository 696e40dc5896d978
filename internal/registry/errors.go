package registry

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable classification of a registry error.
type Kind string

const (
	KindUnauthorized    Kind = "unauthorized"
	KindDuplicateKey    Kind = "duplicate_key"
	KindNotFound        Kind = "not_found"
	KindInvalidArgument Kind = "invalid_argument"
	KindSystemPaused    Kind = "system_paused"
)

// Error carries a Kind plus human-readable detail. Every precondition
// violation surfaces as one of these; no partial state change accompanies it.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// KindOf extracts the Kind from err, or "" when err is not a registry error.
func KindOf(err error) Kind {
	var regErr *Error
	if errors.As(err, &regErr) {
		return regErr.Kind
	}
	return ""
}

func unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Detail: fmt.Sprintf(format, args...)}
}

func duplicateKey(format string, args ...any) *Error {
	return &Error{Kind: KindDuplicateKey, Detail: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf(format, args...)}
}

func invalidArgument(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Detail: fmt.Sprintf(format, args...)}
}

func systemPaused() *Error {
	return &Error{Kind: KindSystemPaused, Detail: "registry is paused"}
}
