// Package failure defines the error taxonomy shared by the resolution layer.
//
// Errors are plain wrapped errors: callers test them with errors.Is against
// the sentinels below, and Code maps them to the stable string placed in a
// GraphQL error's extensions.
package failure

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports bad pagination or filter input. Always
	// client-fixable.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidCursor reports a malformed opaque pagination token.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrNotFound reports an absent entity. The resolution layer turns absence
	// into null nodes and empty pages; backends may still return it.
	ErrNotFound = errors.New("not found")

	// ErrBackend wraps failures raised by an injected fetch function.
	ErrBackend = errors.New("backend failure")

	// ErrPermissionDenied is returned by mutations the viewer may not perform.
	ErrPermissionDenied = errors.New("Sorry, you do not have permission to perform this action.")
)

func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func InvalidCursor(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidCursor, fmt.Sprintf(format, args...))
}

// Message returns an error reading exactly msg that matches kind. Use it when
// the message is shown to users as is.
func Message(kind error, msg string) error {
	return &messageError{kind: kind, msg: msg}
}

type messageError struct {
	kind error
	msg  string
}

func (e *messageError) Error() string { return e.msg }

func (e *messageError) Unwrap() error { return e.kind }

// Backend wraps err so it matches ErrBackend while keeping the original error
// reachable through errors.Is / errors.As. Context errors pass through as is.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &backendError{op: op, err: err}
}

type backendError struct {
	op  string
	err error
}

func (e *backendError) Error() string { return fmt.Sprintf("%s: %v", e.op, e.err) }

func (e *backendError) Unwrap() []error { return []error{ErrBackend, e.err} }

// Codes placed in GraphQL error extensions.
const (
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeInvalidCursor    = "INVALID_CURSOR"
	CodeNotFound         = "NOT_FOUND"
	CodeBackend          = "BACKEND_FAILURE"
	CodePermissionDenied = "FORBIDDEN"
	CodeCancelled        = "CANCELLED"
	CodeInternal         = "INTERNAL"
)

// Code returns the extension code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCursor):
		return CodeInvalidCursor
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrPermissionDenied):
		return CodePermissionDenied
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancelled
	case errors.Is(err, ErrBackend):
		return CodeBackend
	default:
		return CodeInternal
	}
}
