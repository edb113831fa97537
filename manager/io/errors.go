package io

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// ErrorKind classifies host I/O failures.
type ErrorKind int

const (
	KindStreamClosed ErrorKind = iota + 1
	KindIOFailure
	KindNotSupported
	KindInvalidArgument
	KindNotImplemented
	KindUnknownOperation
)

func (k ErrorKind) String() string {
	switch k {
	case KindStreamClosed:
		return "stream closed"
	case KindIOFailure:
		return "io failure"
	case KindNotSupported:
		return "not supported"
	case KindInvalidArgument:
		return "invalid argument"
	case KindNotImplemented:
		return "not implemented"
	case KindUnknownOperation:
		return "unknown operation"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the single error type surfaced to the runtime. Op is a short
// human label ("ReadFile failed"), Code the OS error number when one exists.
type Error struct {
	Kind ErrorKind
	Op   string
	Code int
	Err  error
}

var (
	ErrStreamClosed     = &Error{Kind: KindStreamClosed}
	ErrIOFailure        = &Error{Kind: KindIOFailure}
	ErrNotSupported     = &Error{Kind: KindNotSupported}
	ErrInvalidArgument  = &Error{Kind: KindInvalidArgument}
	ErrNotImplemented   = &Error{Kind: KindNotImplemented}
	ErrUnknownOperation = &Error{Kind: KindUnknownOperation}

	ErrInsufficientMemory = &Error{Kind: KindIOFailure, Op: "Insufficient memory", Code: int(syscall.ENOMEM)}
)

func (e *Error) Error() string {
	switch {
	case e.Kind == KindStreamClosed:
		return "Stream is closed"
	case e.Op == "":
		return e.Kind.String()
	case e.Err != nil && e.Code != 0:
		return fmt.Sprintf("%s: %v (errno %d)", e.Op, e.Err, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the bare kind sentinels (ErrStreamClosed, ErrIOFailure, ...)
// against any error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" && t.Code == 0 && t.Err == nil {
		return t.Kind == e.Kind
	}
	return t == e
}

// IOFailure wraps an OS error with a label. A nil err yields a failure
// with no code.
func IOFailure(label string, err error) *Error {
	var already *Error
	if errors.As(err, &already) {
		return already
	}
	return &Error{Kind: KindIOFailure, Op: label, Code: OSCode(err), Err: err}
}

func NotSupported(label string) *Error {
	return &Error{Kind: KindNotSupported, Op: label}
}

func InvalidArgument(label string) *Error {
	return &Error{Kind: KindInvalidArgument, Op: label}
}

func NotImplemented(label string) *Error {
	return &Error{Kind: KindNotImplemented, Op: label}
}

func UnknownOperation(code int) *Error {
	return &Error{Kind: KindUnknownOperation, Op: fmt.Sprintf("Unknown io function: %d", code)}
}

// OSCode extracts the OS error number carried by err, or 0.
func OSCode(err error) int {
	if err == nil {
		return 0
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return int(syscall.ENOENT)
	case errors.Is(err, fs.ErrExist):
		return int(syscall.EEXIST)
	case errors.Is(err, fs.ErrPermission):
		return int(syscall.EACCES)
	case errors.Is(err, fs.ErrInvalid):
		return int(syscall.EINVAL)
	case errors.Is(err, fs.ErrClosed):
		return int(syscall.EBADF)
	}
	return 0
}
