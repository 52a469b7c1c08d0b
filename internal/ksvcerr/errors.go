// Package ksvcerr defines the error taxonomy shared by the instance and
// device-surface layers: a small set of kinds (not Go types) matching the
// kernel module's negative-errno categories, wrapped in a single structured
// error type. Shaped after the teacher's root errors.go (Op/Code/Errno/Msg/
// Inner, errors.Is/As via Unwrap), generalized from ublk's DevID/Queue
// fields to KSVC's Op/Region fields.
package ksvcerr

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind is one of the error-taxonomy categories from spec.md §7.
type Kind string

const (
	KindInvalidArgument Kind = "invalid-argument"
	KindBusy            Kind = "busy"
	KindOutOfMemory     Kind = "out-of-memory"
	KindBadAddress      Kind = "bad-address"
	KindNotATTY         Kind = "not-a-tty"
	KindNotSupported    Kind = "not-supported"
)

// Errno maps a Kind to the negative errno the kernel module would return.
func (k Kind) Errno() syscall.Errno {
	switch k {
	case KindInvalidArgument:
		return syscall.EINVAL
	case KindBusy:
		return syscall.EBUSY
	case KindOutOfMemory:
		return syscall.ENOMEM
	case KindBadAddress:
		return syscall.EFAULT
	case KindNotATTY:
		return syscall.ENOTTY
	case KindNotSupported:
		return syscall.EOPNOTSUPP
	default:
		return syscall.EIO
	}
}

// Error is the structured error every instance/device-surface operation
// returns on failure.
type Error struct {
	Op     string // operation that failed ("create", "map", "release", ...)
	Region string // region name, if the failure is region-specific ("", "submit", "complete", "shared")
	Kind   Kind
	Msg    string
	Inner  error
}

func (e *Error) Error() string {
	if e.Region != "" {
		return fmt.Sprintf("ksvc: %s: %s (region=%s): %s", e.Op, e.Kind, e.Region, e.Msg)
	}
	return fmt.Sprintf("ksvc: %s: %s: %s", e.Op, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Inner }

// Is supports errors.Is comparison by Kind alone, so callers can write
// errors.Is(err, ksvcerr.New("", ksvcerr.KindBusy, "")) or compare against
// a sentinel built from a bare Kind via Errno-style helpers.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == te.Kind
}

// New builds an Error with no wrapped cause.
func New(op string, kind Kind, msg string) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg}
}

// NewRegion builds an Error scoped to one of the three mappable regions.
func NewRegion(op, region string, kind Kind, msg string) *Error {
	return &Error{Op: op, Region: region, Kind: kind, Msg: msg}
}

// Wrap attaches an operation and kind to an underlying error, the way
// WrapError upgrades a raw syscall.Errno into the teacher's structured
// Error.
func Wrap(op string, kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	return &Error{Op: op, Kind: kind, Msg: msg, Inner: err}
}

// Is reports whether err is (or wraps) a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
