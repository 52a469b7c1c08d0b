// Package ksvc provides a userspace simulation of the KSVC character
// device: a per-process shared-memory control channel exposing a
// submission ring, a completion ring, and a read-only shared page to a
// userspace dispatcher, addressed by well-known mmap offsets.
package ksvc

import (
	"syscall"

	"github.com/GssMahadevan/ksvc/internal/ksvcerr"
)

// Error is the structured error every Device/File operation returns on
// failure. Shape mirrors the teacher's root errors.go (Op/Code/Errno/Msg/
// Inner with errors.Is/As via Unwrap), generalized from ublk's
// device/queue context to KSVC's instance/region context.
type Error = ksvcerr.Error

// Kind is one of the error-taxonomy categories from spec.md §7.
type Kind = ksvcerr.Kind

const (
	KindInvalidArgument = ksvcerr.KindInvalidArgument
	KindBusy            = ksvcerr.KindBusy
	KindOutOfMemory     = ksvcerr.KindOutOfMemory
	KindBadAddress      = ksvcerr.KindBadAddress
	KindNotATTY         = ksvcerr.KindNotATTY
	KindNotSupported    = ksvcerr.KindNotSupported
)

// IsKind reports whether err is a *Error (possibly wrapped) of the given
// Kind.
func IsKind(err error, kind Kind) bool {
	return ksvcerr.Is(err, kind)
}

// Errno returns the negative errno the original kernel module would have
// returned for err, or syscall.EIO if err carries no recognizable Kind.
func Errno(err error) syscall.Errno {
	var e *Error
	if ae, ok := err.(*Error); ok {
		e = ae
	}
	if e == nil {
		return syscall.EIO
	}
	return e.Kind.Errno()
}
