package instance

import "golang.org/x/sys/unix"

// Notifier holds the instance's reference to an external event-counter
// (eventfd) object. Acquiring dup's the caller's descriptor, the userspace
// analogue of eventfd_ctx_fdget's refcount bump; Release closes the dup,
// the analogue of eventfd_ctx_put. The instance never reads or writes
// through the fd itself — signaling is left entirely to collaborators that
// share the instance, per spec.md §6.
type Notifier struct {
	fd int
}

// acquireNotifier dups fd, or returns (nil, nil) if fd is negative ("no
// notifier" per spec.md §6's CreateParams.Eventfd contract).
func acquireNotifier(fd int32) (*Notifier, error) {
	if fd < 0 {
		return nil, nil
	}
	dup, err := unix.Dup(int(fd))
	if err != nil {
		return nil, err
	}
	return &Notifier{fd: dup}, nil
}

// Release closes the dup'd descriptor. Idempotent and nil-receiver safe so
// callers can unconditionally defer/call it during rollback.
func (n *Notifier) Release() error {
	if n == nil || n.fd < 0 {
		return nil
	}
	err := unix.Close(n.fd)
	n.fd = -1
	return err
}

// FD returns the dup'd descriptor, or -1 if there is no notifier.
func (n *Notifier) FD() int {
	if n == nil {
		return -1
	}
	return n.fd
}
