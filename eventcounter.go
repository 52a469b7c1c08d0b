package ksvc

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// EventCounter wraps an eventfd-backed descriptor, the external
// notification object referenced by spec.md §6's CreateParams.Eventfd.
// This module never signals it itself — notification is left entirely to
// the dispatcher and worker-pool collaborators that share the instance —
// but it is provided here as the concrete object a caller supplies the fd
// of, the way the teacher's ctrl.Controller wraps its own control-plane
// descriptor.
type EventCounter struct {
	f *os.File
}

// NewEventCounter creates a fresh, zero-initialized eventfd.
func NewEventCounter() (*EventCounter, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("ksvc: eventfd: %w", err)
	}
	return &EventCounter{f: os.NewFile(uintptr(fd), "ksvc-eventfd")}, nil
}

// FD returns the raw descriptor, suitable for CreateParams.Eventfd.
func (e *EventCounter) FD() int32 {
	return int32(e.f.Fd())
}

// Signal adds n to the counter, waking any waiter — the producer side of
// the eventfd protocol a dispatcher would drive after posting completions.
func (e *EventCounter) Signal(n uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	_, err := e.f.Write(buf[:])
	return err
}

// Wait blocks until the counter is non-zero, then resets it to zero and
// returns the value that had accumulated.
func (e *EventCounter) Wait() (uint64, error) {
	var buf [8]byte
	if _, err := e.f.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// Close releases the descriptor.
func (e *EventCounter) Close() error {
	return e.f.Close()
}
