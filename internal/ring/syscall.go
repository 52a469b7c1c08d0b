package ring

import (
	"syscall"
	"unsafe"
)

// mmap and munmap wrap the raw syscalls directly rather than going through
// golang.org/x/sys/unix's Mmap helper, because that helper has no way to
// request a specific base address — and a specific base address is exactly
// what InstallIntoRange needs for MAP_FIXED. Grounded on
// paultag-go-diskring's syscall.go and the teacher's mmapQueues, both of
// which reach for syscall.Syscall6(syscall.SYS_MMAP, ...) for the same
// reason.
func mmap(addr, length uintptr, prot, flags, fd int, offset int64) (uintptr, error) {
	ret, _, errno := syscall.Syscall6(
		syscall.SYS_MMAP,
		addr,
		length,
		uintptr(prot),
		uintptr(flags),
		uintptr(fd),
		uintptr(offset),
	)
	if errno != 0 {
		return 0, errno
	}
	return ret, nil
}

func munmap(addr, length uintptr) error {
	_, _, errno := syscall.Syscall(syscall.SYS_MUNMAP, addr, length, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func mprotect(addr, length uintptr, prot int) error {
	_, _, errno := syscall.Syscall(syscall.SYS_MPROTECT, addr, length, uintptr(prot))
	if errno != 0 {
		return errno
	}
	return nil
}

// Mprotect exposes the raw mprotect syscall to callers outside this
// package — specifically the test suite proving the shared page's
// InstallReadOnly mapping really only carries PROT_READ, by explicitly
// mprotecting it writable and observing that the write then succeeds.
func Mprotect(addr, length uintptr, prot int) error {
	return mprotect(addr, length, prot)
}

// asByteSlice turns a raw mapped address into a Go slice without copying,
// the same unsafe slice-header trick diskring's syscall.go uses.
func asByteSlice(base uintptr, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(base)), size)
}

// ptrAt returns an unsafe.Pointer to a byte offset within a mapped region.
func ptrAt(base uintptr, offset uintptr) unsafe.Pointer {
	return unsafe.Pointer(base + offset)
}
