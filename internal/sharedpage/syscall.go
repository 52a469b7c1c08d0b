package sharedpage

import (
	"os"
	"strconv"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// rawMmap and rawMunmap mirror internal/ring's syscall wrappers: raw
// syscall.Syscall6(SYS_MMAP, ...) rather than x/sys/unix's Mmap helper,
// because InstallReadOnly needs MAP_FIXED at a caller-supplied address.
// Duplicated rather than imported since ring keeps its wrappers unexported
// (each store package owns its own tiny syscall surface, matching how the
// teacher's queue and ctrl packages each wrap their own fd operations
// instead of sharing a syscall helper package).
func rawMmap(addr, length uintptr, prot, flags, fd int, offset int64) (uintptr, error) {
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

func rawMunmap(addr, length uintptr) error {
	_, _, errno := syscall.Syscall(syscall.SYS_MUNMAP, addr, length, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func asByteSlice(base uintptr, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(base)), size)
}

// structBytes views v's backing memory as a byte slice without copying, the
// same technique abi.Marshal's directMarshal fallback uses, here applied to
// a local *abi.SharedPage stack value instead of a caller-supplied pointer.
func structBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// monotonicNs reads CLOCK_MONOTONIC directly rather than deriving it from
// time.Now(), whose exported UnixNano() strips Go's internal monotonic
// reading and returns wall-clock time instead.
func monotonicNs() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return uint64(ts.Sec)*1_000_000_000 + uint64(ts.Nsec)
}

// bootTimeNs reads the system boot time from /proc/stat's "btime" line, the
// same source unix.Sysinfo's Uptime field is derived from on Linux. Returns
// 0 if /proc is unavailable (e.g. non-Linux test environments), matching
// this module's general "best effort, never fail populate for a soft field"
// stance for everything except the hard ABI-required fields.
func bootTimeNs() uint64 {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "btime ") {
			continue
		}
		secs, err := strconv.ParseUint(strings.TrimSpace(line[len("btime "):]), 10, 64)
		if err != nil {
			return 0
		}
		return secs * 1_000_000_000
	}
	return 0
}
