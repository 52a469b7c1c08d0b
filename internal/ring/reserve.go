package ring

import "golang.org/x/sys/unix"

// ReserveRange reserves a PROT_NONE anonymous mapping of the given size and
// returns its base address. Callers install frames into sub-ranges of it
// with MAP_FIXED, the same reserve-then-remap sequence
// paultag-go-diskring's NewWithOptions uses to line up its two mirrored
// mappings.
func ReserveRange(size uintptr) (uintptr, error) {
	return mmap(0, size, unix.PROT_NONE, unix.MAP_ANONYMOUS|unix.MAP_PRIVATE, -1, 0)
}

// UnreserveRange releases a range obtained from ReserveRange (or any range
// whose pages have since been replaced via MAP_FIXED installs).
func UnreserveRange(base, size uintptr) error {
	return munmap(base, size)
}
