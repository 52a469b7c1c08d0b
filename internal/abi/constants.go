// Package abi defines the fixed-layout wire structures shared between a
// KSVC instance and its userspace dispatcher: the ring header, submission
// and completion entries, the shared page, and the create-time parameter
// block. Layout matches the original kernel module's UAPI header exactly;
// new fields append only, never reorder.
package abi

const (
	// Magic identifies the overall KSVC protocol ("KSVC").
	Magic = 0x4B535643
	// RingMagic tags a ring header ("KRIN").
	RingMagic = 0x4B52494E
	// SharedMagic tags the shared page ("KSHP").
	SharedMagic = 0x4B534850

	// Version is the current ABI version. Bumped only on breaking change.
	Version = 2
)

// mmap region offsets, page-aligned, selecting which region Map installs.
const (
	OffSubmitRing   = 0x00000000
	OffCompleteRing = 0x00100000 // 1 MiB
	OffSharedPage   = 0x00200000 // 2 MiB
)

// Ring size limits: number of entries must be a power of two in this range.
const (
	MinRingEntries = 16
	MaxRingEntries = 4096
	MaxBatch       = 64
)

// Submission flags.
const (
	FlagLinked uint32 = 1 << 0
	FlagDrain  uint32 = 1 << 1
)

// Completion flags.
const (
	CompMore uint32 = 1 << 0
)

// Create flags.
const (
	CreateDefault uint32 = 0
)

// Control command codes. The driver supports exactly one, "create"
// (KSVC_IOC_CREATE, _IOWR('K', 1, struct ksvc_create_params) in the
// original UAPI header); any other code is rejected with not-a-tty, per
// spec.md §4.4/§6.
const (
	CmdCreate = 1
)

// PageSize is the only host page size this module supports. Ring and
// shared-page stores refuse to start if the runtime page size differs.
const PageSize = 4096
