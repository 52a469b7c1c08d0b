package abi

import "unsafe"

// Entry is a submission entry, written by the caller into the submit ring
// and read by the dispatcher. One cache line.
type Entry struct {
	CorrID    uint64    // correlation id
	SyscallNr uint32    // __NR_read, __NR_write, etc.
	Flags     uint32    // Flag*
	Args      [6]uint64 // syscall arguments
}

// Compile-time size check - one cache line.
var _ [64]byte = [unsafe.Sizeof(Entry{})]byte{}

// Completion is a completion entry, written by the dispatcher and read by
// the caller's completion handler.
type Completion struct {
	CorrID uint64 // matches the submission's CorrID
	Result int64  // return value, or -errno
	Flags  uint32 // Comp*
	_pad   uint32
	_pad2  [8]byte // trailing pad to the 32-byte cache-aligned size
}

// Compile-time size check.
var _ [32]byte = [unsafe.Sizeof(Completion{})]byte{}

// RingHeader sits at the start of each mmap'd ring region. The producer
// advances Tail, the consumer advances Head. Empty when Head == Tail, full
// when Tail-Head >= RingSize. Once an instance is created the host never
// writes Head or Tail again; only the two ring ends touch them.
type RingHeader struct {
	Magic     uint32
	RingSize  uint32 // number of entries, power of two
	Mask      uint32 // RingSize - 1
	EntrySize uint32 // sizeof(Entry) or sizeof(Completion)
	Head      uint64 // consumer read position
	Tail      uint64 // producer write position
	Reserved  [3]uint64
	_pad      [8]byte
}

// Compile-time size check - one cache line.
var _ [64]byte = [unsafe.Sizeof(RingHeader{})]byte{}

// SharedPage is populated once at create time (plus a small runtime-stats
// region a dispatcher may update) and mapped read-only into the caller.
// Layout is fixed ABI: new fields append only, never reorder.
type SharedPage struct {
	// 0x00
	Magic   uint32
	Version uint32

	// 0x08 - process identity, set once at create time
	PID     int32
	TGID    int32
	PPID    int32
	PGID    int32
	SID     int32
	_padID  int32

	// 0x20 - credentials, set once at create time
	UID      uint32
	GID      uint32
	EUID     uint32
	EGID     uint32
	SUID     uint32
	SGID     uint32
	_padCred [2]uint32

	// 0x40 - system info, set once at create time
	UtsRelease [65]byte // uname -r
	UtsNode    [65]byte // hostname
	UtsMachine [65]byte // arch
	_padUts    [5]byte

	// 0x108 - resource limits
	RlimitNofile uint64
	RlimitNproc  uint64

	// 0x118 - reserved for future static fields, pad to 0x200
	_reservedStatic [0xE8]byte

	// 0x200 - runtime stats, updated by an external dispatcher
	KthreadCPU      uint32
	WorkerState     uint32 // 0 = idle, 1 = processing
	EntriesProcessed uint64
	BatchesProcessed uint64
	IOUringInflight  uint64
	WorkerPoolActive uint64

	// 0x228 - ring pointer snapshot, informational only
	SubmitRingHead   uint64
	SubmitRingTail   uint64
	CompleteRingHead uint64
	CompleteRingTail uint64

	// 0x248 - reserved for future runtime fields, pad to 0x280
	_reservedRuntime [0x38]byte

	// 0x280 - timestamps
	ClockMonotonicNs uint64
	ClockRealtimeNs  uint64
	BootTimeNs       uint64

	// 0x298 -> 0x1000: expansion space, left unpopulated by this module.
	_expansion [0x1000 - 0x298]byte
}

// Compile-time size check - must fill exactly one page.
var _ [4096]byte = [unsafe.Sizeof(SharedPage{})]byte{}

// CreateParams is the single control command's parameter block: submitted
// by the caller, validated and echoed back unchanged (including Reserved,
// which this module neither inspects nor clears).
type CreateParams struct {
	SubmitRingEntries   uint32 // power of two, MinRingEntries..MaxRingEntries
	CompleteRingEntries uint32 // power of two, MinRingEntries..MaxRingEntries
	Flags               uint32 // Create*
	Eventfd              int32  // eventfd fd for notifications, -1 if unused
	Reserved            [4]uint32
}

// Compile-time size check.
var _ [32]byte = [unsafe.Sizeof(CreateParams{})]byte{}
