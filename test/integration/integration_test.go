// Package integration exercises the whole Open -> Create -> Map ->
// ring-round-trip -> Close lifecycle end to end, the way the teacher's own
// test/integration/integration_test.go drives a full ublk device lifecycle
// rather than one package in isolation.
package integration

import (
	"encoding/binary"
	"runtime/debug"
	"testing"
	"unsafe"

	"github.com/GssMahadevan/ksvc"
	"github.com/GssMahadevan/ksvc/internal/abi"
	"github.com/GssMahadevan/ksvc/internal/ring"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func readHeader(region []byte) abi.RingHeader {
	var hdr abi.RingHeader
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&hdr)), unsafe.Sizeof(hdr)), region[:unsafe.Sizeof(hdr)])
	return hdr
}

func writeHeaderTail(region []byte, tail uint64) {
	binary.LittleEndian.PutUint64(region[24:32], tail)
}

func writeHeaderHead(region []byte, head uint64) {
	binary.LittleEndian.PutUint64(region[16:24], head)
}

func entryOffset(entrySize uint32, slot uint32) int {
	return abi.PageSize + int(slot)*int(entrySize)
}

// Scenario A from spec.md §8: submit=64, complete=64, eventfd=-1.
func TestLifecycle_ScenarioA(t *testing.T) {
	f, err := ksvc.Open()
	require.NoError(t, err)
	defer f.Close()

	got, err := f.Create(ksvc.CreateParams{SubmitRingEntries: 64, CompleteRingEntries: 64, Eventfd: -1})
	require.NoError(t, err)
	require.EqualValues(t, 64, got.SubmitRingEntries)
	require.EqualValues(t, 64, got.CompleteRingEntries)

	region, err := f.MapSubmitRing()
	require.NoError(t, err)

	hdr := readHeader(region)
	require.EqualValues(t, abi.RingMagic, hdr.Magic)
	require.EqualValues(t, 64, hdr.RingSize)
	require.EqualValues(t, 63, hdr.Mask)
	require.EqualValues(t, unsafe.Sizeof(abi.Entry{}), hdr.EntrySize)
	require.EqualValues(t, 0, hdr.Head)
	require.EqualValues(t, 0, hdr.Tail)
}

// Scenario B: submit=64, complete=128; completion ring_size must read back 128.
func TestLifecycle_ScenarioB(t *testing.T) {
	f, err := ksvc.Open()
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Create(ksvc.CreateParams{SubmitRingEntries: 64, CompleteRingEntries: 128, Eventfd: -1})
	require.NoError(t, err)

	region, err := f.MapCompleteRing()
	require.NoError(t, err)

	hdr := readHeader(region)
	require.EqualValues(t, abi.RingMagic, hdr.Magic)
	require.EqualValues(t, 128, hdr.RingSize)
	require.EqualValues(t, 127, hdr.Mask)
	require.EqualValues(t, unsafe.Sizeof(abi.Completion{}), hdr.EntrySize)
}

// Scenario C: a non-power-of-two ring size is rejected before any resource
// is allocated, and the instance is left usable for a retry.
func TestLifecycle_ScenarioC(t *testing.T) {
	f, err := ksvc.Open()
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Create(ksvc.CreateParams{SubmitRingEntries: 33, CompleteRingEntries: 64, Eventfd: -1})
	require.True(t, ksvc.IsKind(err, ksvc.KindInvalidArgument))

	_, err = f.Create(ksvc.CreateParams{SubmitRingEntries: 64, CompleteRingEntries: 64, Eventfd: -1})
	require.NoError(t, err)
}

// Scenario D: a second create on an already-created instance fails busy.
func TestLifecycle_ScenarioD(t *testing.T) {
	f, err := ksvc.Open()
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Create(ksvc.DefaultCreateParams())
	require.NoError(t, err)

	_, err = f.Create(ksvc.DefaultCreateParams())
	require.True(t, ksvc.IsKind(err, ksvc.KindBusy))
}

// Scenario E: the shared page's identity/limit/timestamp fields are
// populated and the mapping is read-only (Property 3 and 4).
func TestLifecycle_ScenarioE(t *testing.T) {
	f, err := ksvc.Open()
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Create(ksvc.DefaultCreateParams())
	require.NoError(t, err)

	region, err := f.MapSharedPage()
	require.NoError(t, err)
	require.Len(t, region, abi.PageSize)

	var sp abi.SharedPage
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&sp)), unsafe.Sizeof(sp)), region)

	require.EqualValues(t, abi.SharedMagic, sp.Magic)
	require.EqualValues(t, abi.Version, sp.Version)
	require.NotZero(t, sp.PID)
	require.GreaterOrEqual(t, sp.RlimitNofile, uint64(256))
	require.NotZero(t, sp.ClockMonotonicNs)
	require.NotZero(t, sp.ClockRealtimeNs)
	require.NotZero(t, sp.BootTimeNs)

	// The mapping carries read-only protection (Property 4): a store to
	// it must raise a hardware protection fault, which debug.SetPanicOnFault
	// turns into a recoverable panic — the in-process equivalent of
	// test_basic.c's sigaction(SIGSEGV, ...) handler. Only after an
	// explicit, separate mprotect(PROT_WRITE) does the identical write
	// succeed, confirming InstallReadOnly never granted write access
	// itself.
	base := uintptr(unsafe.Pointer(&region[0]))

	debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(false)

	faulted := func() (didFault bool) {
		defer func() {
			if recover() != nil {
				didFault = true
			}
		}()
		region[0] = 0x7F
		return false
	}()
	require.True(t, faulted, "write to the read-only shared page must raise a protection fault")

	require.NoError(t, ring.Mprotect(base, abi.PageSize, unix.PROT_READ|unix.PROT_WRITE))
	region[0] = 0x7F
	require.EqualValues(t, 0x7F, region[0])
}

// Scenario F: fill a 16-entry submission ring to capacity, drain it, then
// refill by a smaller count, and confirm corr_id survives the wraparound
// (Property 5 and 6).
func TestLifecycle_ScenarioF_RingRoundTripAndWraparound(t *testing.T) {
	f, err := ksvc.Open()
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Create(ksvc.CreateParams{SubmitRingEntries: 16, CompleteRingEntries: 16, Eventfd: -1})
	require.NoError(t, err)

	region, err := f.MapSubmitRing()
	require.NoError(t, err)

	hdr := readHeader(region)
	entrySize := hdr.EntrySize
	ringSize := hdr.RingSize

	// Fill to capacity with corr_id 100..115.
	for i := uint32(0); i < ringSize; i++ {
		off := entryOffset(entrySize, i%ringSize)
		binary.LittleEndian.PutUint64(region[off:off+8], uint64(100+i))
		writeHeaderTail(region, uint64(i+1))
	}
	hdr = readHeader(region)
	require.EqualValues(t, ringSize, hdr.Tail)
	require.EqualValues(t, ringSize, hdr.Tail-hdr.Head)

	// Drain completely, verifying each corr_id by slot order.
	for i := uint32(0); i < ringSize; i++ {
		off := entryOffset(entrySize, i%ringSize)
		got := binary.LittleEndian.Uint64(region[off : off+8])
		require.EqualValues(t, 100+i, got)
		writeHeaderHead(region, uint64(i+1))
	}
	hdr = readHeader(region)
	require.EqualValues(t, hdr.Head, hdr.Tail)

	// Refill by k=8 < C, landing back at the wrapped slot indices 0..7.
	base := ringSize // absolute position continues monotonically
	for i := uint32(0); i < 8; i++ {
		slot := (base + i) % ringSize
		off := entryOffset(entrySize, slot)
		binary.LittleEndian.PutUint64(region[off:off+8], uint64(200+i))
		writeHeaderTail(region, uint64(base+i+1))
	}
	for i := uint32(0); i < 8; i++ {
		slot := (base + i) % ringSize
		off := entryOffset(entrySize, slot)
		got := binary.LittleEndian.Uint64(region[off : off+8])
		require.EqualValues(t, 200+i, got)
		require.EqualValues(t, i, slot) // base == ringSize, so slot wraps to i
	}
}

// Property 12: close after a partially failed create leaves no resources
// allocated, and a fresh attempt with valid parameters still succeeds.
func TestLifecycle_PartialCreateThenClose(t *testing.T) {
	f, err := ksvc.Open()
	require.NoError(t, err)

	_, err = f.Create(ksvc.CreateParams{SubmitRingEntries: 17, CompleteRingEntries: 64, Eventfd: -1})
	require.True(t, ksvc.IsKind(err, ksvc.KindInvalidArgument))

	require.NoError(t, f.Close())

	f2, err := ksvc.Open()
	require.NoError(t, err)
	defer f2.Close()

	_, err = f2.Create(ksvc.DefaultCreateParams())
	require.NoError(t, err)
}

// Each device.Open yields an independent instance with its own rings.
func TestLifecycle_IndependentInstances(t *testing.T) {
	f1, err := ksvc.Open()
	require.NoError(t, err)
	defer f1.Close()
	f2, err := ksvc.Open()
	require.NoError(t, err)
	defer f2.Close()

	_, err = f1.Create(ksvc.CreateParams{SubmitRingEntries: 16, CompleteRingEntries: 16, Eventfd: -1})
	require.NoError(t, err)
	_, err = f2.Create(ksvc.CreateParams{SubmitRingEntries: 32, CompleteRingEntries: 32, Eventfd: -1})
	require.NoError(t, err)

	r1, err := f1.MapSubmitRing()
	require.NoError(t, err)
	r2, err := f2.MapSubmitRing()
	require.NoError(t, err)

	require.EqualValues(t, 16, readHeader(r1).RingSize)
	require.EqualValues(t, 32, readHeader(r2).RingSize)
}
