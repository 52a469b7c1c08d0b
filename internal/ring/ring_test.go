package ring

import (
	"testing"
	"unsafe"

	"github.com/GssMahadevan/ksvc/internal/abi"
	"github.com/stretchr/testify/require"
)

func TestAllocateInitializesHeader(t *testing.T) {
	store, err := Allocate(abi.RingMagic, 64, uint32(unsafe.Sizeof(abi.Entry{})))
	require.NoError(t, err)
	defer store.Free()

	hdr := store.Header()
	require.Equal(t, uint32(abi.RingMagic), hdr.Magic)
	require.Equal(t, uint32(64), hdr.RingSize)
	require.Equal(t, uint32(63), hdr.Mask)
	require.EqualValues(t, uint32(unsafe.Sizeof(abi.Entry{})), hdr.EntrySize)
	require.Equal(t, uint64(0), hdr.Head)
	require.Equal(t, uint64(0), hdr.Tail)
}

func TestAllocateComputesPageCount(t *testing.T) {
	// 16 entries * 64 bytes = 1024 bytes -> 1 data page, plus 1 header page.
	store, err := Allocate(abi.RingMagic, 16, 64)
	require.NoError(t, err)
	defer store.Free()

	require.Equal(t, uint32(2), store.NrPages())
	require.Equal(t, uintptr(2*PageSize), store.Size())
}

func TestInstallIntoRangeSharesMemoryWithHost(t *testing.T) {
	store, err := Allocate(abi.RingMagic, 16, 64)
	require.NoError(t, err)
	defer store.Free()

	base, err := ReserveRange(store.Size())
	require.NoError(t, err)
	defer UnreserveRange(base, store.Size())

	require.NoError(t, store.InstallIntoRange(base))

	installed := asByteSlice(base, PageSize)
	require.EqualValues(t, abi.RingMagic, u32le(installed[0:4]))

	for _, f := range store.frames {
		require.EqualValues(t, 1, f.RefCount())
	}
}

func u32le(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
