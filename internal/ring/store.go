// Package ring implements the submission/completion ring store: allocation
// of page-backed ring memory and installation of that memory into a
// caller-supplied address range.
//
// Go cannot allocate individual kernel struct pages, so each store is
// backed by one memfd sized to the ring (header page + data pages). The
// host keeps its own MAP_SHARED mapping of the whole thing for
// initialization; InstallIntoRange then MAP_FIXED|MAP_SHARED-remaps each
// page of that same fd into the caller's range, one page at a time, the
// way the kernel's ksvc_ring_mmap calls vm_insert_page() in a loop. Because
// both mappings point at the same fd+offset, writes through either are
// visible to the other — this is the same "double map a shared fd" trick
// paultag-go-diskring uses to stitch together its ring's wraparound region.
package ring

import (
	"fmt"
	"os"
	"sync"

	"github.com/GssMahadevan/ksvc/internal/abi"
	"golang.org/x/sys/unix"
)

// Store owns the pages backing one ring: a header page followed by the
// entry data pages.
type Store struct {
	mu sync.Mutex

	fd        int
	nrPages   uint32
	nrEntries uint32
	entrySize uint32

	frames []*Frame

	kaddr uintptr // host's own mapping, for header init and reads
	size  uintptr
}

func ringPagesNeeded(nrEntries, entrySize uint32) uint32 {
	dataBytes := uint64(nrEntries) * uint64(entrySize)
	dataPages := (dataBytes + PageSize - 1) / PageSize
	return 1 + uint32(dataPages)
}

// Allocate creates a new ring store sized for nrEntries entries of
// entrySize bytes each, and writes the initial ring header into page 0.
// Ring-size validation (power of two, within bounds) is the caller's
// responsibility, mirroring ksvc_ioctl_create validating before it ever
// calls ksvc_ring_alloc.
func Allocate(magic uint32, nrEntries, entrySize uint32) (*Store, error) {
	if pg := os.Getpagesize(); pg != PageSize {
		return nil, fmt.Errorf("ring: host page size %d unsupported, want %d", pg, PageSize)
	}

	nrPages := ringPagesNeeded(nrEntries, entrySize)
	size := uintptr(nrPages) * PageSize

	fd, err := unix.MemfdCreate("ksvc-ring", 0)
	if err != nil {
		return nil, fmt.Errorf("ring: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ring: ftruncate: %w", err)
	}

	kaddr, err := mmap(0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED, fd, 0)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ring: mmap header: %w", err)
	}

	frames := make([]*Frame, nrPages)
	for i := range frames {
		frames[i] = newFrame(fd, int64(i)*PageSize)
	}

	s := &Store{
		fd:        fd,
		nrPages:   nrPages,
		nrEntries: nrEntries,
		entrySize: entrySize,
		frames:    frames,
		kaddr:     kaddr,
		size:      size,
	}

	hdr := &abi.RingHeader{
		Magic:     magic,
		RingSize:  nrEntries,
		Mask:      nrEntries - 1,
		EntrySize: entrySize,
	}
	copy(asByteSlice(kaddr, PageSize), abi.Marshal(hdr))

	return s, nil
}

// Free unmaps the host's own view and releases the backing memfd. Idempotent,
// matching ksvc_ring_free tolerating a not-yet-allocated ring.
func (s *Store) Free() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kaddr == 0 {
		return nil
	}
	if err := munmap(s.kaddr, s.size); err != nil {
		return fmt.Errorf("ring: munmap: %w", err)
	}
	s.kaddr = 0
	unix.Close(s.fd)
	s.fd = -1
	return nil
}

// Size returns the total mapped size in bytes (header page + data pages).
func (s *Store) Size() uintptr {
	return s.size
}

// NrPages returns the number of pages backing this ring.
func (s *Store) NrPages() uint32 {
	return s.nrPages
}

// InstallIntoRange maps every page of the store, in order, into the
// caller-provided address range. The range must already be reserved (e.g.
// via a PROT_NONE anonymous mapping of exactly Size() bytes) so each
// MAP_FIXED call only ever overwrites memory this store's caller owns.
func (s *Store) InstallIntoRange(base uintptr) error {
	addr := base
	for i, f := range s.frames {
		got, err := mmap(addr, PageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_FIXED|unix.MAP_SHARED, f.fd, f.offset)
		if err != nil {
			return fmt.Errorf("ring: install page %d: %w", i, err)
		}
		if got != addr {
			return fmt.Errorf("ring: install page %d: mmap did not honor MAP_FIXED", i)
		}
		f.acquire()
		addr += PageSize
	}
	return nil
}

// Header reads the current ring header out of the host's own mapping.
func (s *Store) Header() abi.RingHeader {
	var hdr abi.RingHeader
	_ = abi.Unmarshal(asByteSlice(s.kaddr, PageSize), &hdr)
	hdr.Head = s.loadHead()
	hdr.Tail = s.loadTail()
	return hdr
}
