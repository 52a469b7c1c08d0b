// Package sharedpage implements the single read-only shared page: a
// snapshot of process identity, credentials, and system info populated
// once at create time and installed read-only into the caller.
package sharedpage

import (
	"fmt"
	"os"
	"time"

	"github.com/GssMahadevan/ksvc/internal/abi"
	"github.com/GssMahadevan/ksvc/internal/ring"
	"golang.org/x/sys/unix"
)

// Store owns the single page backing the shared page region.
type Store struct {
	fd    int
	frame *frameHandle
	kaddr uintptr
}

// frameHandle counts how many times this page has been installed into an
// address range (unmapping a range does not lower the count), mirroring
// ring.Frame's refcount without importing ring's Frame type.
type frameHandle struct {
	installs int
}

// Allocate creates the backing page. It is not yet populated or installed
// anywhere.
func Allocate() (*Store, error) {
	if pg := os.Getpagesize(); pg != ring.PageSize {
		return nil, fmt.Errorf("sharedpage: host page size %d unsupported, want %d", pg, ring.PageSize)
	}

	fd, err := unix.MemfdCreate("ksvc-shared", 0)
	if err != nil {
		return nil, fmt.Errorf("sharedpage: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, ring.PageSize); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("sharedpage: ftruncate: %w", err)
	}

	kaddr, err := rawMmap(0, ring.PageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED, fd, 0)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("sharedpage: mmap: %w", err)
	}

	return &Store{fd: fd, frame: &frameHandle{}, kaddr: kaddr}, nil
}

// Free releases the backing page. Idempotent, matching ksvc_shared_free
// tolerating a not-yet-allocated page.
func (s *Store) Free() error {
	if s.kaddr == 0 {
		return nil
	}
	if err := rawMunmap(s.kaddr, ring.PageSize); err != nil {
		return fmt.Errorf("sharedpage: munmap: %w", err)
	}
	s.kaddr = 0
	unix.Close(s.fd)
	s.fd = -1
	return nil
}

// Populate fills the page with the creating process's identity,
// credentials, and system info. Called once, during create, in the
// context of the creating process — these fields never change afterward.
func (s *Store) Populate() error {
	var sp abi.SharedPage

	sp.Magic = abi.SharedMagic
	sp.Version = abi.Version

	sp.PID = int32(os.Getpid())
	sp.TGID = int32(os.Getpid())
	sp.PPID = int32(os.Getppid())
	pgid, err := unix.Getpgid(0)
	if err == nil {
		sp.PGID = int32(pgid)
	}
	sid, err := unix.Getsid(0)
	if err == nil {
		sp.SID = int32(sid)
	}

	uid, euid, suid := unix.Getresuid()
	gid, egid, sgid := unix.Getresgid()
	sp.UID, sp.EUID, sp.SUID = uint32(uid), uint32(euid), uint32(suid)
	sp.GID, sp.EGID, sp.SGID = uint32(gid), uint32(egid), uint32(sgid)

	var uname unix.Utsname
	if err := unix.Uname(&uname); err == nil {
		copyCString(sp.UtsRelease[:], uname.Release[:])
		copyCString(sp.UtsNode[:], uname.Nodename[:])
		copyCString(sp.UtsMachine[:], uname.Machine[:])
	}

	var rlimNofile, rlimNproc unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlimNofile); err == nil {
		sp.RlimitNofile = rlimNofile.Cur
	}
	if err := unix.Getrlimit(unix.RLIMIT_NPROC, &rlimNproc); err == nil {
		sp.RlimitNproc = rlimNproc.Cur
	}

	sp.BootTimeNs = bootTimeNs()
	sp.ClockMonotonicNs = monotonicNs()
	sp.ClockRealtimeNs = uint64(time.Now().UnixNano())

	buf := ring.GetPage()
	defer ring.PutPage(buf)
	copy(buf, structBytes(&sp))
	copy(asByteSlice(s.kaddr, ring.PageSize), buf)
	return nil
}

// InstallReadOnly installs the page at the given address, PROT_READ only —
// the host is the sole writer, exactly as ksvc_shared_mmap clears VM_WRITE
// before inserting its page.
func (s *Store) InstallReadOnly(addr uintptr) error {
	got, err := rawMmap(addr, ring.PageSize, unix.PROT_READ, unix.MAP_FIXED|unix.MAP_SHARED, s.fd, 0)
	if err != nil {
		return fmt.Errorf("sharedpage: install: %w", err)
	}
	if got != addr {
		return fmt.Errorf("sharedpage: install: mmap did not honor MAP_FIXED")
	}
	s.frame.installs++
	return nil
}

// View returns a read-only decoding of the page as currently populated.
func (s *Store) View() abi.SharedPage {
	var sp abi.SharedPage
	copy(structBytes(&sp), asByteSlice(s.kaddr, ring.PageSize))
	return sp
}

func copyCString(dst []byte, src []byte) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] = byte(src[i])
		if dst[i] == 0 {
			break
		}
	}
}
