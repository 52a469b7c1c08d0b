package ksvc

import (
	"unsafe"

	"github.com/GssMahadevan/ksvc/internal/abi"
	"github.com/GssMahadevan/ksvc/internal/instance"
	"github.com/GssMahadevan/ksvc/internal/ksvcerr"
	"github.com/GssMahadevan/ksvc/internal/logging"
	"github.com/GssMahadevan/ksvc/internal/ring"
)

// File is the per-open state created by Device.Open, analogous to the
// kernel's struct file private_data: it owns exactly one Instance for its
// entire lifetime, per spec.md §3.
type File struct {
	inst *instance.Instance
	log  *logging.Logger
}

// Control dispatches the device's one control command by numeric code,
// the device-surface entry point spec.md §4.4 describes: "Supports
// exactly one command code, 'create'. ... Unknown command codes fail
// with not-a-tty." CmdCreate is the only code Control accepts; anything
// else returns a KindNotATTY error and touches no instance state, the
// same way ksvc_ioctl's default switch case rejects an unrecognized
// ioctl number before ever looking at its argument.
func (f *File) Control(cmd int, params CreateParams) (CreateParams, error) {
	if cmd != abi.CmdCreate {
		err := ksvcerr.New("control", ksvcerr.KindNotATTY, "unknown command code")
		f.log.Error("control failed", "error", err)
		return params, err
	}
	return f.Create(params)
}

// Create issues the one control command, "create" (spec.md §6), as a
// typed convenience over Control(CmdCreate, params) for callers who
// already know which command they mean. On success the same params are
// returned, optionally with fields the instance fills in — today nothing
// is added, matching the original's copy_to_user of an unmodified struct
// on most paths.
func (f *File) Create(params CreateParams) (CreateParams, error) {
	got, err := f.inst.Create(params)
	if err != nil {
		f.log.Error("create failed", "error", err)
		return got, err
	}
	f.log.Info("create succeeded",
		"submit_entries", got.SubmitRingEntries,
		"complete_entries", got.CompleteRingEntries)
	return got, nil
}

// Map dispatches a map request by region offset (spec.md §6's table) and
// returns a byte slice backed directly by the installed frames — writes
// through the slice for the submit/complete rings are visible to whatever
// side of the protocol reads the same mapping; the shared-page slice
// rejects writes at the hardware level (see sharedpage.Store.InstallReadOnly).
func (f *File) Map(offset uintptr, size int) ([]byte, error) {
	base, err := ring.ReserveRange(uintptr(size))
	if err != nil {
		return nil, ksvcerr.Wrap("map", ksvcerr.KindOutOfMemory, err)
	}

	if err := f.inst.Map(offset, uintptr(size), base); err != nil {
		ring.UnreserveRange(base, uintptr(size))
		return nil, err
	}

	return viewAt(base, size), nil
}

// MapSubmitRing, MapCompleteRing, and MapSharedPage are convenience
// wrappers over Map for the three well-known offsets, sized automatically
// from the instance's committed ring parameters — sparing a caller from
// hand-computing the region size the way spec.md §6's table requires.
func (f *File) MapSubmitRing() ([]byte, error) {
	if !f.inst.Created() {
		return nil, ksvcerr.New("map", ksvcerr.KindInvalidArgument, "map before create")
	}
	return f.Map(abi.OffSubmitRing, int(f.inst.SubmitRingSize()))
}

func (f *File) MapCompleteRing() ([]byte, error) {
	if !f.inst.Created() {
		return nil, ksvcerr.New("map", ksvcerr.KindInvalidArgument, "map before create")
	}
	return f.Map(abi.OffCompleteRing, int(f.inst.CompleteRingSize()))
}

func (f *File) MapSharedPage() ([]byte, error) {
	return f.Map(abi.OffSharedPage, ring.PageSize)
}

// Close retrieves the per-open state, destroys the instance, and frees
// it — safe to call even if Create was never invoked, per spec.md §4.4.
func (f *File) Close() error {
	return f.inst.Release()
}

func viewAt(base uintptr, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(base)), size)
}
