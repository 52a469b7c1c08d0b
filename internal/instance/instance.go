// Package instance implements the per-open KSVC instance: the acquire ->
// create -> map -> release state machine that owns the submission ring,
// the completion ring, the shared page, and an optional event-counter
// reference. Grounded on internal/ctrl/control.go's transactional
// multi-step device-create sequence (allocate, validate, roll back in
// reverse order on any failure) adapted from ublk's ADD_DEV/SET_PARAMS
// kernel round trip to KSVC's purely local allocate-and-populate steps.
package instance

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/GssMahadevan/ksvc/internal/abi"
	"github.com/GssMahadevan/ksvc/internal/ksvcerr"
	"github.com/GssMahadevan/ksvc/internal/logging"
	"github.com/GssMahadevan/ksvc/internal/ring"
	"github.com/GssMahadevan/ksvc/internal/sharedpage"
)

// State mirrors the three states of spec.md §4.3's state machine.
type State int32

const (
	StateOpen State = iota
	StateCreated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCreated:
		return "created"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Instance is the per-open object created fresh on every Open and torn
// down on Close. Only Create may transition created false->true: Create
// runs under createMu, so a racing second Create sees created already set
// and fails busy; the flag itself is published with an atomic store.
type Instance struct {
	createMu sync.Mutex // serializes Create/Release; Map stays lock-free
	created  atomic.Bool
	closed   atomic.Bool

	// Set once, during Create, before created is published. Readers must
	// observe created.Load() == true before touching these — the atomic
	// store/load pair is the happens-before edge, per spec.md §5's
	// producer/consumer discipline applied here to "creator publishes,
	// any later Map call consumes."
	submit   *ring.Store
	complete *ring.Store
	shared   *sharedpage.Store
	notifier *Notifier
	params   abi.CreateParams

	log *logging.Logger
}

// New returns a freshly allocated instance in the Open state, with no
// rings or shared page yet allocated — mirroring "the design creates an
// uninitialized instance at open so map and control operations can
// reference it" from spec.md §3.
func New(log *logging.Logger) *Instance {
	if log == nil {
		log = logging.Default()
	}
	return &Instance{log: log}
}

// State reports the instance's current lifecycle state.
func (i *Instance) State() State {
	if i.closed.Load() {
		return StateClosed
	}
	if i.created.Load() {
		return StateCreated
	}
	return StateOpen
}

func validateRingEntries(op string, n uint32) error {
	if n < abi.MinRingEntries || n > abi.MaxRingEntries {
		return ksvcerr.New(op, ksvcerr.KindInvalidArgument,
			"ring entry count out of range")
	}
	if n&(n-1) != 0 {
		return ksvcerr.New(op, ksvcerr.KindInvalidArgument,
			"ring entry count is not a power of two")
	}
	return nil
}

// Create runs the one-shot create transaction of spec.md §4.3: validate,
// allocate submit ring, allocate complete ring, allocate+populate the
// shared page, acquire the event-counter reference, commit. Any failure
// rolls back everything already acquired, in reverse order, and leaves the
// instance in Open for a retry with corrected parameters.
func (i *Instance) Create(params abi.CreateParams) (abi.CreateParams, error) {
	i.createMu.Lock()
	defer i.createMu.Unlock()

	if i.closed.Load() {
		return params, ksvcerr.New("create", ksvcerr.KindInvalidArgument, "instance is closed")
	}
	if i.created.Load() {
		return params, ksvcerr.New("create", ksvcerr.KindBusy, "instance already created")
	}

	if err := validateRingEntries("create", params.SubmitRingEntries); err != nil {
		return params, err
	}
	if err := validateRingEntries("create", params.CompleteRingEntries); err != nil {
		return params, err
	}

	var submit, complete *ring.Store
	var shared *sharedpage.Store
	var notifier *Notifier

	rollback := func() {
		notifier.Release()
		if shared != nil {
			shared.Free()
		}
		if complete != nil {
			complete.Free()
		}
		if submit != nil {
			submit.Free()
		}
	}

	var err error
	submit, err = ring.Allocate(abi.RingMagic, params.SubmitRingEntries, uint32(unsafe.Sizeof(abi.Entry{})))
	if err != nil {
		rollback()
		return params, ksvcerr.Wrap("create", ksvcerr.KindOutOfMemory, err)
	}

	complete, err = ring.Allocate(abi.RingMagic, params.CompleteRingEntries, uint32(unsafe.Sizeof(abi.Completion{})))
	if err != nil {
		rollback()
		return params, ksvcerr.Wrap("create", ksvcerr.KindOutOfMemory, err)
	}

	shared, err = sharedpage.Allocate()
	if err != nil {
		rollback()
		return params, ksvcerr.Wrap("create", ksvcerr.KindOutOfMemory, err)
	}
	if err := shared.Populate(); err != nil {
		rollback()
		return params, ksvcerr.Wrap("create", ksvcerr.KindOutOfMemory, err)
	}

	notifier, err = acquireNotifier(params.Eventfd)
	if err != nil {
		rollback()
		return params, ksvcerr.Wrap("create", ksvcerr.KindInvalidArgument, err)
	}

	i.submit = submit
	i.complete = complete
	i.shared = shared
	i.notifier = notifier
	i.params = params
	i.created.Store(true)

	i.log.Info("instance created",
		"submit_entries", params.SubmitRingEntries,
		"complete_entries", params.CompleteRingEntries,
		"eventfd", params.Eventfd)

	return params, nil
}

// Created reports whether the create transaction has committed. Callers
// that need a region size before mapping (MapSubmitRing and friends) must
// check this first — the rings don't exist yet in the Open state.
func (i *Instance) Created() bool {
	return i.created.Load()
}

// region sizes in bytes for the two ring regions, computed from the
// committed ring sizes — used both to answer Map's size-mismatch checks
// and to tell a device-surface caller (MapSubmitRing, MapCompleteRing)
// how large an address range to reserve. Zero before Create has committed.
func (i *Instance) SubmitRingSize() uintptr {
	if !i.created.Load() {
		return 0
	}
	return uintptr(i.submit.NrPages()) * ring.PageSize
}

func (i *Instance) CompleteRingSize() uintptr {
	if !i.created.Load() {
		return 0
	}
	return uintptr(i.complete.NrPages()) * ring.PageSize
}

// Map installs the region selected by offset into the caller-reserved
// range starting at base. Requires the instance to be Created; unknown
// offsets or size mismatches fail with invalid-argument, matching
// spec.md §6's map-offset table.
func (i *Instance) Map(offset, size, base uintptr) error {
	if !i.created.Load() {
		return ksvcerr.New("map", ksvcerr.KindInvalidArgument, "map before create")
	}
	if i.closed.Load() {
		return ksvcerr.New("map", ksvcerr.KindInvalidArgument, "instance is closed")
	}

	switch offset {
	case abi.OffSubmitRing:
		want := i.SubmitRingSize()
		if size != want {
			return ksvcerr.NewRegion("map", "submit", ksvcerr.KindInvalidArgument, "size mismatch")
		}
		if err := i.submit.InstallIntoRange(base); err != nil {
			return ksvcerr.Wrap("map", ksvcerr.KindNotSupported, err)
		}
		return nil

	case abi.OffCompleteRing:
		want := i.CompleteRingSize()
		if size != want {
			return ksvcerr.NewRegion("map", "complete", ksvcerr.KindInvalidArgument, "size mismatch")
		}
		if err := i.complete.InstallIntoRange(base); err != nil {
			return ksvcerr.Wrap("map", ksvcerr.KindNotSupported, err)
		}
		return nil

	case abi.OffSharedPage:
		if size != ring.PageSize {
			return ksvcerr.NewRegion("map", "shared", ksvcerr.KindInvalidArgument, "size mismatch")
		}
		if err := i.shared.InstallReadOnly(base); err != nil {
			return ksvcerr.Wrap("map", ksvcerr.KindNotSupported, err)
		}
		return nil

	default:
		return ksvcerr.New("map", ksvcerr.KindInvalidArgument, "unknown map offset")
	}
}

// Release tears down everything the instance owns: drops the
// event-counter reference, frees both rings, frees the shared page. Order
// among the three is immaterial per spec.md §4.3; idempotent.
func (i *Instance) Release() error {
	i.createMu.Lock()
	defer i.createMu.Unlock()

	if i.closed.Swap(true) {
		return nil
	}
	i.notifier.Release()
	if i.submit != nil {
		i.submit.Free()
	}
	if i.complete != nil {
		i.complete.Free()
	}
	if i.shared != nil {
		i.shared.Free()
	}
	i.log.Info("instance released")
	return nil
}

// SubmitHeader and CompleteHeader expose the current ring header snapshot
// for test assertions; ok is false if not yet created.
func (i *Instance) SubmitHeader() (abi.RingHeader, bool) {
	if !i.created.Load() {
		return abi.RingHeader{}, false
	}
	return i.submit.Header(), true
}

func (i *Instance) CompleteHeader() (abi.RingHeader, bool) {
	if !i.created.Load() {
		return abi.RingHeader{}, false
	}
	return i.complete.Header(), true
}

// SharedView exposes the current shared-page contents for test assertions.
func (i *Instance) SharedView() (abi.SharedPage, bool) {
	if !i.created.Load() {
		return abi.SharedPage{}, false
	}
	return i.shared.View(), true
}
