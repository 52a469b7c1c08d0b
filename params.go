package ksvc

import "github.com/GssMahadevan/ksvc/internal/abi"

// CreateParams is the single control command's parameter block: submitted
// by the caller, validated and echoed back unchanged. Reserved is neither
// inspected nor cleared by this module — the permissive behavior of the
// original kernel module, preserved per spec.md §9's Open Question on
// reserved-bytes strictness.
type CreateParams = abi.CreateParams

// Ring size bounds re-exported from the ABI package, mirroring the
// teacher's pattern of re-exporting internal/constants values as part of
// the public API (see DefaultQueueDepth et al. in the teacher's
// constants.go).
const (
	MinRingEntries = abi.MinRingEntries
	MaxRingEntries = abi.MaxRingEntries
)

// CmdCreate is the one control command code File.Control accepts; any
// other code fails with KindNotATTY, per spec.md §4.4/§6.
const CmdCreate = abi.CmdCreate

// Limits documents the ring-size bounds a CreateParams must satisfy.
// A standalone struct rather than bare constants so a dispatcher can
// introspect the bounds (e.g. to size its own buffers) the way the
// teacher's DeviceParams bundles its own defaults.
type Limits struct {
	MinRingEntries uint32
	MaxRingEntries uint32
}

// DefaultLimits returns the spec-mandated ring-size bounds.
func DefaultLimits() Limits {
	return Limits{MinRingEntries: MinRingEntries, MaxRingEntries: MaxRingEntries}
}

// DefaultCreateParams returns a CreateParams with the scenario-A ring
// sizes from spec.md §8 (64 submission entries, 64 completion entries,
// notifications disabled), mirroring the teacher's DefaultDeviceParams
// constructor pattern.
func DefaultCreateParams() CreateParams {
	return CreateParams{
		SubmitRingEntries:   64,
		CompleteRingEntries: 64,
		Flags:               abi.CreateDefault,
		Eventfd:             -1,
	}
}
