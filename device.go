package ksvc

import (
	"os"

	"github.com/GssMahadevan/ksvc/internal/instance"
	"github.com/GssMahadevan/ksvc/internal/logging"
)

// DeviceName is the well-known character-device name from spec.md §6.
// This module never registers a real /dev node — Go has no kernel-module
// entry point — so Open below is the userspace analogue of open("/dev/ksvc").
const DeviceName = "ksvc"

// Device is the Go-level analogue of the kernel's single miscdevice
// registration. It holds no per-instance state of its own — every Open
// call returns an independent *File, the way every real open() of
// /dev/ksvc gets its own file-private-data instance in spec.md §3.
type Device struct {
	log *logging.Logger
}

// NewDevice constructs a Device. A nil logger falls back to
// logging.Default(), mirroring the teacher's Options-with-defaults
// pattern (backend.go's CreateAndServe filling unset Options fields).
func NewDevice(log *logging.Logger) *Device {
	if log == nil {
		log = logging.Default()
	}
	return &Device{log: log}
}

// Open creates a fresh per-open File containing a freshly allocated,
// uninitialized instance, the device-surface Open step of spec.md §4.4.
func (d *Device) Open() (*File, error) {
	inst := instance.New(d.log)
	d.log.Debug("ksvc device opened", "pid", os.Getpid())
	return &File{inst: inst, log: d.log}, nil
}

// defaultDevice is the package-level Device used by the package-level
// Open() convenience function below, mirroring the module-level default
// logger pattern in internal/logging (logging.Default()).
var defaultDevice = NewDevice(nil)

// Open is a convenience wrapper around defaultDevice.Open(), the
// analogue of calling open("/dev/ksvc") without constructing a Device by
// hand.
func Open() (*File, error) {
	return defaultDevice.Open()
}
