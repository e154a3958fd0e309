package backend

import (
	"errors"

	"github.com/gogpu/edgefx"
)

// Backend name constants.
const (
	// BackendSoftware is the name of the CPU reference backend.
	BackendSoftware = "software"
	// BackendWGPU is the name of the Pure Go GPU backend (gogpu/wgpu HAL).
	BackendWGPU = "wgpu"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or could not open a device.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Device is an edgefx device that also provides the stage kernels and
// owns releasable resources.
//
// Backends must be registered via Register() and are selected via
// Get() or Default().
type Device interface {
	edgefx.KernelDevice

	// Close releases all device resources.
	// The device should not be used after Close is called.
	Close()
}

// Factory opens a new device. Factories for GPU backends return an error
// when no suitable adapter is present.
type Factory func() (Device, error)
