package wgpu

import "github.com/gogpu/edgefx/backend"

// init registers the wgpu backend on package import. The factory fails
// when no Vulkan adapter is present, and backend.Default then falls back
// to the next registered backend.
func init() {
	backend.Register(backend.BackendWGPU, func() (backend.Device, error) {
		return Open(Options{})
	})
}
