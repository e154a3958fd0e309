package software

import "github.com/gogpu/edgefx/backend"

// init registers the software backend on package import.
func init() {
	backend.Register(backend.BackendSoftware, func() (backend.Device, error) {
		return New(Options{}), nil
	})
}
