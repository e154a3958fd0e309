// Package backend provides a registry of edgefx device implementations.
//
// # Backend Registration
//
// Backends register a Factory from init() functions and are selected at
// runtime. Import the backends you want to make available:
//
//	import (
//		_ "github.com/gogpu/edgefx/backend/software"
//		_ "github.com/gogpu/edgefx/backend/wgpu"
//	)
//
// # Backend Selection
//
// Use Default() to open the best available device, or Get() to request
// a specific backend by name:
//
//	// GPU if an adapter is present, otherwise the CPU reference device
//	dev, err := backend.Default()
//
//	// Or request a specific backend
//	dev, err := backend.Get(backend.BackendSoftware)
//
// The returned device plugs straight into a pipeline:
//
//	p, err := edgefx.NewPipeline(dev)
//	defer dev.Close()
//	defer p.Close()
package backend
