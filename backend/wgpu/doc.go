// Package wgpu provides the GPU device for edgefx on gogpu/wgpu.
//
// Frames live in storage buffers of vec4<f32>, one element per pixel, so
// every stage reads and writes full float precision regardless of the
// host format. Each stage is a WGSL compute shader: a shared prelude with
// the bindings and sampling helpers, followed by the stage body. Shaders
// are compiled to SPIR-V with naga; a stage naga cannot compile is handed
// to the HAL as WGSL.
//
// All stages share one bind group layout:
//
//	binding 0  uniform             Params (size, flags, thresholds, time)
//	binding 1  storage, read       Source
//	binding 2  storage, read       DepthNormals or Blur
//	binding 3  storage, read       Original
//	binding 4  storage, read_write Result
//
// Unbound inputs are backed by a small placeholder buffer. Dispatches and
// copies are submitted one at a time and waited on with a fence, which
// gives the in-order execution edgefx.Device requires.
//
// # Device sources
//
//   - [Open] creates its own Vulkan instance and device.
//   - [NewWithDevice] uses an existing hal.Device and hal.Queue.
//   - [NewFromProvider] shares the device of a gpucontext.DeviceProvider
//     that also exposes HAL handles (HalDevice/HalQueue).
//
// Importing the package registers [Open] as the "wgpu" backend factory.
package wgpu
