package wgpu

import "errors"

// Package errors for the wgpu backend.
var (
	// ErrNoAdapter is returned when no GPU adapter is found.
	ErrNoAdapter = errors.New("wgpu: no GPU adapter found")

	// ErrBackendUnavailable is returned when the Vulkan HAL backend is
	// not registered.
	ErrBackendUnavailable = errors.New("wgpu: vulkan backend not available")

	// ErrNoHALProvider is returned when a device provider does not expose
	// hal.Device and hal.Queue.
	ErrNoHALProvider = errors.New("wgpu: provider does not expose HAL types")

	// ErrUnknownBuffer is returned for IDs the device did not create.
	ErrUnknownBuffer = errors.New("wgpu: unknown buffer")

	// ErrUnknownKernel is returned for handles the device did not resolve.
	ErrUnknownKernel = errors.New("wgpu: unknown kernel handle")

	// ErrSizeMismatch is returned when copying between buffers of
	// different dimensions.
	ErrSizeMismatch = errors.New("wgpu: buffer size mismatch")

	// ErrGPUTimeout is returned when a submission does not complete.
	ErrGPUTimeout = errors.New("wgpu: GPU wait timed out")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("wgpu: device closed")
)
