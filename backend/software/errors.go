package software

import "errors"

// Package errors for the software backend.
var (
	// ErrOutOfBuffers is returned when Options.MaxBuffers live buffers exist.
	ErrOutOfBuffers = errors.New("software: buffer limit reached")

	// ErrUnknownBuffer is returned for IDs the device did not create.
	ErrUnknownBuffer = errors.New("software: unknown buffer")

	// ErrUnknownKernel is returned when a dispatch names a handle the
	// device did not resolve.
	ErrUnknownKernel = errors.New("software: unknown kernel handle")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("software: device closed")
)
