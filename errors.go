package edgefx

import (
	"errors"
	"fmt"
)

// Pipeline errors.
var (
	// ErrResourceExhausted is returned when a temporary frame buffer cannot be
	// acquired, either because the device refused the allocation or because the
	// pool's memory budget would be exceeded.
	ErrResourceExhausted = errors.New("edgefx: resource exhausted")

	// ErrMissingStageBinding is returned when a stage required by the
	// configuration has no compute kernel in the catalog.
	ErrMissingStageBinding = errors.New("edgefx: missing stage binding")

	// ErrInvalidConfig is reported when thresholds fall outside [0,1] or
	// low > high. Frames are never failed for it; values are clamped.
	ErrInvalidConfig = errors.New("edgefx: invalid config")

	// ErrBufferReleased is returned when a frame buffer is used or released
	// after it has already been returned to the pool.
	ErrBufferReleased = errors.New("edgefx: frame buffer already released")

	// ErrNotRandomWrite is returned when a dispatch output was not acquired
	// with random-write capability.
	ErrNotRandomWrite = errors.New("edgefx: output buffer is not random-write")

	// ErrSizeMismatch is returned when a copy or dispatch mixes buffers of
	// different dimensions.
	ErrSizeMismatch = errors.New("edgefx: frame buffer size mismatch")

	// ErrInvalidDescriptor is returned for non-positive sizes or unknown formats.
	ErrInvalidDescriptor = errors.New("edgefx: invalid descriptor")

	// ErrPoolClosed is returned when operating on a closed pool.
	ErrPoolClosed = errors.New("edgefx: pool closed")

	// ErrNilDevice is returned when a pipeline is created without a device.
	ErrNilDevice = errors.New("edgefx: device is nil")

	// ErrExternalBuffer is returned when releasing a host-owned buffer.
	ErrExternalBuffer = errors.New("edgefx: cannot release external frame buffer")

	// ErrNilFrame is returned when a source or destination frame is missing.
	ErrNilFrame = errors.New("edgefx: frame buffer is nil")
)

// ErrorKind classifies the failures a frame can degrade from.
type ErrorKind uint8

const (
	// KindNone means no error.
	KindNone ErrorKind = iota

	// KindResourceExhausted marks a failed temporary acquisition.
	KindResourceExhausted

	// KindMissingStageBinding marks a stage absent from the catalog.
	KindMissingStageBinding

	// KindInvalidConfig marks thresholds that had to be clamped.
	KindInvalidConfig

	// KindDevice marks any other device failure (dispatch or copy).
	KindDevice
)

// String returns a human-readable name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindResourceExhausted:
		return "ResourceExhausted"
	case KindMissingStageBinding:
		return "MissingStageBinding"
	case KindInvalidConfig:
		return "InvalidConfig"
	case KindDevice:
		return "Device"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// KindOf maps an error returned by the pipeline to its kind.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrResourceExhausted):
		return KindResourceExhausted
	case errors.Is(err, ErrMissingStageBinding):
		return KindMissingStageBinding
	case errors.Is(err, ErrInvalidConfig):
		return KindInvalidConfig
	default:
		return KindDevice
	}
}
