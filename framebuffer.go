package edgefx

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// Format represents the pixel format of a frame buffer.
type Format uint8

const (
	// FormatRGBA8 is 8-bit unsigned normalized RGBA, typical for host frames.
	FormatRGBA8 Format = iota

	// FormatRGBA16Float is 16-bit floating point RGBA.
	FormatRGBA16Float

	// FormatRGBA32Float is 32-bit floating point RGBA. Every temporary the
	// pipeline acquires uses this format.
	FormatRGBA32Float

	formatCount
)

// String returns a human-readable name for the format.
func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatRGBA16Float:
		return "RGBA16F"
	case FormatRGBA32Float:
		return "RGBA32F"
	default:
		return fmt.Sprintf("Unknown(%d)", f)
	}
}

// IsValid reports whether f is a known format.
func (f Format) IsValid() bool {
	return f < formatCount
}

// IsFloat reports whether f stores floating point channels.
func (f Format) IsFloat() bool {
	return f == FormatRGBA16Float || f == FormatRGBA32Float
}

// BytesPerPixel returns the number of bytes per pixel for the format.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGBA8:
		return 4
	case FormatRGBA16Float:
		return 8
	case FormatRGBA32Float:
		return 16
	default:
		return 4
	}
}

// GPUFormat converts to the equivalent gputypes texture format.
func (f Format) GPUFormat() gputypes.TextureFormat {
	switch f {
	case FormatRGBA16Float:
		return gputypes.TextureFormatRGBA16Float
	case FormatRGBA32Float:
		return gputypes.TextureFormatRGBA32Float
	default:
		return gputypes.TextureFormatRGBA8Unorm
	}
}

// TemporaryFormat is the format of every pipeline temporary.
const TemporaryFormat = FormatRGBA32Float

// Descriptor describes a frame buffer to allocate.
type Descriptor struct {
	// Width and Height are the dimensions in pixels. Both must be positive.
	Width  int
	Height int

	// Format is the pixel format.
	Format Format

	// RandomWrite marks buffers written directly by compute kernels.
	RandomWrite bool

	// Label is an optional debug label. It does not take part in pooling.
	Label string
}

// Validate checks dimensions and format.
func (d Descriptor) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDescriptor, d.Width, d.Height)
	}
	if !d.Format.IsValid() {
		return fmt.Errorf("%w: format %s", ErrInvalidDescriptor, d.Format)
	}
	return nil
}

// SizeBytes returns the memory footprint of a buffer with this descriptor.
func (d Descriptor) SizeBytes() uint64 {
	//nolint:gosec // G115: dimensions validated positive
	return uint64(d.Width) * uint64(d.Height) * uint64(d.Format.BytesPerPixel())
}

// key strips the label so equal shapes share pool buckets.
func (d Descriptor) key() Descriptor {
	d.Label = ""
	return d
}

// BufferID is an opaque device-level buffer handle.
type BufferID uint64

// Owner tags who is responsible for releasing a frame buffer.
type Owner uint8

const (
	// OwnerTemporary buffers are acquired from and released to a Pool.
	OwnerTemporary Owner = iota

	// OwnerExternal buffers are supplied by the host and never released
	// by the pipeline.
	OwnerExternal
)

// String returns the owner name.
func (o Owner) String() string {
	if o == OwnerExternal {
		return "external"
	}
	return "temporary"
}

// FrameBuffer is a handle to a GPU image resource.
//
// A temporary FrameBuffer is valid from Pool.Acquire until Pool.Release.
// Releasing marks the handle released; the underlying device buffer may be
// handed out again under a new handle with a higher generation.
//
// FrameBuffer is not safe for concurrent use; a frame is processed on a
// single goroutine.
type FrameBuffer struct {
	id         BufferID
	desc       Descriptor
	owner      Owner
	generation uint64
	released   atomic.Bool
}

// NewExternal wraps a host-owned device buffer.
func NewExternal(id BufferID, desc Descriptor) *FrameBuffer {
	return &FrameBuffer{id: id, desc: desc, owner: OwnerExternal}
}

// ID returns the device buffer handle.
func (fb *FrameBuffer) ID() BufferID { return fb.id }

// Descriptor returns the buffer's descriptor.
func (fb *FrameBuffer) Descriptor() Descriptor { return fb.desc }

// Width returns the width in pixels.
func (fb *FrameBuffer) Width() int { return fb.desc.Width }

// Height returns the height in pixels.
func (fb *FrameBuffer) Height() int { return fb.desc.Height }

// Format returns the pixel format.
func (fb *FrameBuffer) Format() Format { return fb.desc.Format }

// RandomWrite reports whether compute kernels may write to the buffer.
func (fb *FrameBuffer) RandomWrite() bool { return fb.desc.RandomWrite }

// Owner returns the ownership tag.
func (fb *FrameBuffer) Owner() Owner { return fb.owner }

// Generation returns the pool generation the handle was issued under.
// External buffers report zero.
func (fb *FrameBuffer) Generation() uint64 { return fb.generation }

// Released reports whether the handle has been released.
func (fb *FrameBuffer) Released() bool { return fb.released.Load() }

// sameSize reports whether fb and other have identical dimensions.
func (fb *FrameBuffer) sameSize(other *FrameBuffer) bool {
	return fb.desc.Width == other.desc.Width && fb.desc.Height == other.desc.Height
}

// String returns a string representation of the frame buffer.
func (fb *FrameBuffer) String() string {
	status := "live"
	if fb.released.Load() {
		status = "released"
	}
	return fmt.Sprintf("FrameBuffer[%s #%d gen %d %dx%d %s rw=%t %s %s]",
		fb.desc.Label, fb.id, fb.generation, fb.desc.Width, fb.desc.Height,
		fb.desc.Format, fb.desc.RandomWrite, fb.owner, status)
}
