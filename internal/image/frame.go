// Package image provides float RGBA frame storage for the software backend.
//
// A Frame holds four float32 channels per pixel in row-major order, the
// same layout the GPU backend uses for its storage buffers, so kernels can
// be written once against (x, y) addressing and compared across backends.
package image

import (
	"errors"
)

// Common errors for frame operations.
var (
	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("image: invalid dimensions")

	// ErrSizeMismatch is returned when copying between frames of different size.
	ErrSizeMismatch = errors.New("image: frame size mismatch")
)

// Channels is the number of float32 values per pixel.
const Channels = 4

// Pixel is one RGBA sample. Channels are nominally in [0,1]; kernels may
// store other quantities (gradient direction, edge flags) in them.
type Pixel [Channels]float32

// Frame is a width × height float RGBA image.
//
// Thread safety: Frame is safe for concurrent read access. Writes require
// external synchronization.
type Frame struct {
	pix    []float32
	width  int
	height int
}

// NewFrame creates a zeroed frame.
func NewFrame(width, height int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	return &Frame{
		pix:    make([]float32, width*height*Channels),
		width:  width,
		height: height,
	}, nil
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.width }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.height }

// Pix returns the raw channel data. Modifications affect the frame.
func (f *Frame) Pix() []float32 { return f.pix }

// Row returns the channel data of row y.
func (f *Frame) Row(y int) []float32 {
	start := y * f.width * Channels
	return f.pix[start : start+f.width*Channels]
}

// SameSize reports whether f and other have identical dimensions.
func (f *Frame) SameSize(other *Frame) bool {
	return f.width == other.width && f.height == other.height
}

// At returns the pixel at (x, y). Coordinates outside the frame are
// clamped to the nearest edge pixel.
func (f *Frame) At(x, y int) Pixel {
	x = clampInt(x, 0, f.width-1)
	y = clampInt(y, 0, f.height-1)
	i := (y*f.width + x) * Channels
	return Pixel{f.pix[i], f.pix[i+1], f.pix[i+2], f.pix[i+3]}
}

// Set writes the pixel at (x, y). Out-of-bounds writes are ignored.
func (f *Frame) Set(x, y int, p Pixel) {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return
	}
	i := (y*f.width + x) * Channels
	copy(f.pix[i:i+Channels], p[:])
}

// Fill sets every pixel to p.
func (f *Frame) Fill(p Pixel) {
	for i := 0; i < len(f.pix); i += Channels {
		copy(f.pix[i:i+Channels], p[:])
	}
}

// Clear zeroes every channel.
func (f *Frame) Clear() {
	clear(f.pix)
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	pix := make([]float32, len(f.pix))
	copy(pix, f.pix)
	return &Frame{pix: pix, width: f.width, height: f.height}
}

// CopyFrom copies every pixel of src into f. With flip the rows are
// written in reverse order.
func (f *Frame) CopyFrom(src *Frame, flip bool) error {
	if !f.SameSize(src) {
		return ErrSizeMismatch
	}
	if !flip {
		copy(f.pix, src.pix)
		return nil
	}
	for y := range f.height {
		copy(f.Row(f.height-1-y), src.Row(y))
	}
	return nil
}

// ByteSize returns the memory footprint of the pixel data.
func (f *Frame) ByteSize() int {
	return len(f.pix) * 4
}

// Luminance returns the Rec. 709 luma of p.
func Luminance(p Pixel) float32 {
	return 0.2126*p[0] + 0.7152*p[1] + 0.0722*p[2]
}

func clampInt(v, minVal, maxVal int) int {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
