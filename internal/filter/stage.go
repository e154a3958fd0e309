package filter

import (
	"errors"
	"fmt"

	"github.com/gogpu/edgefx/internal/image"
	"github.com/gogpu/edgefx/internal/parallel"
)

// ErrMissingInput is returned when a kernel's required input is unbound.
var ErrMissingInput = errors.New("filter: missing input")

// Inputs are the frames bound to a kernel. Nil fields are unbound.
type Inputs struct {
	Source       *image.Frame
	DepthNormals *image.Frame
	Blur         *image.Frame
	Original     *image.Frame
}

// Params are the scalar kernel parameters.
type Params struct {
	LowThreshold  float32
	HighThreshold float32
	Time          float32
}

// Kernel computes one stage into dst. dst is read-write: kernels that
// composite may read its previous contents.
type Kernel func(dst *image.Frame, in Inputs, p Params) error

// require checks that f is bound and matches dst.
func require(dst, f *image.Frame, name string) error {
	if dst == nil {
		return fmt.Errorf("%w: output", ErrMissingInput)
	}
	if f == nil {
		return fmt.Errorf("%w: %s", ErrMissingInput, name)
	}
	if !f.SameSize(dst) {
		return fmt.Errorf("%s: %w", name, image.ErrSizeMismatch)
	}
	return nil
}

// optional checks f only when it is bound.
func optional(dst, f *image.Frame, name string) error {
	if f == nil {
		return nil
	}
	return require(dst, f, name)
}

// edgePixel encodes an edge intensity as opaque gray.
func edgePixel(v float32) image.Pixel {
	v = clamp01(v)
	return image.Pixel{v, v, v, 1}
}

// each calls fn for every pixel of dst and stores the result. Row bands
// run on the shared worker pool; fn may read dst only at (x, y).
func each(dst *image.Frame, fn func(x, y int) image.Pixel) {
	w := dst.Width()
	parallel.Rows(parallel.Shared(), w, dst.Height(), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := range w {
				dst.Set(x, y, fn(x, y))
			}
		}
	})
}
