package filter

import (
	"sync"

	"github.com/gogpu/edgefx/internal/image"
)

// Blur applies a separable Gaussian blur of the given radius to src and
// writes the result to dst. A radius <= 0 copies src unchanged.
//
// The two passes go through a pooled temporary, so src and dst may be the
// same frame.
func Blur(dst, src *image.Frame, radius float64) error {
	return convolveSeparable(dst, src, CachedGaussianKernel(radius))
}

// BoxBlur applies a separable box blur of the given integer radius.
func BoxBlur(dst, src *image.Frame, radius int) error {
	return convolveSeparable(dst, src, BoxKernel(radius))
}

func convolveSeparable(dst, src *image.Frame, kernel []float32) error {
	if dst == nil || src == nil {
		return ErrMissingInput
	}
	if !dst.SameSize(src) {
		return image.ErrSizeMismatch
	}
	if len(kernel) == 1 {
		return dst.CopyFrom(src, false)
	}

	temp := tempFrames.Get(src.Width(), src.Height())
	defer tempFrames.Put(temp)

	blurHorizontal(src, temp, kernel)
	blurVertical(temp, dst, kernel)
	return nil
}

// blurHorizontal convolves each row of src into temp, extending edges.
func blurHorizontal(src, temp *image.Frame, kernel []float32) {
	half := len(kernel) / 2
	width := src.Width()
	for y := range src.Height() {
		in := src.Row(y)
		out := temp.Row(y)
		for x := range width {
			var r, g, b, a float32
			for k, weight := range kernel {
				i := clamp(x+k-half, 0, width-1) * image.Channels
				r += in[i] * weight
				g += in[i+1] * weight
				b += in[i+2] * weight
				a += in[i+3] * weight
			}
			o := x * image.Channels
			out[o], out[o+1], out[o+2], out[o+3] = r, g, b, a
		}
	}
}

// blurVertical convolves each column of temp into dst, extending edges.
func blurVertical(temp, dst *image.Frame, kernel []float32) {
	half := len(kernel) / 2
	height := temp.Height()
	for y := range height {
		out := dst.Row(y)
		for x := range temp.Width() {
			var r, g, b, a float32
			o := x * image.Channels
			for k, weight := range kernel {
				in := temp.Row(clamp(y+k-half, 0, height-1))
				r += in[o] * weight
				g += in[o+1] * weight
				b += in[o+2] * weight
				a += in[o+3] * weight
			}
			out[o], out[o+1], out[o+2], out[o+3] = r, g, b, a
		}
	}
}

// tempPool hands out scratch frames for multi-pass kernels.
type tempPool struct {
	once sync.Once
	pool *image.Pool
}

var tempFrames tempPool

func (p *tempPool) Get(width, height int) *image.Frame {
	p.once.Do(func() { p.pool = image.NewPool(2) })
	return p.pool.Get(width, height)
}

func (p *tempPool) Put(f *image.Frame) {
	p.pool.Put(f)
}
