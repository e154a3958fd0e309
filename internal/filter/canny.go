package filter

import (
	"math"

	"github.com/gogpu/edgefx/internal/image"
)

// Radii of the smoothing kernels.
const (
	SmoothRadius     = 1.0
	SoftSmoothRadius = 2.0
)

// Smooth applies the Gaussian pre-blur of the Canny refinement.
func Smooth(dst *image.Frame, in Inputs, _ Params) error {
	if err := require(dst, in.Source, "source"); err != nil {
		return err
	}
	return Blur(dst, in.Source, SmoothRadius)
}

// Gradient computes the Sobel gradient of the R channel of Source.
// Output R is the normalized magnitude, G the direction over π.
func Gradient(dst *image.Frame, in Inputs, _ Params) error {
	if err := require(dst, in.Source, "source"); err != nil {
		return err
	}
	each(dst, func(x, y int) image.Pixel {
		gx, gy := sobelAt(in.Source, x, y, channel(0))
		mag := clamp01(hypot(gx, gy) * sobelNorm)
		dir := float32(math.Atan2(float64(gy), float64(gx)) / math.Pi)
		return image.Pixel{mag, dir, 0, 1}
	})
	return nil
}

// directionStep quantizes an encoded gradient direction into the
// neighbor offset along the gradient.
func directionStep(dir float32) (dx, dy int) {
	deg := float64(dir) * 180
	if deg < 0 {
		deg += 180
	}
	switch {
	case deg < 22.5 || deg >= 157.5:
		return 1, 0
	case deg < 67.5:
		return 1, 1
	case deg < 112.5:
		return 0, 1
	default:
		return -1, 1
	}
}

// NonMax keeps gradient magnitudes that are local maxima along the
// gradient direction and zeroes the rest.
func NonMax(dst *image.Frame, in Inputs, _ Params) error {
	if err := require(dst, in.Source, "source"); err != nil {
		return err
	}
	src := in.Source
	each(dst, func(x, y int) image.Pixel {
		p := src.At(x, y)
		mag, dir := p[0], p[1]
		dx, dy := directionStep(dir)
		if mag < src.At(x+dx, y+dy)[0] || mag < src.At(x-dx, y-dy)[0] {
			mag = 0
		}
		return image.Pixel{mag, dir, 0, 1}
	})
	return nil
}

// Hysteresis applies double thresholding: magnitudes at or above high are
// edges, magnitudes at or above low are edges when an 8-neighbor is strong.
func Hysteresis(dst *image.Frame, in Inputs, p Params) error {
	if err := require(dst, in.Source, "source"); err != nil {
		return err
	}
	src := in.Source
	low, high := clamp01(p.LowThreshold), clamp01(p.HighThreshold)
	strong := func(x, y int) bool {
		if x < 0 || y < 0 || x >= src.Width() || y >= src.Height() {
			return false
		}
		return src.At(x, y)[0] >= high
	}
	each(dst, func(x, y int) image.Pixel {
		mag := src.At(x, y)[0]
		switch {
		case mag <= 0:
			return edgePixel(0)
		case mag >= high:
			return edgePixel(1)
		case mag < low:
			return edgePixel(0)
		}
		for j := -1; j <= 1; j++ {
			for i := -1; i <= 1; i++ {
				if (i != 0 || j != 0) && strong(x+i, y+j) {
					return edgePixel(1)
				}
			}
		}
		return edgePixel(0)
	})
	return nil
}
