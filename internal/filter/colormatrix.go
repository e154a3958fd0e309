package filter

import (
	"math"

	"github.com/gogpu/edgefx/internal/image"
)

// ColorMatrix is a 4x5 color transformation in row-major order:
//
//	[R']   [a00 a01 a02 a03 a04]   [R]
//	[G'] = [a10 a11 a12 a13 a14] * [G]
//	[B']   [a20 a21 a22 a23 a24]   [B]
//	[A']   [a30 a31 a32 a33 a34]   [A]
//	                               [1]
//
// Channels are in [0,1] and the bias column uses the same units.
type ColorMatrix [20]float32

// IdentityMatrix passes colors through unchanged.
func IdentityMatrix() ColorMatrix {
	return ColorMatrix{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// BrightnessMatrix scales RGB by factor.
func BrightnessMatrix(factor float32) ColorMatrix {
	return ColorMatrix{
		factor, 0, 0, 0, 0,
		0, factor, 0, 0, 0,
		0, 0, factor, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// SaturationMatrix adjusts saturation: 0 is grayscale, 1 unchanged.
// Luminance weights are Rec. 709.
func SaturationMatrix(factor float32) ColorMatrix {
	const lr, lg, lb = 0.2126, 0.7152, 0.0722
	s := factor
	return ColorMatrix{
		lr*(1-s) + s, lg * (1 - s), lb * (1 - s), 0, 0,
		lr * (1 - s), lg*(1-s) + s, lb * (1 - s), 0, 0,
		lr * (1 - s), lg * (1 - s), lb*(1-s) + s, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// HueRotateMatrix rotates hue by degrees.
func HueRotateMatrix(degrees float32) ColorMatrix {
	rad := float64(degrees) * math.Pi / 180
	c := float32(math.Cos(rad))
	s := float32(math.Sin(rad))
	return ColorMatrix{
		0.213 + c*0.787 - s*0.213, 0.715 - c*0.715 - s*0.715, 0.072 - c*0.072 + s*0.928, 0, 0,
		0.213 - c*0.213 + s*0.143, 0.715 + c*0.285 + s*0.140, 0.072 - c*0.072 - s*0.283, 0, 0,
		0.213 - c*0.213 - s*0.787, 0.715 - c*0.715 + s*0.715, 0.072 + c*0.928 + s*0.072, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// Apply transforms p and clamps the result to [0,1].
func (m ColorMatrix) Apply(p image.Pixel) image.Pixel {
	var out image.Pixel
	for row := range 4 {
		o := row * 5
		v := m[o]*p[0] + m[o+1]*p[1] + m[o+2]*p[2] + m[o+3]*p[3] + m[o+4]
		out[row] = clamp01(v)
	}
	return out
}

// Multiply returns the matrix that applies other first, then m.
func (m ColorMatrix) Multiply(other ColorMatrix) ColorMatrix {
	var out ColorMatrix
	for row := range 4 {
		for col := range 5 {
			var sum float32
			for k := range 4 {
				sum += m[row*5+k] * other[k*5+col]
			}
			if col == 4 {
				sum += m[row*5+4]
			}
			out[row*5+col] = sum
		}
	}
	return out
}
