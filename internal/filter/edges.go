package filter

import (
	"math"

	"github.com/gogpu/edgefx/internal/image"
)

// sampler extracts the scalar a detector differentiates.
type sampler func(image.Pixel) float32

func luma(p image.Pixel) float32  { return image.Luminance(p) }
func depth(p image.Pixel) float32 { return p[3] }

func channel(c int) sampler {
	return func(p image.Pixel) float32 { return p[c] }
}

// sobelAt returns the Sobel response of sample over the 3x3 window at
// (x, y). Borders are clamped.
func sobelAt(f *image.Frame, x, y int, sample sampler) (gx, gy float32) {
	for j := range 3 {
		for i := range 3 {
			v := sample(f.At(x+i-1, y+j-1))
			gx += sobelX[j][i] * v
			gy += sobelY[j][i] * v
		}
	}
	return gx, gy
}

func hypot(a, b float32) float32 {
	return float32(math.Hypot(float64(a), float64(b)))
}

// sobelMagnitude returns the normalized Sobel magnitude at (x, y).
func sobelMagnitude(f *image.Frame, x, y int, sample sampler) float32 {
	return hypot(sobelAt(f, x, y, sample)) * sobelNorm
}

// normalMagnitude is the largest per-axis Sobel magnitude of a normal map.
func normalMagnitude(f *image.Frame, x, y int) float32 {
	return max(
		sobelMagnitude(f, x, y, channel(0)),
		sobelMagnitude(f, x, y, channel(1)),
		sobelMagnitude(f, x, y, channel(2)),
	)
}

// ColorEdges detects luminance edges in Source.
func ColorEdges(dst *image.Frame, in Inputs, _ Params) error {
	if err := require(dst, in.Source, "source"); err != nil {
		return err
	}
	each(dst, func(x, y int) image.Pixel {
		return edgePixel(sobelMagnitude(in.Source, x, y, luma))
	})
	return nil
}

// DepthEdges detects depth discontinuities. Without a depth-normal
// capture, luminance of Source stands in for depth.
func DepthEdges(dst *image.Frame, in Inputs, _ Params) error {
	if err := require(dst, in.Source, "source"); err != nil {
		return err
	}
	if err := optional(dst, in.DepthNormals, "depth-normals"); err != nil {
		return err
	}
	src, sample := in.Source, sampler(luma)
	if in.DepthNormals != nil {
		src, sample = in.DepthNormals, depth
	}
	each(dst, func(x, y int) image.Pixel {
		return edgePixel(sobelMagnitude(src, x, y, sample))
	})
	return nil
}

// NormalEdges detects discontinuities in surface normals. Without a
// depth-normal capture, the RGB of Source is treated as a normal map.
func NormalEdges(dst *image.Frame, in Inputs, _ Params) error {
	if err := require(dst, in.Source, "source"); err != nil {
		return err
	}
	if err := optional(dst, in.DepthNormals, "depth-normals"); err != nil {
		return err
	}
	src := in.Source
	if in.DepthNormals != nil {
		src = in.DepthNormals
	}
	each(dst, func(x, y int) image.Pixel {
		return edgePixel(normalMagnitude(src, x, y))
	})
	return nil
}

// CombinedEdges takes the strongest of the color, depth and normal
// responses. Depth and normal cues are used only when bound.
func CombinedEdges(dst *image.Frame, in Inputs, _ Params) error {
	if err := require(dst, in.Source, "source"); err != nil {
		return err
	}
	if err := optional(dst, in.DepthNormals, "depth-normals"); err != nil {
		return err
	}
	dn := in.DepthNormals
	each(dst, func(x, y int) image.Pixel {
		v := sobelMagnitude(in.Source, x, y, luma)
		if dn != nil {
			v = max(v, sobelMagnitude(dn, x, y, depth), normalMagnitude(dn, x, y))
		}
		return edgePixel(v)
	})
	return nil
}
