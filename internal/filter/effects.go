package filter

import (
	"math"

	"github.com/gogpu/edgefx/internal/image"
)

// Effect tuning.
const (
	// CelLevels is the number of bands per channel.
	CelLevels = 4

	// celSaturation boosts color before quantizing.
	celSaturation = 1.25

	// celInk is the edge intensity at which outlines start.
	celInk = 0.25

	bloomBase  = 0.35
	bloomSwing = 0.15
)

// SoftSmooth applies the wide blur used by the post effects.
func SoftSmooth(dst *image.Frame, in Inputs, _ Params) error {
	if err := require(dst, in.Source, "source"); err != nil {
		return err
	}
	return Blur(dst, in.Source, SoftSmoothRadius)
}

// ColorRestore brings back Original color where Source has edges,
// keeping whichever of the restored color and dst is brighter.
func ColorRestore(dst *image.Frame, in Inputs, _ Params) error {
	if err := require(dst, in.Source, "source"); err != nil {
		return err
	}
	if err := require(dst, in.Original, "original"); err != nil {
		return err
	}
	each(dst, func(x, y int) image.Pixel {
		e := clamp01(in.Source.At(x, y)[0])
		c := in.Original.At(x, y)
		prev := dst.At(x, y)
		return image.Pixel{
			max(prev[0], c[0]*e),
			max(prev[1], c[1]*e),
			max(prev[2], c[2]*e),
			1,
		}
	})
	return nil
}

// BloomPulse returns the glow strength at time t in seconds.
func BloomPulse(t float32) float32 {
	return bloomBase + bloomSwing*float32(math.Sin(float64(t)*2))
}

// Bloom adds a pulsing glow from Blur onto dst.
func Bloom(dst *image.Frame, in Inputs, p Params) error {
	if err := require(dst, in.Blur, "blur"); err != nil {
		return err
	}
	glow := BrightnessMatrix(BloomPulse(p.Time))
	each(dst, func(x, y int) image.Pixel {
		g := glow.Apply(in.Blur.At(x, y))
		prev := dst.At(x, y)
		return image.Pixel{
			clamp01(prev[0] + g[0]),
			clamp01(prev[1] + g[1]),
			clamp01(prev[2] + g[2]),
			1,
		}
	})
	return nil
}

// quantize snaps v to one of CelLevels bands.
func quantize(v float32) float32 {
	const n = CelLevels - 1
	return float32(math.Floor(float64(v)*n+0.5)) / n
}

// CelShade quantizes Source into flat bands and darkens it along the
// edges in Blur.
func CelShade(dst *image.Frame, in Inputs, _ Params) error {
	if err := require(dst, in.Source, "source"); err != nil {
		return err
	}
	if err := require(dst, in.Blur, "blur"); err != nil {
		return err
	}
	boost := SaturationMatrix(celSaturation)
	each(dst, func(x, y int) image.Pixel {
		c := boost.Apply(in.Source.At(x, y))
		e := in.Blur.At(x, y)[0]
		ink := clamp01(1 - (e-celInk)*4)
		return image.Pixel{
			quantize(c[0]) * ink,
			quantize(c[1]) * ink,
			quantize(c[2]) * ink,
			c[3],
		}
	})
	return nil
}
