package image

import (
	"image"
	"image/color"
)

// FromStdImage creates a Frame from a standard library image.Image.
// Channels are non-premultiplied and scaled to [0,1].
func FromStdImage(img image.Image) *Frame {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	f, err := NewFrame(width, height)
	if err != nil {
		return nil
	}

	// Fast path for NRGBA images
	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := range height {
			src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+width*4]
			dst := f.Row(y)
			for i, v := range src {
				dst[i] = float32(v) / 255
			}
		}
		return f
	}

	// Generic slow path for any image type
	for y := range height {
		for x := range width {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			f.Set(x, y, Pixel{
				float32(c.R) / 255,
				float32(c.G) / 255,
				float32(c.B) / 255,
				float32(c.A) / 255,
			})
		}
	}
	return f
}

// ToNRGBA converts the frame to an 8-bit non-premultiplied image.
// Channels are clamped to [0,1].
func (f *Frame) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.width, f.height))
	for y := range f.height {
		src := f.Row(y)
		dst := img.Pix[y*img.Stride : y*img.Stride+f.width*4]
		for i, v := range src {
			dst[i] = toByte(v)
		}
	}
	return img
}

func toByte(v float32) uint8 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
