package filter

import (
	"testing"

	"github.com/gogpu/edgefx/internal/image"
)

func TestColorMatrixApply(t *testing.T) {
	p := image.Pixel{0.8, 0.4, 0.2, 1}
	tests := []struct {
		name string
		m    ColorMatrix
		want image.Pixel
	}{
		{"identity", IdentityMatrix(), p},
		{"brightness half", BrightnessMatrix(0.5), image.Pixel{0.4, 0.2, 0.1, 1}},
		{"brightness clamps", BrightnessMatrix(2), image.Pixel{1, 0.8, 0.4, 1}},
		{"hue zero", HueRotateMatrix(0), p},
		{"saturation one", SaturationMatrix(1), p},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.Apply(p); !pixelApproxEqual(got, tt.want, 1e-3) {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSaturationMatrixGrayscale(t *testing.T) {
	got := SaturationMatrix(0).Apply(image.Pixel{1, 0, 0, 1})
	if !approxEqual(got[0], got[1], 1e-5) || !approxEqual(got[1], got[2], 1e-5) {
		t.Errorf("SaturationMatrix(0) = %v, want gray", got)
	}
	if !approxEqual(got[0], 0.2126, 1e-4) {
		t.Errorf("gray level = %v, want 0.2126", got[0])
	}
}

func TestColorMatrixMultiply(t *testing.T) {
	p := image.Pixel{0.5, 0.5, 0.5, 1}
	m := BrightnessMatrix(0.5).Multiply(BrightnessMatrix(1.5))
	want := BrightnessMatrix(0.75).Apply(p)
	if got := m.Apply(p); !pixelApproxEqual(got, want, 1e-5) {
		t.Errorf("Multiply().Apply() = %v, want %v", got, want)
	}
	if got := IdentityMatrix().Multiply(SaturationMatrix(0.3)); got != SaturationMatrix(0.3) {
		t.Errorf("identity * m = %v, want m", got)
	}
}
