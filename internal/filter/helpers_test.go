package filter

import (
	"math"
	"testing"

	"github.com/gogpu/edgefx/internal/image"
)

// newTestFrame creates a w×h frame filled with p.
func newTestFrame(t *testing.T, w, h int, p image.Pixel) *image.Frame {
	t.Helper()
	f, err := image.NewFrame(w, h)
	if err != nil {
		t.Fatalf("NewFrame(%d, %d) error = %v", w, h, err)
	}
	f.Fill(p)
	return f
}

// stepFrame is black on the left half and white on the right half.
func stepFrame(t *testing.T, w, h int) *image.Frame {
	t.Helper()
	f := newTestFrame(t, w, h, image.Pixel{0, 0, 0, 1})
	for y := range h {
		for x := w / 2; x < w; x++ {
			f.Set(x, y, image.Pixel{1, 1, 1, 1})
		}
	}
	return f
}

func approxEqual(a, b, tolerance float32) bool {
	return math.Abs(float64(a-b)) <= float64(tolerance)
}

func pixelApproxEqual(a, b image.Pixel, tolerance float32) bool {
	for i := range a {
		if !approxEqual(a[i], b[i], tolerance) {
			return false
		}
	}
	return true
}
