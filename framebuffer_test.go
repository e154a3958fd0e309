package edgefx

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestFormatBytesPerPixel(t *testing.T) {
	tests := []struct {
		format Format
		want   int
		float  bool
		gpu    gputypes.TextureFormat
	}{
		{FormatRGBA8, 4, false, gputypes.TextureFormatRGBA8Unorm},
		{FormatRGBA16Float, 8, true, gputypes.TextureFormatRGBA16Float},
		{FormatRGBA32Float, 16, true, gputypes.TextureFormatRGBA32Float},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			if got := tt.format.BytesPerPixel(); got != tt.want {
				t.Errorf("BytesPerPixel() = %d, want %d", got, tt.want)
			}
			if got := tt.format.IsFloat(); got != tt.float {
				t.Errorf("IsFloat() = %t, want %t", got, tt.float)
			}
			if got := tt.format.GPUFormat(); got != tt.gpu {
				t.Errorf("GPUFormat() = %v, want %v", got, tt.gpu)
			}
		})
	}
	if TemporaryFormat.BytesPerPixel() < 16 || !TemporaryFormat.IsFloat() {
		t.Error("TemporaryFormat must be four-channel 32-bit float")
	}
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr bool
	}{
		{"valid", Descriptor{Width: 1, Height: 1, Format: FormatRGBA8}, false},
		{"zero width", Descriptor{Width: 0, Height: 1}, true},
		{"negative height", Descriptor{Width: 1, Height: -3}, true},
		{"bad format", Descriptor{Width: 1, Height: 1, Format: Format(9)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %t", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("Validate() = %v, want %v", err, ErrInvalidDescriptor)
			}
		})
	}
}

func TestDescriptorSizeBytes(t *testing.T) {
	d := Descriptor{Width: 1920, Height: 1080, Format: FormatRGBA32Float}
	if got, want := d.SizeBytes(), uint64(1920*1080*16); got != want {
		t.Errorf("SizeBytes() = %d, want %d", got, want)
	}
}

func TestNewExternal(t *testing.T) {
	fb := NewExternal(5, Descriptor{Width: 4, Height: 2, Format: FormatRGBA8, Label: "swapchain"})
	if fb.Owner() != OwnerExternal {
		t.Errorf("Owner() = %s, want external", fb.Owner())
	}
	if fb.Generation() != 0 {
		t.Errorf("Generation() = %d, want 0", fb.Generation())
	}
	if fb.RandomWrite() {
		t.Error("RandomWrite() = true, want false")
	}
	if s := fb.String(); !strings.Contains(s, "swapchain") || !strings.Contains(s, "external") {
		t.Errorf("String() = %q", s)
	}
}
