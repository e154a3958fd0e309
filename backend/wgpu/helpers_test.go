//go:build !nogpu

package wgpu

import (
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop device and queue for testing.
// The device is destroyed when the test ends.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		t.Fatal("noop API exposed no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

// newTestDevice wraps a noop device.
func newTestDevice(t *testing.T, opts Options) *Device {
	t.Helper()
	hd, hq := createNoopDevice(t)
	d, err := NewWithDevice(hd, hq, opts)
	if err != nil {
		t.Fatalf("NewWithDevice() error = %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

// nagaLimitation reports whether err is a known naga gap rather than a
// shader bug.
func nagaLimitation(err error) bool {
	s := err.Error()
	for _, known := range []string{"not yet implemented", "not supported", "lowering error"} {
		if strings.Contains(s, known) {
			return true
		}
	}
	return false
}
