package edgefx

import (
	"reflect"
	"testing"
)

type mockHost struct {
	src, dst, dn *FrameBuffer
	requests     []bool
}

func (h *mockHost) SourceFrame() *FrameBuffer      { return h.src }
func (h *mockHost) DestinationFrame() *FrameBuffer { return h.dst }
func (h *mockHost) RequestDepthNormalCapture(enable bool) {
	h.requests = append(h.requests, enable)
}

type mockDepthHost struct {
	mockHost
}

func (h *mockDepthHost) DepthNormalFrame() *FrameBuffer { return h.dn }

func TestRenderFrameRequestsCapture(t *testing.T) {
	dev := newFakeDevice()
	p, _ := newTestPipeline(t, dev)
	host := &mockHost{src: dev.external(16, 16, "src"), dst: dev.external(16, 16, "dst")}

	enabled := DefaultConfig()
	disabled := enabled
	disabled.Enabled = false

	RenderFrame(host, p, enabled, 0)
	RenderFrame(host, p, disabled, 0)

	if want := []bool{true, false}; !reflect.DeepEqual(host.requests, want) {
		t.Errorf("capture requests = %v, want %v", host.requests, want)
	}
}

func TestRenderFrameBindsDepthNormals(t *testing.T) {
	dev := newFakeDevice()
	p, _ := newTestPipeline(t, dev)
	host := &mockDepthHost{mockHost{
		src: dev.external(16, 16, "src"),
		dst: dev.external(16, 16, "dst"),
		dn:  dev.external(16, 16, "dn"),
	}}

	cfg := DefaultConfig()
	cfg.Mode = ModeDepth
	r := RenderFrame(host, p, cfg, 2)

	if r.FellBack {
		t.Fatalf("frame fell back: %v", r.Err)
	}
	if got, want := dev.content(host.dst), "Depth(src,dn)"; got != want {
		t.Errorf("destination = %q, want %q", got, want)
	}
}

func TestRenderFrameWithoutKernels(t *testing.T) {
	dev := newFakeDevice()
	dev.stages = map[Stage]bool{}
	p, _ := newTestPipeline(t, dev)
	host := &mockHost{src: dev.external(16, 16, "src"), dst: dev.external(16, 16, "dst")}

	r := RenderFrame(host, p, DefaultConfig(), 0)

	if want := []bool{false}; !reflect.DeepEqual(host.requests, want) {
		t.Errorf("capture requests = %v, want %v", host.requests, want)
	}
	if got := dev.content(host.dst); got != "src" {
		t.Errorf("destination = %q, want %q", got, "src")
	}
	if !r.Identity() {
		t.Error("Identity() = false, want true")
	}
}
