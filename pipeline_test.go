package edgefx

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

// newTestPipeline returns a pipeline over a fresh fake device with a
// recording reporter.
func newTestPipeline(t *testing.T, dev *fakeDevice) (*Pipeline, *recordingReporter) {
	t.Helper()
	rep := &recordingReporter{}
	p, err := NewPipeline(dev, WithReporter(rep))
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	t.Cleanup(p.Close)
	return p, rep
}

// testFrame returns a 64x48 source and destination registered with dev.
func testFrame(dev *fakeDevice) Frame {
	return Frame{
		Source:      dev.external(64, 48, "src"),
		Destination: dev.external(64, 48, "stale"),
		Time:        1.5,
	}
}

func assertClean(t *testing.T, p *Pipeline, dev *fakeDevice, r Report) {
	t.Helper()
	if got := p.Pool().Outstanding(); got != 0 {
		t.Errorf("Pool().Outstanding() = %d, want 0", got)
	}
	if r.Acquired != r.Released {
		t.Errorf("Report acquired %d, released %d; want equal", r.Acquired, r.Released)
	}
	if len(dev.violations) > 0 {
		t.Errorf("device violations: %v", dev.violations)
	}
}

func TestNewPipelineNilDevice(t *testing.T) {
	_, err := NewPipeline(nil)
	if !errors.Is(err, ErrNilDevice) {
		t.Errorf("NewPipeline(nil) error = %v, want %v", err, ErrNilDevice)
	}
}

func TestNewPipelinePropagatesLogger(t *testing.T) {
	dev := newFakeDevice()
	l := newNopLogger()
	p, err := NewPipeline(dev, WithLogger(l))
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	defer p.Close()
	if dev.logger != l {
		t.Error("WithLogger did not propagate to device")
	}
}

func TestProcessDisabledIsIdentity(t *testing.T) {
	dev := newFakeDevice()
	p, rep := newTestPipeline(t, dev)
	frame := testFrame(dev)

	cfg := DefaultConfig()
	cfg.Enabled = false
	cfg.Refine = true
	r := p.Process(frame, cfg)

	if got := dev.content(frame.Destination); got != "src" {
		t.Errorf("destination = %q, want %q", got, "src")
	}
	if r.Acquired != 0 || dev.count("create") != 0 {
		t.Errorf("disabled frame allocated: acquired %d, created %d", r.Acquired, dev.count("create"))
	}
	if r.Copies != 1 {
		t.Errorf("Copies = %d, want 1", r.Copies)
	}
	if r.FellBack || r.Err != nil {
		t.Errorf("FellBack = %t, Err = %v; want clean identity", r.FellBack, r.Err)
	}
	if want := []State{StateStart, StateEnd}; !reflect.DeepEqual(r.Path, want) {
		t.Errorf("Path = %v, want %v", r.Path, want)
	}
	if !r.Identity() {
		t.Error("Identity() = false, want true")
	}
	if len(rep.events) != 0 {
		t.Errorf("events = %v, want none", rep.events)
	}
	assertClean(t, p, dev, r)
}

func TestProcessColorWithoutRefine(t *testing.T) {
	dev := newFakeDevice()
	p, _ := newTestPipeline(t, dev)
	frame := testFrame(dev)

	r := p.Process(frame, DefaultConfig())

	if want := []Stage{StageColor}; !reflect.DeepEqual(r.Dispatches, want) {
		t.Errorf("Dispatches = %v, want %v", r.Dispatches, want)
	}
	if r.Copies != 1 {
		t.Errorf("Copies = %d, want 1 composite copy", r.Copies)
	}
	if got, want := dev.content(frame.Destination), "Color(src)"; got != want {
		t.Errorf("destination = %q, want %q", got, want)
	}
	if want := []State{StateStart, StateBaseDetect, StateComposite, StateEnd}; !reflect.DeepEqual(r.Path, want) {
		t.Errorf("Path = %v, want %v", r.Path, want)
	}
	if r.Acquired != 1 {
		t.Errorf("Acquired = %d, want 1", r.Acquired)
	}
	assertClean(t, p, dev, r)
}

func TestProcessCustomRefined(t *testing.T) {
	dev := newFakeDevice()
	p, _ := newTestPipeline(t, dev)
	frame := testFrame(dev)

	cfg := Config{Enabled: true, Mode: ModeCustom, Refine: true, LowThreshold: 0.1, HighThreshold: 0.3}
	r := p.Process(frame, cfg)

	want := []Stage{
		StageCustom, StageSmooth, StageGradient, StageNonMax, StageHysteresis,
		StageSoftSmooth, StageColorRestore, StageColorRestore, StageBloom,
	}
	if !reflect.DeepEqual(r.Dispatches, want) {
		t.Errorf("Dispatches = %v, want %v", r.Dispatches, want)
	}
	if r.FlippedCopies != 1 {
		t.Errorf("FlippedCopies = %d, want 1", r.FlippedCopies)
	}
	wantPath := []State{
		StateStart, StateBaseDetect, StateRefineEntry, StateCannyStages,
		StatePostBranch, StateCustomEffect, StateComposite, StateEnd,
	}
	if !reflect.DeepEqual(r.Path, wantPath) {
		t.Errorf("Path = %v, want %v", r.Path, wantPath)
	}

	ops := dev.dispatches()
	bloom := ops[len(ops)-1]
	if bloom.params.Time != 1.5 {
		t.Errorf("Bloom Time = %g, want 1.5", bloom.params.Time)
	}
	if !reflect.DeepEqual(bloom.inputs, []Slot{SlotBlur}) {
		t.Errorf("Bloom inputs = %v, want [Blur]", bloom.inputs)
	}
	for _, op := range ops[6:8] {
		if !reflect.DeepEqual(op.inputs, []Slot{SlotSource, SlotOriginal}) {
			t.Errorf("ColorRestore inputs = %v, want [Source Original]", op.inputs)
		}
	}
	assertClean(t, p, dev, r)
}

func TestProcessDepthRefinedCelShade(t *testing.T) {
	dev := newFakeDevice()
	p, _ := newTestPipeline(t, dev)
	frame := testFrame(dev)

	cfg := Config{Enabled: true, Mode: ModeDepth, Refine: true, CelShade: true, LowThreshold: 0.1, HighThreshold: 0.3}
	r := p.Process(frame, cfg)

	want := []Stage{
		StageDepth, StageSmooth, StageGradient, StageNonMax, StageHysteresis,
		StageSoftSmooth, StageCelShade,
	}
	if !reflect.DeepEqual(r.Dispatches, want) {
		t.Errorf("Dispatches = %v, want %v", r.Dispatches, want)
	}
	if r.FlippedCopies != 0 {
		t.Errorf("FlippedCopies = %d, want 0", r.FlippedCopies)
	}

	ops := dev.dispatches()
	cel := ops[len(ops)-1]
	if !reflect.DeepEqual(cel.inputs, []Slot{SlotSource, SlotBlur}) {
		t.Errorf("CelShade inputs = %v, want [Source Blur]", cel.inputs)
	}
	// The cel overlay reads the original color frame as its primary input.
	if got := dev.content(frame.Destination); len(got) < 13 || got[:13] != "CelShade(src," {
		t.Errorf("destination = %q, want CelShade(src,...)", got)
	}
	assertClean(t, p, dev, r)
}

func TestProcessPlainRefined(t *testing.T) {
	dev := newFakeDevice()
	p, _ := newTestPipeline(t, dev)
	frame := testFrame(dev)

	cfg := Config{Enabled: true, Mode: ModeNormal, Refine: true, LowThreshold: 0.2, HighThreshold: 0.4}
	r := p.Process(frame, cfg)

	want := []Stage{StageNormal, StageSmooth, StageGradient, StageNonMax, StageHysteresis}
	if !reflect.DeepEqual(r.Dispatches, want) {
		t.Errorf("Dispatches = %v, want %v", r.Dispatches, want)
	}
	if r.Path[len(r.Path)-3] != StatePlainRefined {
		t.Errorf("Path = %v, want PlainRefined before Composite", r.Path)
	}
	// Smooth, Gradient and NonMax each save; RefineEntry copies once; plus
	// the composite.
	if r.Copies != 5 {
		t.Errorf("Copies = %d, want 5", r.Copies)
	}
	assertClean(t, p, dev, r)
}

func TestProcessSecondAcquisitionFails(t *testing.T) {
	dev := newFakeDevice()
	dev.failCreate = 2
	p, rep := newTestPipeline(t, dev)
	frame := testFrame(dev)

	cfg := Config{Enabled: true, Mode: ModeColor, Refine: true, LowThreshold: 0.1, HighThreshold: 0.3}
	r := p.Process(frame, cfg)

	if got := dev.content(frame.Destination); got != "src" {
		t.Errorf("destination = %q, want identity copy %q", got, "src")
	}
	if !r.FellBack {
		t.Error("FellBack = false, want true")
	}
	if !errors.Is(r.Err, ErrResourceExhausted) {
		t.Errorf("Err = %v, want %v", r.Err, ErrResourceExhausted)
	}
	if !errors.Is(r.Err, errInjected) {
		t.Errorf("Err = %v, want wrapped device error", r.Err)
	}
	if want := []ErrorKind{KindResourceExhausted}; !reflect.DeepEqual(rep.kinds(), want) {
		t.Errorf("events = %v, want %v", rep.kinds(), want)
	}
	if r.Acquired != 1 || r.Released != 1 {
		t.Errorf("Acquired/Released = %d/%d, want 1/1", r.Acquired, r.Released)
	}
	assertClean(t, p, dev, r)
}

func TestProcessResourceExhaustedReportedPerFrame(t *testing.T) {
	dev := newFakeDevice()
	dev.failCreate = 1
	p, rep := newTestPipeline(t, dev)
	frame := testFrame(dev)

	p.Process(frame, DefaultConfig())
	p.Process(frame, DefaultConfig()) // second create succeeds

	if want := []ErrorKind{KindResourceExhausted}; !reflect.DeepEqual(rep.kinds(), want) {
		t.Errorf("events = %v, want %v", rep.kinds(), want)
	}
}

func TestProcessMissingStageReportedOnce(t *testing.T) {
	dev := newFakeDevice()
	dev.stages = map[Stage]bool{StageColor: true, StageSmooth: true, StageGradient: true, StageNonMax: true}
	p, rep := newTestPipeline(t, dev)
	frame := testFrame(dev)

	cfg := Config{Enabled: true, Mode: ModeColor, Refine: true, LowThreshold: 0.1, HighThreshold: 0.3}
	for i := range 3 {
		r := p.Process(frame, cfg)
		if !r.FellBack || r.Kind() != KindMissingStageBinding {
			t.Fatalf("frame %d: FellBack = %t, Kind() = %s; want MissingStageBinding fallback", i, r.FellBack, r.Kind())
		}
		if r.Acquired != 0 {
			t.Errorf("frame %d: Acquired = %d, want 0", i, r.Acquired)
		}
		if got := dev.content(frame.Destination); got != "src" {
			t.Errorf("frame %d: destination = %q, want %q", i, got, "src")
		}
	}
	if len(rep.events) != 1 {
		t.Fatalf("events = %d, want 1", len(rep.events))
	}
	if rep.events[0].Stage != StageHysteresis {
		t.Errorf("event stage = %s, want Hysteresis", rep.events[0].Stage)
	}

	// Unrefined color frames need only the bound detector.
	if r := p.Process(frame, DefaultConfig()); r.FellBack {
		t.Errorf("unrefined frame fell back: %v", r.Err)
	}
}

func TestProcessEmptyCatalog(t *testing.T) {
	dev := newFakeDevice()
	dev.stages = map[Stage]bool{}
	p, _ := newTestPipeline(t, dev)
	frame := testFrame(dev)

	r := p.Process(frame, DefaultConfig())
	if !r.Identity() || r.Kind() != KindMissingStageBinding {
		t.Errorf("Identity() = %t, Kind() = %s; want identity MissingStageBinding", r.Identity(), r.Kind())
	}
	if p.WantsDepthNormals(DefaultConfig()) {
		t.Error("WantsDepthNormals() = true with an empty catalog, want false")
	}
}

func TestProcessDispatchFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.failDispatch, dev.failDispatchSet = StageNonMax, true
	p, rep := newTestPipeline(t, dev)
	frame := testFrame(dev)

	cfg := Config{Enabled: true, Mode: ModeCustom, Refine: true, LowThreshold: 0.1, HighThreshold: 0.3}
	r := p.Process(frame, cfg)

	if r.Kind() != KindDevice {
		t.Errorf("Kind() = %s, want Device", r.Kind())
	}
	if got := dev.content(frame.Destination); got != "src" {
		t.Errorf("destination = %q, want %q", got, "src")
	}
	if len(rep.events) != 1 {
		t.Errorf("events = %d, want 1", len(rep.events))
	}
	assertClean(t, p, dev, r)
}

func TestProcessInvalidFrames(t *testing.T) {
	dev := newFakeDevice()
	p, _ := newTestPipeline(t, dev)

	tests := []struct {
		name  string
		frame Frame
		want  error
	}{
		{"nil source", Frame{Destination: dev.external(8, 8, "d")}, ErrNilFrame},
		{"nil destination", Frame{Source: dev.external(8, 8, "s")}, ErrNilFrame},
		{"size mismatch", Frame{Source: dev.external(8, 8, "s"), Destination: dev.external(16, 8, "d")}, ErrSizeMismatch},
		{"depth-normals mismatch", Frame{
			Source:       dev.external(8, 8, "s"),
			Destination:  dev.external(8, 8, "d"),
			DepthNormals: dev.external(4, 4, "dn"),
		}, ErrSizeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := p.Process(tt.frame, DefaultConfig())
			if !errors.Is(r.Err, tt.want) {
				t.Errorf("Err = %v, want %v", r.Err, tt.want)
			}
			if !r.FellBack {
				t.Error("FellBack = false, want true")
			}
			assertClean(t, p, dev, r)
		})
	}
}

func TestProcessDepthNormalsBound(t *testing.T) {
	dev := newFakeDevice()
	p, _ := newTestPipeline(t, dev)
	frame := testFrame(dev)
	frame.DepthNormals = dev.external(64, 48, "dn")

	cfg := DefaultConfig()
	cfg.Mode = ModeNormal
	p.Process(frame, cfg)

	if got, want := dev.content(frame.Destination), "Normal(src,dn)"; got != want {
		t.Errorf("destination = %q, want %q", got, want)
	}
}

func TestProcessInvalidModeReportedOnce(t *testing.T) {
	dev := newFakeDevice()
	p, rep := newTestPipeline(t, dev)
	frame := testFrame(dev)

	cfg := DefaultConfig()
	cfg.Mode = Mode(9)
	for range 2 {
		r := p.Process(frame, cfg)
		if r.Kind() != KindInvalidConfig || !r.FellBack {
			t.Errorf("Kind() = %s, FellBack = %t; want InvalidConfig fallback", r.Kind(), r.FellBack)
		}
	}
	if len(rep.events) != 1 {
		t.Errorf("events = %d, want 1", len(rep.events))
	}
}

func TestProcessThresholdClamping(t *testing.T) {
	tests := []struct {
		name      string
		low, high float32
		wantLow   float32
		wantHigh  float32
		wantErr   bool
	}{
		{"in range", 0.1, 0.3, 0.1, 0.3, false},
		{"negative low", -0.5, 0.3, 0, 0.3, true},
		{"high above one", 0.2, 4, 0.2, 1, true},
		{"both out", -1, 2, 0, 1, true},
		{"inverted kept", 0.6, 0.4, 0.6, 0.4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newFakeDevice()
			p, rep := newTestPipeline(t, dev)
			frame := testFrame(dev)

			cfg := Config{Enabled: true, Mode: ModeColor, Refine: true, LowThreshold: tt.low, HighThreshold: tt.high}
			r := p.Process(frame, cfg)

			var hyst *fakeOp
			for _, op := range dev.dispatches() {
				if op.stage == StageHysteresis {
					hyst = &op
				}
			}
			if hyst == nil {
				t.Fatal("Hysteresis not dispatched")
			}
			if hyst.params.LowThreshold != tt.wantLow || hyst.params.HighThreshold != tt.wantHigh {
				t.Errorf("Hysteresis params = (%g, %g), want (%g, %g)",
					hyst.params.LowThreshold, hyst.params.HighThreshold, tt.wantLow, tt.wantHigh)
			}
			if gotErr := errors.Is(r.Err, ErrInvalidConfig); gotErr != tt.wantErr {
				t.Errorf("Err = %v, want InvalidConfig %t", r.Err, tt.wantErr)
			}
			if r.FellBack {
				t.Error("clamped frame fell back")
			}
			if len(rep.events) != 0 {
				t.Errorf("events = %v, want none for clamped thresholds", rep.events)
			}
		})
	}
}

func TestProcessBranchExclusivity(t *testing.T) {
	for _, mode := range []Mode{ModeDepth, ModeColor, ModeNormal, ModeCustom} {
		for _, refine := range []bool{false, true} {
			for _, cel := range []bool{false, true} {
				name := fmt.Sprintf("%s/refine=%t/cel=%t", mode, refine, cel)
				t.Run(name, func(t *testing.T) {
					dev := newFakeDevice()
					p, _ := newTestPipeline(t, dev)
					cfg := Config{Enabled: true, Mode: mode, Refine: refine, CelShade: cel, LowThreshold: 0.1, HighThreshold: 0.3}
					r := p.Process(testFrame(dev), cfg)

					if r.Dispatches[0] != mode.BaseStage() {
						t.Errorf("first dispatch = %s, want %s", r.Dispatches[0], mode.BaseStage())
					}
					hasCel := contains(r.Dispatches, StageCelShade)
					hasCustom := contains(r.Dispatches, StageBloom)
					if want := refine && cel; hasCel != want {
						t.Errorf("CelShade dispatched = %t, want %t", hasCel, want)
					}
					if want := refine && mode == ModeCustom && !cel; hasCustom != want {
						t.Errorf("custom effect dispatched = %t, want %t", hasCustom, want)
					}
					if hasCel && hasCustom {
						t.Error("cel-shade and custom effect both ran")
					}
					if got := RequiredStages(cfg); !sameStageSet(got, r.Dispatches) {
						t.Errorf("RequiredStages() = %v, dispatched %v", got, r.Dispatches)
					}
					assertClean(t, p, dev, r)
				})
			}
		}
	}
}

func TestProcessPoolReuseAcrossFrames(t *testing.T) {
	dev := newFakeDevice()
	p, _ := newTestPipeline(t, dev)
	frame := testFrame(dev)

	cfg := Config{Enabled: true, Mode: ModeCustom, Refine: true, LowThreshold: 0.1, HighThreshold: 0.3}
	p.Process(frame, cfg)
	created := dev.count("create")
	for range 5 {
		r := p.Process(frame, cfg)
		assertClean(t, p, dev, r)
	}
	if got := dev.count("create"); got != created {
		t.Errorf("creates after warm-up = %d, want %d", got, created)
	}
	if s := p.Pool().Stats(); s.Reused == 0 {
		t.Errorf("Stats().Reused = 0, want reuse: %s", s)
	}
}

func TestProcessConcurrentFrames(t *testing.T) {
	dev := newFakeDevice()
	p, _ := newTestPipeline(t, dev)

	cfg := Config{Enabled: true, Mode: ModeCustom, Refine: true, LowThreshold: 0.1, HighThreshold: 0.3}
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			frame := testFrame(dev)
			for range 10 {
				if r := p.Process(frame, cfg); r.FellBack {
					t.Errorf("frame fell back: %v", r.Err)
				}
			}
		}()
	}
	wg.Wait()

	if got := p.Pool().Outstanding(); got != 0 {
		t.Errorf("Outstanding() = %d, want 0", got)
	}
	if len(dev.violations) > 0 {
		t.Errorf("device violations: %v", dev.violations)
	}
}

func TestReportString(t *testing.T) {
	r := Report{Frame: 3, Dispatches: []Stage{StageColor}, Copies: 1, Acquired: 1, Released: 1}
	if got, want := r.String(), "frame 3: Color copies=1 flipped=0 temps=1/1"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func contains(stages []Stage, s Stage) bool {
	for _, x := range stages {
		if x == s {
			return true
		}
	}
	return false
}

func sameStageSet(a, b []Stage) bool {
	set := map[Stage]bool{}
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if !set[s] {
			return false
		}
	}
	for s := range set {
		if !contains(b, s) {
			return false
		}
	}
	return true
}
