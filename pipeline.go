package edgefx

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Frame is the input of one Process call.
type Frame struct {
	// Source is the rendered color frame. Required.
	Source *FrameBuffer

	// Destination receives the composited result. Required, same size as
	// Source.
	Destination *FrameBuffer

	// DepthNormals is the optional depth+normal capture, bound to the base
	// detector when present.
	DepthNormals *FrameBuffer

	// Time is the animation clock in seconds.
	Time float32
}

// Pipeline orchestrates the edge-detection stages over a Device.
//
// The stage catalog is resolved once in NewPipeline; everything else is
// per frame. Process may be called from several goroutines, each with its
// own frames.
type Pipeline struct {
	device   Device
	pool     *Pool
	catalog  *Catalog
	reporter Reporter
	logger   *slog.Logger

	frames atomic.Uint64

	mu            sync.Mutex
	reportedStage [stageCount]bool
	reportedMode  bool
}

// NewPipeline creates a pipeline over device. The catalog is resolved
// from the device when it implements StageResolver, or from the resolver
// given with WithStageResolver.
func NewPipeline(device Device, opts ...PipelineOption) (*Pipeline, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	o := defaultPipelineOptions()
	for _, opt := range opts {
		opt(&o)
	}

	resolver := o.resolver
	if resolver == nil {
		resolver, _ = device.(StageResolver)
	}

	p := &Pipeline{
		device:   device,
		pool:     NewPool(device, o.pool),
		catalog:  ResolveCatalog(resolver),
		reporter: o.reporter,
		logger:   o.logger,
	}
	if p.reporter == nil {
		p.reporter = NewLogReporter(o.logger)
	}
	if o.logger != nil {
		propagateLogger(device, o.logger)
	}

	if missing := p.catalog.Missing(); len(missing) > 0 {
		p.log().Info("edgefx: catalog resolved", "device", device.Name(), "missing", missing)
	} else {
		p.log().Info("edgefx: catalog resolved", "device", device.Name(), "stages", int(stageCount))
	}
	return p, nil
}

// Device returns the pipeline's device.
func (p *Pipeline) Device() Device { return p.device }

// Pool returns the pipeline's temporary buffer pool.
func (p *Pipeline) Pool() *Pool { return p.pool }

// Catalog returns the resolved stage catalog.
func (p *Pipeline) Catalog() *Catalog { return p.catalog }

// Close destroys all pooled buffers. The device is not closed.
func (p *Pipeline) Close() {
	p.pool.Close()
}

func (p *Pipeline) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return Logger()
}

// Process runs one frame and always leaves a valid image in
// frame.Destination: the composited result, or the unmodified source if
// the filter is off or anything fails. Errors are returned in the Report
// and sent to the Reporter; they never escape as a failed frame.
func (p *Pipeline) Process(frame Frame, cfg Config) Report {
	run := &frameRun{
		p:     p,
		frame: frame,
		scope: newFrameScope(p.pool, p.log()),
		report: Report{
			Frame: p.frames.Add(1),
		},
	}

	// Thresholds are clamped; the clamped values are what the kernels see.
	if err := cfg.Validate(); err != nil && cfg.Enabled && cfg.Mode.IsValid() {
		run.report.Err = err
		p.log().Debug("edgefx: thresholds clamped", "frame", run.report.Frame, "err", err)
	}
	run.cfg = cfg.Normalized()
	run.report.Config = run.cfg

	run.execute()
	return run.report
}

// frameRun carries one frame through the state machine.
type frameRun struct {
	p      *Pipeline
	frame  Frame
	cfg    Config
	scope  *frameScope
	report Report

	acc  *FrameBuffer // random-write accumulation
	work *FrameBuffer // read-only working copy of acc
	blur *FrameBuffer // vertically flipped copy of acc
}

// execute walks states until End. Every exit path releases the arena.
func (r *frameRun) execute() {
	state := StateStart
	var err error
	for state != StateEnd {
		r.report.Path = append(r.report.Path, state)
		state, err = r.step(state)
		if err != nil {
			r.fallback(err)
			state = StateEnd
		}
	}
	r.report.Path = append(r.report.Path, StateEnd)

	if rerr := r.scope.releaseAll(); rerr != nil {
		r.report.Err = errors.Join(r.report.Err, rerr)
	}
	r.report.Acquired = r.scope.acquired
	r.report.Released = r.scope.released
}

func (r *frameRun) step(s State) (State, error) {
	switch s {
	case StateStart:
		return r.start()
	case StateBaseDetect:
		return r.baseDetect()
	case StateRefineEntry:
		return r.refineEntry()
	case StateCannyStages:
		return r.cannyStages()
	case StatePostBranch:
		return r.postBranch()
	case StateCustomEffect:
		return r.customEffect()
	case StateCelShade:
		return r.celShade()
	case StatePlainRefined:
		return r.plainRefined()
	case StateComposite:
		return r.composite()
	default:
		return StateEnd, fmt.Errorf("edgefx: unknown state %s", s)
	}
}

// start checks the frame and the catalog. A disabled filter is an
// identity copy without any allocation.
func (r *frameRun) start() (State, error) {
	src, dst := r.frame.Source, r.frame.Destination
	if src == nil || dst == nil {
		return StateEnd, fmt.Errorf("%w: source or destination missing", ErrNilFrame)
	}
	if !src.sameSize(dst) {
		return StateEnd, fmt.Errorf("%w: source %dx%d, destination %dx%d",
			ErrSizeMismatch, src.Width(), src.Height(), dst.Width(), dst.Height())
	}
	if !r.cfg.Enabled {
		return StateEnd, r.copy(src, dst, false)
	}
	if !r.cfg.Mode.IsValid() {
		return StateEnd, fmt.Errorf("%w: %s", ErrInvalidConfig, r.cfg.Mode)
	}
	if dn := r.frame.DepthNormals; dn != nil && !dn.sameSize(src) {
		return StateEnd, fmt.Errorf("%w: depth-normals %dx%d, source %dx%d",
			ErrSizeMismatch, dn.Width(), dn.Height(), src.Width(), src.Height())
	}
	var missing []Stage
	for _, s := range RequiredStages(r.cfg) {
		if _, ok := r.p.catalog.Handle(s); !ok {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return StateEnd, &MissingStageError{Stages: missing}
	}
	return StateBaseDetect, nil
}

// baseDetect runs the detector selected by the mode into a fresh
// accumulation buffer.
func (r *frameRun) baseDetect() (State, error) {
	acc, err := r.scope.acquire("accumulation", r.frame.Source, true)
	if err != nil {
		return StateEnd, err
	}
	r.acc = acc

	inputs := []Binding{{Slot: SlotSource, Buffer: r.frame.Source}}
	if dn := r.frame.DepthNormals; dn != nil {
		inputs = append(inputs, Binding{Slot: SlotDepthNormals, Buffer: dn})
	}
	if err := r.dispatch(r.cfg.Mode.BaseStage(), inputs); err != nil {
		return StateEnd, err
	}
	if !r.cfg.Refine {
		return StateComposite, nil
	}
	return StateRefineEntry, nil
}

// refineEntry snapshots the accumulation buffer into a working buffer.
func (r *frameRun) refineEntry() (State, error) {
	if err := r.snapshot(); err != nil {
		return StateEnd, err
	}
	return StateCannyStages, nil
}

// cannyStages runs Smooth, Gradient, NonMax and Hysteresis, each reading
// the working buffer and writing the accumulation buffer.
func (r *frameRun) cannyStages() (State, error) {
	for _, s := range cannyStages {
		if err := r.dispatch(s, []Binding{{Slot: SlotSource, Buffer: r.work}}); err != nil {
			return StateEnd, err
		}
		if s == StageHysteresis {
			break
		}
		if err := r.save(); err != nil {
			return StateEnd, err
		}
	}
	if err := r.scope.release(r.work); err != nil {
		return StateEnd, err
	}
	r.work = nil
	return StatePostBranch, nil
}

// postBranch prepares the buffers of the selected post effect.
func (r *frameRun) postBranch() (State, error) {
	switch {
	case r.cfg.customEffect():
		if err := r.softSmooth(); err != nil {
			return StateEnd, err
		}
		blur, err := r.scope.acquire("blur", r.frame.Source, false)
		if err != nil {
			return StateEnd, err
		}
		r.blur = blur
		if err := r.copy(r.acc, r.blur, true); err != nil {
			return StateEnd, err
		}
		return StateCustomEffect, nil

	case r.cfg.celShading():
		if err := r.softSmooth(); err != nil {
			return StateEnd, err
		}
		if err := r.save(); err != nil {
			return StateEnd, err
		}
		return StateCelShade, nil

	default:
		return StatePlainRefined, nil
	}
}

// customEffect restores color against the working and flipped blur
// buffers, then adds bloom.
func (r *frameRun) customEffect() (State, error) {
	src := r.frame.Source
	if err := r.dispatch(StageColorRestore, []Binding{
		{Slot: SlotSource, Buffer: r.work},
		{Slot: SlotOriginal, Buffer: src},
	}); err != nil {
		return StateEnd, err
	}
	if err := r.dispatch(StageColorRestore, []Binding{
		{Slot: SlotSource, Buffer: r.blur},
		{Slot: SlotOriginal, Buffer: src},
	}); err != nil {
		return StateEnd, err
	}
	if err := r.dispatch(StageBloom, []Binding{
		{Slot: SlotBlur, Buffer: r.blur},
	}); err != nil {
		return StateEnd, err
	}
	if err := r.releaseWork(); err != nil {
		return StateEnd, err
	}
	if err := r.scope.release(r.blur); err != nil {
		return StateEnd, err
	}
	r.blur = nil
	return StateComposite, nil
}

// celShade overlays the edges onto a quantized copy of the source, using
// the smoothed working buffer as blur input.
func (r *frameRun) celShade() (State, error) {
	if err := r.dispatch(StageCelShade, []Binding{
		{Slot: SlotSource, Buffer: r.frame.Source},
		{Slot: SlotBlur, Buffer: r.work},
	}); err != nil {
		return StateEnd, err
	}
	if err := r.releaseWork(); err != nil {
		return StateEnd, err
	}
	return StateComposite, nil
}

// plainRefined releases whatever the refinement left behind.
func (r *frameRun) plainRefined() (State, error) {
	if err := r.releaseWork(); err != nil {
		return StateEnd, err
	}
	return StateComposite, nil
}

// composite blits the accumulation buffer into the destination.
func (r *frameRun) composite() (State, error) {
	if err := r.copy(r.acc, r.frame.Destination, false); err != nil {
		return StateEnd, err
	}
	if err := r.scope.release(r.acc); err != nil {
		return StateEnd, err
	}
	r.acc = nil
	return StateEnd, nil
}

// softSmooth snapshots the accumulation buffer and blurs it back.
func (r *frameRun) softSmooth() error {
	if err := r.snapshot(); err != nil {
		return err
	}
	return r.dispatch(StageSoftSmooth, []Binding{{Slot: SlotSource, Buffer: r.work}})
}

// snapshot acquires a working buffer and copies the accumulation into it.
func (r *frameRun) snapshot() error {
	work, err := r.scope.acquire("working", r.frame.Source, false)
	if err != nil {
		return err
	}
	r.work = work
	return r.copy(r.acc, r.work, false)
}

// save replaces the working buffer with a fresh copy of the accumulation.
func (r *frameRun) save() error {
	if err := r.releaseWork(); err != nil {
		return err
	}
	return r.snapshot()
}

func (r *frameRun) releaseWork() error {
	if r.work == nil {
		return nil
	}
	err := r.scope.release(r.work)
	r.work = nil
	return err
}

// dispatch runs stage s with inputs into the accumulation buffer.
func (r *frameRun) dispatch(s Stage, inputs []Binding) error {
	handle, ok := r.p.catalog.Handle(s)
	if !ok {
		return &MissingStageError{Stages: []Stage{s}}
	}
	gx, gy := DispatchGrid(r.acc.Width(), r.acc.Height())
	inv := &Invocation{
		Stage:  s,
		Handle: handle,
		Inputs: inputs,
		Output: Binding{Slot: SlotResult, Buffer: r.acc},
		Params: Params{
			LowThreshold:  r.cfg.LowThreshold,
			HighThreshold: r.cfg.HighThreshold,
			Time:          r.frame.Time,
		},
		GridX: gx,
		GridY: gy,
	}
	if err := inv.Validate(); err != nil {
		return err
	}
	for _, b := range inputs {
		if err := r.p.pool.Check(b.Buffer); err != nil {
			return fmt.Errorf("%s: %w", s, err)
		}
	}
	if err := r.p.device.Dispatch(inv); err != nil {
		return fmt.Errorf("dispatch %s: %w", s, err)
	}
	r.report.Dispatches = append(r.report.Dispatches, s)
	r.p.log().Debug("edgefx: dispatch", "frame", r.report.Frame, "inv", inv.String())
	return nil
}

func (r *frameRun) copy(src, dst *FrameBuffer, flip bool) error {
	if err := r.p.pool.Copy(src, dst, flip); err != nil {
		return err
	}
	r.report.Copies++
	if flip {
		r.report.FlippedCopies++
	}
	return nil
}

// fallback releases everything, copies the source through unchanged and
// reports err.
func (r *frameRun) fallback(err error) {
	r.report.FellBack = true
	r.acc, r.work, r.blur = nil, nil, nil

	if rerr := r.scope.releaseAll(); rerr != nil {
		err = errors.Join(err, rerr)
	}
	src, dst := r.frame.Source, r.frame.Destination
	if src != nil && dst != nil && src.sameSize(dst) {
		if cerr := r.copy(src, dst, false); cerr != nil {
			err = errors.Join(err, fmt.Errorf("identity copy: %w", cerr))
		}
	}
	r.report.Err = err
	r.p.emit(r.report.Frame, err)
}

// emit sends err to the reporter. Missing stages and unknown modes are
// configuration errors and are reported once per pipeline.
func (p *Pipeline) emit(frame uint64, err error) {
	kind := KindOf(err)

	var mse *MissingStageError
	if errors.As(err, &mse) {
		for _, s := range p.firstReports(mse.Stages) {
			p.reporter.Report(Event{Kind: kind, Stage: s, Frame: frame, Err: err})
		}
		return
	}
	if kind == KindInvalidConfig {
		p.mu.Lock()
		seen := p.reportedMode
		p.reportedMode = true
		p.mu.Unlock()
		if seen {
			return
		}
	}
	p.reporter.Report(Event{Kind: kind, Frame: frame, Err: err})
}

// firstReports marks stages as reported and returns those that were not.
func (p *Pipeline) firstReports(stages []Stage) []Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Stage
	for _, s := range stages {
		if !s.IsValid() || p.reportedStage[s] {
			continue
		}
		p.reportedStage[s] = true
		out = append(out, s)
	}
	return out
}

// MissingStageError lists the stages a configuration needs that the
// catalog could not resolve. It matches ErrMissingStageBinding.
type MissingStageError struct {
	Stages []Stage
}

func (e *MissingStageError) Error() string {
	return fmt.Sprintf("%v: %v", ErrMissingStageBinding, e.Stages)
}

// Is reports whether target is ErrMissingStageBinding.
func (e *MissingStageError) Is(target error) bool {
	return target == ErrMissingStageBinding
}
