package software

import (
	"fmt"
	stdimage "image"
	"log/slog"
	"sync"

	"github.com/gogpu/edgefx"
	"github.com/gogpu/edgefx/backend"
	"github.com/gogpu/edgefx/internal/filter"
	"github.com/gogpu/edgefx/internal/image"
)

// DefaultFramesPerSize is the number of destroyed frames kept per size
// for reuse.
const DefaultFramesPerSize = 8

// Options configures a software device.
type Options struct {
	// MaxBuffers limits the number of live buffers. Zero means unlimited.
	MaxBuffers int

	// FramesPerSize bounds the frame reuse pool per size. Zero selects
	// DefaultFramesPerSize; negative disables reuse.
	FramesPerSize int

	// Stages restricts the kernels the device resolves. Nil resolves all.
	Stages []edgefx.Stage
}

// Stats are cumulative device counters.
type Stats struct {
	Created    uint64
	Destroyed  uint64
	Live       int
	Dispatches uint64
	Copies     uint64
}

// buffer is one device allocation.
type buffer struct {
	frame *image.Frame
	desc  edgefx.Descriptor
}

// Device is the CPU implementation of backend.Device.
//
// Device is safe for concurrent use. Kernels run on the calling goroutine.
type Device struct {
	mu      sync.RWMutex
	buffers map[edgefx.BufferID]*buffer
	nextID  edgefx.BufferID
	frames  *image.Pool
	stages  map[edgefx.Stage]bool
	opts    Options
	stats   Stats
	closed  bool
}

var _ backend.Device = (*Device)(nil)

// New creates a software device.
func New(opts Options) *Device {
	perSize := opts.FramesPerSize
	if perSize == 0 {
		perSize = DefaultFramesPerSize
	}
	d := &Device{
		buffers: make(map[edgefx.BufferID]*buffer),
		opts:    opts,
	}
	if perSize > 0 {
		d.frames = image.NewPool(perSize)
	}
	if opts.Stages != nil {
		d.stages = make(map[edgefx.Stage]bool, len(opts.Stages))
		for _, s := range opts.Stages {
			d.stages[s] = true
		}
	}
	slogger().Info("software: device created", "max_buffers", opts.MaxBuffers)
	return d
}

// Name returns the backend identifier.
func (d *Device) Name() string {
	return backend.BackendSoftware
}

// SetLogger sets the logger for the software backend.
// Called by edgefx.NewPipeline when a pipeline logger is configured.
func (d *Device) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// ResolveStage returns the kernel handle for s.
func (d *Device) ResolveStage(s edgefx.Stage) (edgefx.StageHandle, bool) {
	if _, ok := kernels[s]; !ok {
		return 0, false
	}
	if d.stages != nil && !d.stages[s] {
		return 0, false
	}
	return handleFor(s), true
}

// CreateBuffer allocates a zeroed float frame for desc. Every format is
// stored as float RGBA.
func (d *Device) CreateBuffer(desc edgefx.Descriptor) (edgefx.BufferID, error) {
	if err := desc.Validate(); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	if d.opts.MaxBuffers > 0 && len(d.buffers) >= d.opts.MaxBuffers {
		return 0, fmt.Errorf("%w (%d)", ErrOutOfBuffers, d.opts.MaxBuffers)
	}

	var f *image.Frame
	if d.frames != nil {
		f = d.frames.Get(desc.Width, desc.Height)
	} else {
		var err error
		if f, err = image.NewFrame(desc.Width, desc.Height); err != nil {
			return 0, err
		}
	}

	d.nextID++
	id := d.nextID
	d.buffers[id] = &buffer{frame: f, desc: desc}
	d.stats.Created++
	slogger().Debug("software: buffer created", "id", id, "size", fmt.Sprintf("%dx%d", desc.Width, desc.Height), "label", desc.Label)
	return id, nil
}

// DestroyBuffer frees a buffer. Unknown IDs are ignored.
func (d *Device) DestroyBuffer(id edgefx.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return
	}
	delete(d.buffers, id)
	d.stats.Destroyed++
	if d.frames != nil {
		d.frames.Put(b.frame)
	}
}

// frame returns the storage of id.
func (d *Device) frame(id edgefx.BufferID) (*image.Frame, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}
	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: #%d", ErrUnknownBuffer, id)
	}
	return b.frame, nil
}

// CopyBuffer copies src into dst, reversing rows when flip is set.
func (d *Device) CopyBuffer(src, dst edgefx.BufferID, flip bool) error {
	s, err := d.frame(src)
	if err != nil {
		return err
	}
	t, err := d.frame(dst)
	if err != nil {
		return err
	}
	if err := t.CopyFrom(s, flip); err != nil {
		return fmt.Errorf("software: copy #%d -> #%d: %w", src, dst, err)
	}
	d.count(func(st *Stats) { st.Copies++ })
	return nil
}

// Dispatch runs the kernel named by inv.Handle.
func (d *Device) Dispatch(inv *edgefx.Invocation) error {
	if err := inv.Validate(); err != nil {
		return err
	}
	stage, ok := stageFor(inv.Handle)
	if !ok || stage != inv.Stage {
		return fmt.Errorf("%w: %d for %s", ErrUnknownKernel, inv.Handle, inv.Stage)
	}
	kernel := kernels[stage]

	out, err := d.frame(inv.Output.Buffer.ID())
	if err != nil {
		return err
	}
	var in filter.Inputs
	for _, b := range inv.Inputs {
		f, err := d.frame(b.Buffer.ID())
		if err != nil {
			return fmt.Errorf("%s: %w", b.Slot, err)
		}
		switch b.Slot {
		case edgefx.SlotSource:
			in.Source = f
		case edgefx.SlotDepthNormals:
			in.DepthNormals = f
		case edgefx.SlotBlur:
			in.Blur = f
		case edgefx.SlotOriginal:
			in.Original = f
		}
	}

	p := filter.Params{
		LowThreshold:  inv.Params.LowThreshold,
		HighThreshold: inv.Params.HighThreshold,
		Time:          inv.Params.Time,
	}
	if err := kernel(out, in, p); err != nil {
		return fmt.Errorf("software: %s: %w", stage, err)
	}
	d.count(func(st *Stats) { st.Dispatches++ })
	return nil
}

func (d *Device) count(fn func(*Stats)) {
	d.mu.Lock()
	fn(&d.stats)
	d.mu.Unlock()
}

// Upload creates a host-owned buffer holding img and wraps it as an
// external frame buffer. The caller destroys it with DestroyBuffer.
func (d *Device) Upload(img stdimage.Image, format edgefx.Format) (*edgefx.FrameBuffer, error) {
	f := image.FromStdImage(img)
	if f == nil {
		return nil, fmt.Errorf("software: upload: %w", image.ErrInvalidDimensions)
	}
	desc := edgefx.Descriptor{
		Width:  f.Width(),
		Height: f.Height(),
		Format: format,
		Label:  "upload",
	}
	id, err := d.CreateBuffer(desc)
	if err != nil {
		return nil, err
	}
	dst, err := d.frame(id)
	if err != nil {
		return nil, err
	}
	if err := dst.CopyFrom(f, false); err != nil {
		d.DestroyBuffer(id)
		return nil, err
	}
	return edgefx.NewExternal(id, desc), nil
}

// Download converts the buffer behind fb to an 8-bit image.
func (d *Device) Download(fb *edgefx.FrameBuffer) (*stdimage.NRGBA, error) {
	f, err := d.frame(fb.ID())
	if err != nil {
		return nil, err
	}
	return f.ToNRGBA(), nil
}

// Stats returns a snapshot of the device counters.
func (d *Device) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s := d.stats
	s.Live = len(d.buffers)
	return s
}

// Close frees every buffer. Further calls fail with ErrClosed.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.stats.Destroyed += uint64(len(d.buffers))
	clear(d.buffers)
	d.closed = true
	slogger().Info("software: device closed", "created", d.stats.Created)
}
