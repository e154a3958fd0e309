package wgpu

import (
	"encoding/binary"
	"fmt"
	stdimage "image"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gogpu/edgefx"
	"github.com/gogpu/edgefx/backend"
	"github.com/gogpu/edgefx/internal/image"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// DefaultTimeout bounds each fence wait.
const DefaultTimeout = 5 * time.Second

// bytesPerPixel is the device size of one vec4<f32> pixel.
const bytesPerPixel = 16

// placeholderSize backs unbound inputs.
const placeholderSize = bytesPerPixel

// Options configures a wgpu device.
type Options struct {
	// Stages restricts the kernels the device builds. Nil builds all.
	Stages []edgefx.Stage

	// Timeout bounds each fence wait. Zero selects DefaultTimeout.
	Timeout time.Duration
}

// gpuBuffer is one device allocation.
type gpuBuffer struct {
	buf  hal.Buffer
	desc edgefx.Descriptor
	size uint64
}

// Device is the GPU implementation of backend.Device.
//
// Device is safe for concurrent use; GPU work is serialized on one queue.
type Device struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	kernels     *kernelSet
	params      hal.Buffer
	placeholder hal.Buffer

	buffers map[edgefx.BufferID]*gpuBuffer
	nextID  edgefx.BufferID

	timeout        time.Duration
	adapterName    string
	externalDevice bool // shared device: not destroyed on Close
	closed         bool
}

var _ backend.Device = (*Device)(nil)

// Open creates a device on the first discrete or integrated Vulkan
// adapter, or the first adapter of any type.
func Open(opts Options) (*Device, error) {
	vk, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrBackendUnavailable
	}
	instance, err := vk.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	d, err := newDevice(openDev.Device, openDev.Queue, opts)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	d.externalDevice = false
	d.adapterName = selected.Info.Name
	slogger().Info("wgpu: device opened", "adapter", d.adapterName, "stages", len(d.kernels.kernels))
	return d, nil
}

// NewWithDevice creates a device on an existing HAL device and queue.
// The caller keeps ownership: Close does not destroy them.
func NewWithDevice(device hal.Device, queue hal.Queue, opts Options) (*Device, error) {
	if device == nil || queue == nil {
		return nil, edgefx.ErrNilDevice
	}
	d, err := newDevice(device, queue, opts)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// NewFromProvider shares the GPU device of a host application. The
// provider must also implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider, opts Options) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALProvider)
	}
	d, err := NewWithDevice(device, queue, opts)
	if err != nil {
		return nil, err
	}
	slogger().Info("wgpu: using shared GPU device")
	return d, nil
}

// newDevice builds the shared resources on device. The result does not own
// device until the caller clears externalDevice.
func newDevice(device hal.Device, queue hal.Queue, opts Options) (*Device, error) {
	stages := opts.Stages
	if stages == nil {
		stages = edgefx.AllStages()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	d := &Device{
		device:  device,
		queue:   queue,
		buffers: make(map[edgefx.BufferID]*gpuBuffer),
		timeout: timeout,

		externalDevice: true,
	}

	ks, err := newKernelSet(device, stages)
	if err != nil {
		return nil, fmt.Errorf("wgpu: %w", err)
	}
	d.kernels = ks

	d.params, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "edgefx_params", Size: paramsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		d.destroyLocked()
		return nil, fmt.Errorf("wgpu: create params buffer: %w", err)
	}
	d.placeholder, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "edgefx_placeholder", Size: placeholderSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		d.destroyLocked()
		return nil, fmt.Errorf("wgpu: create placeholder buffer: %w", err)
	}
	return d, nil
}

// Name returns the backend identifier.
func (d *Device) Name() string {
	return backend.BackendWGPU
}

// AdapterName returns the GPU name, or "" for a shared device.
func (d *Device) AdapterName() string {
	return d.adapterName
}

// SetLogger sets the logger for the wgpu backend.
// Called by edgefx.NewPipeline when a pipeline logger is configured.
func (d *Device) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// ResolveStage returns the kernel handle for s if its pipeline was built.
func (d *Device) ResolveStage(s edgefx.Stage) (edgefx.StageHandle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, false
	}
	if _, ok := d.kernels.lookup(s); !ok {
		return 0, false
	}
	return handleFor(s), true
}

// CreateBuffer allocates a storage buffer of width × height vec4<f32>.
// Every format is stored as float RGBA.
func (d *Device) CreateBuffer(desc edgefx.Descriptor) (edgefx.BufferID, error) {
	if err := desc.Validate(); err != nil {
		return 0, err
	}
	size := bufferSize(desc.Width, desc.Height)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: bufferLabel(desc), Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return 0, fmt.Errorf("wgpu: create buffer %dx%d: %w", desc.Width, desc.Height, err)
	}
	d.nextID++
	id := d.nextID
	d.buffers[id] = &gpuBuffer{buf: buf, desc: desc, size: size}
	slogger().Debug("wgpu: buffer created", "id", id, "bytes", size, "label", desc.Label)
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
	d.device.DestroyBuffer(b.buf)
}

func (d *Device) lookupLocked(id edgefx.BufferID) (*gpuBuffer, error) {
	if d.closed {
		return nil, ErrClosed
	}
	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: #%d", ErrUnknownBuffer, id)
	}
	return b, nil
}

// CopyBuffer copies src into dst. A flipped copy is one region per row.
func (d *Device) CopyBuffer(src, dst edgefx.BufferID, flip bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.lookupLocked(src)
	if err != nil {
		return err
	}
	t, err := d.lookupLocked(dst)
	if err != nil {
		return err
	}
	if s.desc.Width != t.desc.Width || s.desc.Height != t.desc.Height {
		return fmt.Errorf("%w: %dx%d -> %dx%d", ErrSizeMismatch,
			s.desc.Width, s.desc.Height, t.desc.Width, t.desc.Height)
	}
	regions := copyRegions(s.desc.Width, s.desc.Height, flip)
	return d.submitLocked("edgefx_copy", func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(s.buf, t.buf, regions)
	})
}

// copyRegions returns the regions of a full-frame copy. With flip, row y
// of the source lands on row height-1-y.
func copyRegions(width, height int, flip bool) []hal.BufferCopy {
	rowBytes := uint64(width) * bytesPerPixel //nolint:gosec // G115: dimensions validated positive
	if !flip {
		return []hal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: rowBytes * uint64(height)}} //nolint:gosec // G115
	}
	regions := make([]hal.BufferCopy, height)
	for y := range height {
		regions[y] = hal.BufferCopy{
			SrcOffset: uint64(y) * rowBytes,          //nolint:gosec // G115
			DstOffset: uint64(height-1-y) * rowBytes, //nolint:gosec // G115
			Size:      rowBytes,
		}
	}
	return regions
}

// Dispatch binds inv and runs its kernel over the tile grid.
func (d *Device) Dispatch(inv *edgefx.Invocation) error {
	if err := inv.Validate(); err != nil {
		return err
	}
	stage, ok := stageFor(inv.Handle)
	if !ok || stage != inv.Stage {
		return fmt.Errorf("%w: %d for %s", ErrUnknownKernel, inv.Handle, inv.Stage)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	k, ok := d.kernels.lookup(stage)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKernel, stage)
	}
	out, err := d.lookupLocked(inv.Output.Buffer.ID())
	if err != nil {
		return err
	}

	slots := [bindResult + 1]*gpuBuffer{bindResult: out}
	var flags uint32
	for _, b := range inv.Inputs {
		gb, err := d.lookupLocked(b.Buffer.ID())
		if err != nil {
			return fmt.Errorf("%s: %w", b.Slot, err)
		}
		switch b.Slot {
		case edgefx.SlotSource:
			slots[bindSource] = gb
		case edgefx.SlotDepthNormals, edgefx.SlotBlur:
			slots[bindAux] = gb
			flags |= flagAux
		case edgefx.SlotOriginal:
			slots[bindOriginal] = gb
		}
	}

	params := gpuParams{
		Width:  uint32(out.desc.Width),  //nolint:gosec // G115: validated positive
		Height: uint32(out.desc.Height), //nolint:gosec // G115: validated positive
		Flags:  flags,
		Low:    inv.Params.LowThreshold,
		High:   inv.Params.HighThreshold,
		Time:   inv.Params.Time,
	}
	d.queue.WriteBuffer(d.params, 0, params.bytes())

	entries := []gputypes.BindGroupEntry{
		{Binding: bindParams, Resource: gputypes.BufferBinding{Buffer: d.params.NativeHandle(), Offset: 0, Size: paramsSize}},
	}
	for binding := bindSource; binding <= bindResult; binding++ {
		res := gputypes.BufferBinding{Buffer: d.placeholder.NativeHandle(), Offset: 0, Size: placeholderSize}
		if gb := slots[binding]; gb != nil {
			res = gputypes.BufferBinding{Buffer: gb.buf.NativeHandle(), Offset: 0, Size: gb.size}
		}
		entries = append(entries, gputypes.BindGroupEntry{Binding: uint32(binding), Resource: res}) //nolint:gosec // G115
	}
	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "edgefx_" + stage.String(), Layout: d.kernels.bindLayout, Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group: %w", err)
	}
	defer d.device.DestroyBindGroup(bg)

	return d.submitLocked("edgefx_dispatch", func(enc hal.CommandEncoder) {
		pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "edgefx_" + stage.String()})
		pass.SetPipeline(k.pipeline)
		pass.SetBindGroup(0, bg, nil)
		pass.Dispatch(inv.GridX, inv.GridY, 1)
		pass.End()
	})
}

// submitLocked records commands with encode, submits them and waits for
// completion.
func (d *Device) submitLocked(label string, encode func(hal.CommandEncoder)) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encode(encoder)
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)
	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	fenceOK, err := d.device.Wait(fence, 1, d.timeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for GPU: %w", err)
	}
	if !fenceOK {
		return fmt.Errorf("%w after %s", ErrGPUTimeout, d.timeout)
	}
	return nil
}

// Upload creates a buffer holding img and wraps it as an external frame
// buffer. The caller destroys it with DestroyBuffer.
func (d *Device) Upload(img stdimage.Image, format edgefx.Format) (*edgefx.FrameBuffer, error) {
	f := image.FromStdImage(img)
	if f == nil {
		return nil, fmt.Errorf("wgpu: upload: %w", image.ErrInvalidDimensions)
	}
	desc := edgefx.Descriptor{Width: f.Width(), Height: f.Height(), Format: format, Label: "upload"}
	id, err := d.CreateBuffer(desc)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	d.queue.WriteBuffer(b.buf, 0, encodePixels(f.Pix()))
	return edgefx.NewExternal(id, desc), nil
}

// Download reads the buffer behind fb back to the host as an 8-bit image.
func (d *Device) Download(fb *edgefx.FrameBuffer) (*stdimage.NRGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.lookupLocked(fb.ID())
	if err != nil {
		return nil, err
	}

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "edgefx_staging", Size: b.size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	if err := d.submitLocked("edgefx_readback", func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(b.buf, staging, []hal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: b.size}})
	}); err != nil {
		return nil, err
	}

	readback := make([]byte, b.size)
	if err := d.queue.ReadBuffer(staging, 0, readback); err != nil {
		return nil, fmt.Errorf("wgpu: readback: %w", err)
	}
	f, err := image.NewFrame(b.desc.Width, b.desc.Height)
	if err != nil {
		return nil, err
	}
	decodePixels(readback, f.Pix())
	return f.ToNRGBA(), nil
}

// Close destroys every buffer and pipeline. A device opened with Open is
// destroyed too; a shared device is left to its owner.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.destroyLocked()
	d.closed = true
	slogger().Info("wgpu: device closed")
}

func (d *Device) destroyLocked() {
	for id, b := range d.buffers {
		d.device.DestroyBuffer(b.buf)
		delete(d.buffers, id)
	}
	if d.placeholder != nil {
		d.device.DestroyBuffer(d.placeholder)
		d.placeholder = nil
	}
	if d.params != nil {
		d.device.DestroyBuffer(d.params)
		d.params = nil
	}
	if d.kernels != nil {
		d.kernels.destroy()
	}
	if d.externalDevice {
		return
	}
	if d.device != nil {
		d.device.Destroy()
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}

func bufferSize(width, height int) uint64 {
	return uint64(width) * uint64(height) * bytesPerPixel //nolint:gosec // G115: validated positive
}

func bufferLabel(desc edgefx.Descriptor) string {
	if desc.Label != "" {
		return "edgefx_" + desc.Label
	}
	return "edgefx_frame"
}

// encodePixels serializes float channels as little-endian f32.
func encodePixels(pix []float32) []byte {
	out := make([]byte, len(pix)*4)
	for i, v := range pix {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// decodePixels is the inverse of encodePixels.
func decodePixels(data []byte, pix []float32) {
	for i := range pix {
		pix[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
}
