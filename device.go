package edgefx

// Device is the GPU execution surface the pipeline drives.
//
// Implementations must execute operations in call order: a Dispatch or
// CopyBuffer observes every write made by earlier calls. Devices are used
// from a single goroutine per frame but may be shared across frames.
type Device interface {
	// Name returns the backend identifier (e.g. "software", "wgpu").
	Name() string

	// CreateBuffer allocates a device buffer matching desc.
	CreateBuffer(desc Descriptor) (BufferID, error)

	// DestroyBuffer frees a device buffer. Unknown IDs are ignored.
	DestroyBuffer(id BufferID)

	// CopyBuffer copies every pixel of src into dst. When flip is true
	// rows are written in reverse order. Both buffers must have the same
	// dimensions.
	CopyBuffer(src, dst BufferID, flip bool) error

	// Dispatch binds inv's inputs, output and parameters and runs the
	// kernel identified by inv.Handle over inv.GridX × inv.GridY tiles.
	Dispatch(inv *Invocation) error
}

// KernelDevice is a Device that also provides compute kernels.
type KernelDevice interface {
	Device
	StageResolver
}
