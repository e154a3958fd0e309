package edgefx

import (
	"fmt"
	"sync"
)

// Default pool limits.
const (
	// DefaultMaxMemoryMB is the default budget for pooled buffers (512 MB).
	DefaultMaxMemoryMB = 512

	// MinMemoryMB is the smallest accepted budget (16 MB).
	MinMemoryMB = 16

	// DefaultMaxIdlePerBucket is how many released buffers of one shape are
	// kept for reuse.
	DefaultMaxIdlePerBucket = 4
)

// PoolConfig configures a Pool.
type PoolConfig struct {
	// MaxMemoryMB bounds live plus idle buffer memory.
	// Values below MinMemoryMB select DefaultMaxMemoryMB.
	MaxMemoryMB int

	// MaxIdlePerBucket bounds idle buffers per descriptor.
	// Zero selects DefaultMaxIdlePerBucket; negative disables reuse.
	MaxIdlePerBucket int
}

// PoolStats contains pool counters.
type PoolStats struct {
	// Acquired and Released count handle operations.
	Acquired uint64
	Released uint64

	// Created and Destroyed count device allocations.
	Created   uint64
	Destroyed uint64

	// Reused counts acquisitions served from an idle bucket.
	Reused uint64

	// Evicted counts idle buffers destroyed to make room.
	Evicted uint64

	// Failed counts acquisitions that returned ErrResourceExhausted.
	Failed uint64

	// Outstanding is the number of live handles.
	Outstanding int

	// Idle is the number of pooled device buffers awaiting reuse.
	Idle int

	// UsedBytes is live plus idle memory; BudgetBytes is the limit.
	UsedBytes   uint64
	BudgetBytes uint64
}

// String returns a human-readable summary.
func (s PoolStats) String() string {
	return fmt.Sprintf("Pool[%d live, %d idle, %d/%d MB, %d acquired, %d released, %d failed]",
		s.Outstanding, s.Idle, s.UsedBytes/(1024*1024), s.BudgetBytes/(1024*1024),
		s.Acquired, s.Released, s.Failed)
}

// idleBuffer is a released device buffer kept for reuse.
type idleBuffer struct {
	id   BufferID
	size uint64
}

// Pool hands out temporary frame buffers backed by a Device.
//
// Every handle carries a generation; a released handle is never valid
// again even when its device buffer is reissued. Pool is safe for
// concurrent use so that frames in flight on different goroutines keep
// the bookkeeping consistent.
type Pool struct {
	mu sync.Mutex

	device Device

	budgetBytes uint64
	usedBytes   uint64
	maxIdle     int

	live map[*FrameBuffer]struct{}

	// idle buckets keyed by label-less descriptor; oldest first.
	idle  map[Descriptor][]idleBuffer
	order []Descriptor // bucket keys in release order, for eviction

	generation uint64
	stats      PoolStats
	closed     bool
}

// NewPool creates a pool allocating from device.
func NewPool(device Device, config PoolConfig) *Pool {
	maxMB := config.MaxMemoryMB
	if maxMB < MinMemoryMB {
		maxMB = DefaultMaxMemoryMB
	}
	maxIdle := config.MaxIdlePerBucket
	if maxIdle == 0 {
		maxIdle = DefaultMaxIdlePerBucket
	}
	if maxIdle < 0 {
		maxIdle = 0
	}

	//nolint:gosec // G115: maxMB bounded by MinMemoryMB minimum
	return &Pool{
		device:      device,
		budgetBytes: uint64(maxMB) * 1024 * 1024,
		maxIdle:     maxIdle,
		live:        make(map[*FrameBuffer]struct{}),
		idle:        make(map[Descriptor][]idleBuffer),
	}
}

// Device returns the pool's device.
func (p *Pool) Device() Device { return p.device }

// Acquire returns a live temporary buffer matching desc.
// Any failure is reported as ErrResourceExhausted.
func (p *Pool) Acquire(desc Descriptor) (*FrameBuffer, error) {
	if err := desc.Validate(); err != nil {
		p.mu.Lock()
		p.stats.Failed++
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	key := desc.key()
	if id, ok := p.popIdleLocked(key); ok {
		p.stats.Reused++
		return p.issueLocked(id, desc), nil
	}

	size := desc.SizeBytes()
	if size > p.budgetBytes {
		p.stats.Failed++
		return nil, fmt.Errorf("%w: %s needs %d MB, budget is %d MB",
			ErrResourceExhausted, desc.Format, size/(1024*1024), p.budgetBytes/(1024*1024))
	}
	p.evictLocked(size)
	if p.usedBytes+size > p.budgetBytes {
		p.stats.Failed++
		return nil, fmt.Errorf("%w: need %d bytes, have %d bytes available",
			ErrResourceExhausted, size, p.budgetBytes-p.usedBytes)
	}

	id, err := p.device.CreateBuffer(desc)
	if err != nil {
		p.stats.Failed++
		return nil, fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	}
	p.stats.Created++
	p.usedBytes += size
	return p.issueLocked(id, desc), nil
}

// issueLocked wraps id in a fresh handle. Caller must hold mu.
func (p *Pool) issueLocked(id BufferID, desc Descriptor) *FrameBuffer {
	p.generation++
	fb := &FrameBuffer{id: id, desc: desc, owner: OwnerTemporary, generation: p.generation}
	p.live[fb] = struct{}{}
	p.stats.Acquired++
	return fb
}

// Release returns fb to the pool. Releasing nil is a no-op; releasing
// twice or releasing an external buffer is an error.
func (p *Pool) Release(fb *FrameBuffer) error {
	if fb == nil {
		return nil
	}
	if fb.owner == OwnerExternal {
		return ErrExternalBuffer
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.live[fb]; !ok || fb.released.Swap(true) {
		return fmt.Errorf("%w: %s", ErrBufferReleased, fb)
	}
	delete(p.live, fb)
	p.stats.Released++

	key := fb.desc.key()
	size := fb.desc.SizeBytes()
	if p.closed || len(p.idle[key]) >= p.maxIdle {
		p.destroyLocked(fb.id, size)
		return nil
	}
	p.idle[key] = append(p.idle[key], idleBuffer{id: fb.id, size: size})
	p.order = append(p.order, key)
	return nil
}

// Check returns ErrBufferReleased if fb may no longer be used.
func (p *Pool) Check(fb *FrameBuffer) error {
	if fb == nil {
		return ErrNilFrame
	}
	if fb.owner == OwnerExternal {
		return nil
	}
	p.mu.Lock()
	_, ok := p.live[fb]
	p.mu.Unlock()
	if !ok || fb.Released() {
		return fmt.Errorf("%w: %s", ErrBufferReleased, fb)
	}
	return nil
}

// Copy performs a full-frame blit from src to dst, optionally flipping
// rows. Both handles must be live and the same size.
func (p *Pool) Copy(src, dst *FrameBuffer, flip bool) error {
	if err := p.Check(src); err != nil {
		return fmt.Errorf("copy source: %w", err)
	}
	if err := p.Check(dst); err != nil {
		return fmt.Errorf("copy destination: %w", err)
	}
	if !src.sameSize(dst) {
		return fmt.Errorf("%w: copy %dx%d into %dx%d",
			ErrSizeMismatch, src.Width(), src.Height(), dst.Width(), dst.Height())
	}
	return p.device.CopyBuffer(src.id, dst.id, flip)
}

// Outstanding returns the number of live handles.
func (p *Pool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// Stats returns current counters.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Outstanding = len(p.live)
	for _, b := range p.idle {
		s.Idle += len(b)
	}
	s.UsedBytes = p.usedBytes
	s.BudgetBytes = p.budgetBytes
	return s
}

// Trim destroys every idle buffer.
func (p *Pool) Trim() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trimLocked()
}

// Close destroys all buffers, live or idle. Live handles become released.
// The pool must not be used afterwards.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.trimLocked()
	for fb := range p.live {
		fb.released.Store(true)
		p.destroyLocked(fb.id, fb.desc.SizeBytes())
	}
	p.live = make(map[*FrameBuffer]struct{})
	p.closed = true
}

// popIdleLocked takes the oldest idle buffer of key. Caller must hold mu.
func (p *Pool) popIdleLocked(key Descriptor) (BufferID, bool) {
	bucket := p.idle[key]
	if len(bucket) == 0 {
		return 0, false
	}
	b := bucket[0]
	p.idle[key] = bucket[1:]
	p.dropOrderLocked(key)
	return b.id, true
}

// evictLocked destroys idle buffers, oldest first, until size more bytes
// fit in the budget or nothing idle is left. Caller must hold mu.
func (p *Pool) evictLocked(size uint64) {
	for p.usedBytes+size > p.budgetBytes && len(p.order) > 0 {
		key := p.order[0]
		p.order = p.order[1:]
		bucket := p.idle[key]
		if len(bucket) == 0 {
			continue
		}
		b := bucket[0]
		p.idle[key] = bucket[1:]
		p.destroyLocked(b.id, b.size)
		p.stats.Evicted++
	}
}

// dropOrderLocked removes the oldest occurrence of key from the eviction
// order. Caller must hold mu.
func (p *Pool) dropOrderLocked(key Descriptor) {
	for i, k := range p.order {
		if k == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}

func (p *Pool) trimLocked() {
	for key, bucket := range p.idle {
		for _, b := range bucket {
			p.destroyLocked(b.id, b.size)
		}
		delete(p.idle, key)
	}
	p.order = nil
}

func (p *Pool) destroyLocked(id BufferID, size uint64) {
	p.device.DestroyBuffer(id)
	p.stats.Destroyed++
	p.usedBytes -= size
}
