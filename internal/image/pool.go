package image

import "sync"

// Pool is a thread-safe pool for reusing Frame storage.
//
// Pool groups frames by their dimensions, allowing efficient reuse of
// identically-sized frames. This reduces GC pressure for backends that
// allocate and free the same temporaries every frame.
//
// Thread safety: All methods are safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	buckets map[poolKey][]*Frame
	maxSize int // max frames per bucket
}

// poolKey identifies a bucket of identically sized frames.
type poolKey struct {
	width  int
	height int
}

// NewPool creates a new frame pool with the given maximum frames per bucket.
// A maxPerBucket of 0 or less means unlimited (use with caution).
func NewPool(maxPerBucket int) *Pool {
	return &Pool{
		buckets: make(map[poolKey][]*Frame),
		maxSize: maxPerBucket,
	}
}

// Get retrieves a zeroed frame from the pool or creates a new one.
// Returns nil for invalid dimensions.
func (p *Pool) Get(width, height int) *Frame {
	key := poolKey{width: width, height: height}

	p.mu.Lock()
	bucket := p.buckets[key]
	if len(bucket) > 0 {
		f := bucket[len(bucket)-1]
		p.buckets[key] = bucket[:len(bucket)-1]
		p.mu.Unlock()

		f.Clear()
		return f
	}
	p.mu.Unlock()

	f, err := NewFrame(width, height)
	if err != nil {
		return nil
	}
	return f
}

// Put returns a frame to the pool for reuse.
// If f is nil or the bucket is at max capacity, the frame is discarded.
func (p *Pool) Put(f *Frame) {
	if f == nil {
		return
	}
	key := poolKey{width: f.width, height: f.height}

	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.buckets[key]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		return
	}
	p.buckets[key] = append(bucket, f)
}

// Len returns the number of pooled frames.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.buckets {
		n += len(b)
	}
	return n
}
