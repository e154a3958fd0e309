package image

import (
	"sync"
	"testing"
)

func TestNewPool(t *testing.T) {
	tests := []struct {
		name         string
		maxPerBucket int
		wantMaxSize  int
	}{
		{
			name:         "zero means unlimited",
			maxPerBucket: 0,
			wantMaxSize:  0,
		},
		{
			name:         "positive limit",
			maxPerBucket: 5,
			wantMaxSize:  5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewPool(tt.maxPerBucket)
			if pool == nil {
				t.Fatal("NewPool returned nil")
			}
			if pool.maxSize != tt.wantMaxSize {
				t.Errorf("maxSize = %d, want %d", pool.maxSize, tt.wantMaxSize)
			}
			if pool.buckets == nil {
				t.Error("buckets map is nil")
			}
		})
	}
}

func TestPool_GetPut_Basic(t *testing.T) {
	pool := NewPool(4)

	f1 := pool.Get(100, 50)
	if f1 == nil {
		t.Fatal("Get returned nil")
	}
	if f1.Width() != 100 || f1.Height() != 50 {
		t.Errorf("got dimensions %dx%d, want 100x50", f1.Width(), f1.Height())
	}

	// Modify frame to verify it gets cleared on reuse
	f1.Set(0, 0, Pixel{1, 0.5, 0.25, 1})
	pool.Put(f1)

	f2 := pool.Get(100, 50)
	if f2 != f1 {
		t.Error("Get did not reuse the pooled frame")
	}
	if p := f2.At(0, 0); p != (Pixel{}) {
		t.Errorf("frame not cleared: got %v, want zero", p)
	}
}

func TestPool_GetInvalid(t *testing.T) {
	pool := NewPool(1)
	if f := pool.Get(0, 10); f != nil {
		t.Errorf("Get(0, 10) = %v, want nil", f)
	}
	pool.Put(nil)
	if pool.Len() != 0 {
		t.Errorf("Len() = %d after Put(nil), want 0", pool.Len())
	}
}

func TestPool_DifferentSizes(t *testing.T) {
	pool := NewPool(2)

	pool.Put(pool.Get(100, 100))
	pool.Put(pool.Get(200, 100))

	pool.mu.Lock()
	defer pool.mu.Unlock()
	if len(pool.buckets[poolKey{100, 100}]) != 1 {
		t.Errorf("bucket[100x100] has %d frames, want 1", len(pool.buckets[poolKey{100, 100}]))
	}
	if len(pool.buckets[poolKey{200, 100}]) != 1 {
		t.Errorf("bucket[200x100] has %d frames, want 1", len(pool.buckets[poolKey{200, 100}]))
	}
}

func TestPool_MaxSize(t *testing.T) {
	maxSize := 3
	pool := NewPool(maxSize)

	frames := make([]*Frame, maxSize+2)
	for i := range frames {
		frames[i] = pool.Get(10, 10)
	}
	for _, f := range frames {
		pool.Put(f)
	}
	if got := pool.Len(); got != maxSize {
		t.Errorf("Len() = %d, want %d", got, maxSize)
	}
}

func TestPool_Concurrent(t *testing.T) {
	pool := NewPool(8)
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				f := pool.Get(16, 16)
				if f == nil {
					t.Error("Get returned nil")
					return
				}
				f.Set(1, 1, Pixel{1, 1, 1, 1})
				pool.Put(f)
			}
		}()
	}
	wg.Wait()
	if got := pool.Len(); got > 8 {
		t.Errorf("Len() = %d, want <= 8", got)
	}
}
