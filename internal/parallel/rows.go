package parallel

import "sync"

// MinParallelPixels is the frame area below which Rows runs serially.
const MinParallelPixels = 64 * 64

var (
	sharedOnce sync.Once
	sharedPool *WorkerPool
)

// Shared returns the process-wide pool, started on first use with
// GOMAXPROCS workers.
func Shared() *WorkerPool {
	sharedOnce.Do(func() {
		sharedPool = NewWorkerPool(0)
	})
	return sharedPool
}

// Bands splits [0, height) into at most n contiguous row ranges of
// near-equal size. Each range is returned as [y0, y1).
func Bands(height, n int) [][2]int {
	if height <= 0 {
		return nil
	}
	n = max(1, min(n, height))
	out := make([][2]int, 0, n)
	base, extra := height/n, height%n
	y := 0
	for i := range n {
		h := base
		if i < extra {
			h++
		}
		out = append(out, [2]int{y, y + h})
		y += h
	}
	return out
}

// Rows calls fn over disjoint row bands covering [0, height) and returns
// when all of them are done. Small frames, a nil pool and a single-worker
// pool run fn once on the calling goroutine.
func Rows(p *WorkerPool, width, height int, fn func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	if p == nil || p.Workers() == 1 || width*height < MinParallelPixels {
		fn(0, height)
		return
	}
	bands := Bands(height, p.Workers()*2)
	work := make([]func(), len(bands))
	for i, b := range bands {
		work[i] = func() { fn(b[0], b[1]) }
	}
	p.ExecuteAll(work)
}
