package filter

import (
	"math"
	"sync"

	"golang.org/x/exp/constraints"
)

// GaussianKernel generates a 1D Gaussian kernel for the given radius.
// The kernel is normalized so all values sum to 1.0.
//
// The kernel size is 2 * ceil(radius * 3) + 1, covering three standard
// deviations. For radius <= 0 it returns the identity kernel [1.0].
func GaussianKernel(radius float64) []float32 {
	if radius <= 0 {
		return []float32{1.0}
	}

	sigma := radius
	halfSize := int(math.Ceil(sigma * 3))
	size := halfSize*2 + 1

	kernel := make([]float32, size)
	twoSigmaSq := 2 * sigma * sigma
	sum := float64(0)
	for i := range size {
		x := float64(i - halfSize)
		val := math.Exp(-(x * x) / twoSigmaSq)
		kernel[i] = float32(val)
		sum += val
	}

	invSum := float32(1.0 / sum)
	for i := range kernel {
		kernel[i] *= invSum
	}
	return kernel
}

// BoxKernel generates a 1D box kernel: 2*radius+1 equal weights.
func BoxKernel(radius int) []float32 {
	if radius <= 0 {
		return []float32{1.0}
	}
	size := radius*2 + 1
	kernel := make([]float32, size)
	val := float32(1.0) / float32(size)
	for i := range kernel {
		kernel[i] = val
	}
	return kernel
}

// Sobel operators, indexed [row][column].
var (
	sobelX = [3][3]float32{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY = [3][3]float32{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}
)

// sobelNorm scales a Sobel magnitude of a unit step to 1.
const sobelNorm = 0.25

// kernelCache caches Gaussian kernels keyed by radius * 100.
type kernelCache struct {
	mu     sync.RWMutex
	cache  map[int][]float32
	maxLen int
}

var defaultKernelCache = newKernelCache(16)

func newKernelCache(maxLen int) *kernelCache {
	return &kernelCache{
		cache:  make(map[int][]float32),
		maxLen: maxLen,
	}
}

func (c *kernelCache) get(radius float64) []float32 {
	key := int(radius * 100)

	c.mu.RLock()
	if kernel, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return kernel
	}
	c.mu.RUnlock()

	kernel := GaussianKernel(radius)

	c.mu.Lock()
	if len(c.cache) >= c.maxLen {
		clear(c.cache)
	}
	c.cache[key] = kernel
	c.mu.Unlock()
	return kernel
}

// CachedGaussianKernel returns a shared Gaussian kernel for the radius.
// Callers must not modify the result.
func CachedGaussianKernel(radius float64) []float32 {
	return defaultKernelCache.get(radius)
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clamp01 clamps v to [0,1]; NaN maps to 0.
func clamp01(v float32) float32 {
	if v != v {
		return 0
	}
	return clamp(v, 0, 1)
}
