// Package filter implements the CPU reference kernels for every stage of
// the edge-detection library.
//
// Kernels operate on float RGBA frames from internal/image and follow the
// same binding contract as the GPU shaders: they read their inputs, may
// read the previous contents of dst, and write every pixel of dst. The
// channel conventions are:
//   - Edge maps store intensity in R, G and B with A = 1.
//   - Gradient and NonMax store magnitude in R and direction in G,
//     encoded as atan2(gy, gx)/π in [-1, 1].
//   - Depth-normal captures store the normal (0.5-biased) in RGB and
//     linear depth in A.
//
// Algorithms:
//   - Base detectors: Sobel over luminance, depth or normals
//   - Canny refinement: Gaussian smoothing, gradient, non-maximum
//     suppression and double-threshold hysteresis
//   - Post effects: soft blur, color restore, pulsing bloom, cel shading
package filter
