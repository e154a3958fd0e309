// Package parallel runs per-row image work on a shared pool of goroutines.
//
// The software backend splits every kernel into horizontal bands and runs
// the bands on a WorkerPool. Each band writes a disjoint set of rows, so
// kernels need no locking as long as they read their output frame only at
// the pixel they write.
package parallel
