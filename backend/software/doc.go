// Package software provides the CPU reference device for edgefx.
//
// Buffers are float RGBA frames and every stage runs the kernels from
// internal/filter, so the software device produces the same images as the
// GPU backend within floating point tolerance. It is always available and
// serves as the fallback when no GPU adapter is present.
//
// Importing the package registers it with the backend registry:
//
//	import _ "github.com/gogpu/edgefx/backend/software"
//
// Use [New] directly to set [Options] such as a buffer limit.
package software
