// Package hwbuffer defines the hardware buffer contract shared by render
// backends, the descriptors used to create buffers, vertex layout
// descriptions, and the ParamBlock dual object.
//
// Buffers are created by a Factory (one per backend device) and are only
// touched on the core thread. MemoryBuffer is a CPU implementation of the
// contract used by the software backend and as a read shadow by GPU
// backends.
package hwbuffer
