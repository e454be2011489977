// Package mesh implements the transient mesh heap: a growable pair of
// vertex and index buffers from which short-lived meshes are sub-allocated.
//
// A Heap lives on the simulation thread; its HeapCore owns the device
// buffers on the core thread. Alloc reserves one contiguous vertex range and
// one contiguous index range per mesh, using address-ordered first fit over
// free chunks and growing the buffers when nothing fits. Released ranges
// become reusable only once both sides are done with them:
//
//   - the simulation side calls Dealloc, and
//   - the GPU has passed the event query issued by NotifyUsedOnGPU.
//
// Freed ranges are merged with byte-adjacent free neighbours. Growth copies
// the old contents and keeps every live offset.
package mesh
