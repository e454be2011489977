package mesh

import (
	"github.com/gogpu/ggcore/coreobject"
	"github.com/gogpu/ggcore/corethread"
	"github.com/gogpu/ggcore/hwbuffer"
)

// TransientMesh is a mesh sub-allocated from a Heap.
type TransientMesh struct {
	*coreobject.Object

	heap        *Heap
	id          uint32
	numVertices uint32
	numIndices  uint32
	drawOp      DrawOperation
	allocOp     *corethread.AsyncOp[error]
}

func newTransientMesh(h *Heap, id, numVertices, numIndices uint32, drawOp DrawOperation) *TransientMesh {
	m := &TransientMesh{
		heap:        h,
		id:          id,
		numVertices: numVertices,
		numIndices:  numIndices,
		drawOp:      drawOp,
	}
	m.Object = h.deps.Objects.NewObject(m, "transient-mesh", coreobject.FlagRequiresCoreInit)
	return m
}

// ID returns the mesh id, unique within its heap.
func (m *TransientMesh) ID() uint32 { return m.id }

// Heap returns the owning heap.
func (m *TransientMesh) Heap() *Heap { return m.heap }

// NumVertices returns the vertex count.
func (m *TransientMesh) NumVertices() uint32 { return m.numVertices }

// NumIndices returns the index count.
func (m *TransientMesh) NumIndices() uint32 { return m.numIndices }

// DrawOperation returns how the mesh is drawn.
func (m *TransientMesh) DrawOperation() DrawOperation { return m.drawOp }

// AllocResult completes once the core thread has reserved the mesh's
// ranges, with a nil error on success.
func (m *TransientMesh) AllocResult() *corethread.AsyncOp[error] { return m.allocOp }

// CreateCore implements coreobject.CoreCreator.
func (m *TransientMesh) CreateCore() coreobject.Core {
	return &TransientMeshCore{
		heap:        m.heap.heapCore(),
		id:          m.id,
		numVertices: m.numVertices,
		numIndices:  m.numIndices,
		drawOp:      m.drawOp,
	}
}

func (m *TransientMesh) meshCore() *TransientMeshCore {
	c, _ := m.Core().(*TransientMeshCore)
	return c
}

// TransientMeshCore is the core-thread half of a TransientMesh. Offsets are
// valid once the allocation has run.
type TransientMeshCore struct {
	coreobject.CoreBase

	heap        *HeapCore
	id          uint32
	numVertices uint32
	numIndices  uint32
	drawOp      DrawOperation

	allocated    bool
	vertexOffset uint32
	indexOffset  uint32
}

// ID returns the mesh id.
func (c *TransientMeshCore) ID() uint32 { return c.id }

// IsAllocated reports whether the mesh's ranges are reserved.
func (c *TransientMeshCore) IsAllocated() bool { return c.allocated }

// VertexOffset returns the first vertex of the mesh in the heap's vertex
// buffers, to be used as base vertex when drawing.
func (c *TransientMeshCore) VertexOffset() uint32 { return c.vertexOffset }

// IndexOffset returns the first index of the mesh in the heap's index buffer.
func (c *TransientMeshCore) IndexOffset() uint32 { return c.indexOffset }

// NumVertices returns the vertex count.
func (c *TransientMeshCore) NumVertices() uint32 { return c.numVertices }

// NumIndices returns the index count.
func (c *TransientMeshCore) NumIndices() uint32 { return c.numIndices }

// DrawOperation returns how the mesh is drawn.
func (c *TransientMeshCore) DrawOperation() DrawOperation { return c.drawOp }

// VertexBuffer returns the heap's current buffer for stream. The buffer
// changes when the heap grows.
func (c *TransientMeshCore) VertexBuffer(stream int) hwbuffer.HardwareBuffer {
	return c.heap.VertexBuffer(stream)
}

// IndexBuffer returns the heap's current index buffer.
func (c *TransientMeshCore) IndexBuffer() hwbuffer.HardwareBuffer {
	return c.heap.IndexBuffer()
}

// NotifyUsedOnGPU records that the mesh was drawn by the commands issued so
// far.
func (c *TransientMeshCore) NotifyUsedOnGPU() error {
	return c.heap.notifyUsedOnGPU(c.id)
}
