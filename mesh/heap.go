package mesh

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ggcore/coreobject"
	"github.com/gogpu/ggcore/corethread"
	"github.com/gogpu/ggcore/hwbuffer"
	"github.com/gogpu/ggcore/internal/logging"
	"github.com/gogpu/ggcore/query"
)

// Deps bundles the runtime services a heap is built on.
type Deps struct {
	Objects *coreobject.Manager
	Buffers hwbuffer.Factory
	Queries *query.Manager
}

// Heap is the simulation-side half of a mesh heap. Alloc and Dealloc may be
// called from any goroutine of the simulation side; the allocation itself
// runs on the core thread.
type Heap struct {
	*coreobject.Object

	deps        Deps
	acc         *corethread.Accessor
	vertexDesc  *hwbuffer.VertexDataDesc
	indexFormat gputypes.IndexFormat
	numVertices uint32
	numIndices  uint32
	opts        heapOptions

	// mu also serializes Alloc with Destroy. The core thread never takes it.
	mu         sync.Mutex
	meshes     map[uint32]*TransientMesh
	nextFreeID uint32
	destroyed  bool
}

// NewHeap creates a heap with room for numVertices vertices laid out as
// vertexDesc and numIndices indices of indexFormat. The device buffers are
// created on the core thread.
func NewHeap(deps Deps, numVertices, numIndices uint32, vertexDesc *hwbuffer.VertexDataDesc,
	indexFormat gputypes.IndexFormat, opts ...Option) (*Heap, error) {
	if deps.Objects == nil || deps.Buffers == nil || deps.Queries == nil {
		panic("mesh: incomplete heap dependencies")
	}
	if numVertices == 0 || numIndices == 0 {
		return nil, fmt.Errorf("%w: heap needs room for vertices and indices (got %d, %d)",
			hwbuffer.ErrInvalidParameters, numVertices, numIndices)
	}
	if vertexDesc == nil || vertexDesc.MaxStreamIdx() < 0 {
		return nil, fmt.Errorf("%w: empty vertex layout", hwbuffer.ErrInvalidParameters)
	}
	if hwbuffer.IndexSize(indexFormat) == 0 {
		return nil, fmt.Errorf("%w: unsupported index format %v", hwbuffer.ErrInvalidParameters, indexFormat)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	h := &Heap{
		deps:        deps,
		acc:         deps.Objects.Accessor(),
		vertexDesc:  vertexDesc,
		indexFormat: indexFormat,
		numVertices: numVertices,
		numIndices:  numIndices,
		opts:        o,
		meshes:      make(map[uint32]*TransientMesh),
	}
	h.Object = deps.Objects.NewObject(h, o.label, coreobject.FlagRequiresCoreInit)
	if err := h.Initialize(); err != nil {
		return nil, err
	}
	return h, nil
}

// CreateCore implements coreobject.CoreCreator.
func (h *Heap) CreateCore() coreobject.Core {
	return &HeapCore{
		factory:     h.deps.Buffers,
		queries:     h.deps.Queries,
		vertexDesc:  h.vertexDesc,
		indexFormat: h.indexFormat,
		numVertices: h.numVertices,
		numIndices:  h.numIndices,
		opts:        h.opts,
	}
}

// VertexDesc returns the heap's vertex layout.
func (h *Heap) VertexDesc() *hwbuffer.VertexDataDesc { return h.vertexDesc }

// IndexFormat returns the heap's index format.
func (h *Heap) IndexFormat() gputypes.IndexFormat { return h.indexFormat }

func (h *Heap) heapCore() *HeapCore {
	c, _ := h.Core().(*HeapCore)
	return c
}

// Alloc creates a transient mesh holding a copy of data. The returned mesh
// is usable right away; its GPU ranges are reserved when the core thread
// runs the allocation, see TransientMesh.AllocResult.
//
// Returns ErrLayoutMismatch if data does not match the heap's layout, and
// hwbuffer.ErrInvalidParameters for empty meshes.
func (h *Heap) Alloc(data *MeshData, drawOp DrawOperation) (*TransientMesh, error) {
	if data == nil {
		panic("mesh: Alloc with nil mesh data")
	}
	if h.IsDestroyed() {
		panic(fmt.Sprintf("mesh: Alloc on destroyed heap %q", h.opts.label))
	}
	if err := h.checkLayout(data); err != nil {
		return nil, err
	}
	if data.NumVertices() == 0 || data.NumIndices() == 0 {
		return nil, fmt.Errorf("%w: mesh has %d vertices, %d indices",
			hwbuffer.ErrInvalidParameters, data.NumVertices(), data.NumIndices())
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		panic(fmt.Sprintf("mesh: Alloc on destroyed heap %q", h.opts.label))
	}
	heapCore := h.heapCore()
	id := h.nextFreeID
	h.nextFreeID++
	m := newTransientMesh(h, id, data.NumVertices(), data.NumIndices(), drawOp)
	if err := m.Initialize(); err != nil {
		return nil, err
	}
	h.meshes[id] = m

	meshCore := m.meshCore()
	snapshot := data.clone()
	m.allocOp = coreobject.QueueReturnGpuCommand(h.acc, heapCore, "mesh-alloc", func(c *HeapCore) error {
		return c.allocInternal(meshCore, snapshot)
	})
	return m, nil
}

// Dealloc releases mesh. Its GPU ranges become reusable once the GPU is
// done with them as well. Deallocating a mesh twice, or a mesh of another
// heap, panics.
func (h *Heap) Dealloc(m *TransientMesh) {
	h.mu.Lock()
	if h.meshes[m.id] != m {
		h.mu.Unlock()
		panic(fmt.Sprintf("mesh: Dealloc of mesh %d not owned by heap %q", m.id, h.opts.label))
	}
	delete(h.meshes, m.id)
	h.mu.Unlock()

	id := m.id
	coreobject.QueueGpuCommand(h.acc, h.heapCore(), "mesh-dealloc", func(c *HeapCore) {
		c.deallocInternal(id)
	})
	m.DestroyWith(h.acc)
}

// NotifyUsedOnGPU queues, through acc, the notification that mesh was
// drawn by commands acc submitted before it. Until the GPU passes that
// point, a deallocated mesh keeps its ranges.
func (h *Heap) NotifyUsedOnGPU(acc *corethread.Accessor, m *TransientMesh) {
	meshCore := m.meshCore()
	if meshCore == nil {
		panic(fmt.Sprintf("mesh: NotifyUsedOnGPU on released mesh %d", m.id))
	}
	label := h.opts.label
	coreobject.QueueGpuCommand(acc, meshCore, "mesh-used", func(c *TransientMeshCore) {
		if err := c.NotifyUsedOnGPU(); err != nil {
			logging.Logger().Warn("mesh: notify used on GPU failed", "heap", label, "mesh", c.ID(), "err", err)
		}
	})
}

// Mesh returns the live mesh with id.
func (h *Heap) Mesh(id uint32) (*TransientMesh, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.meshes[id]
	return m, ok
}

// NumMeshes returns the number of meshes allocated and not yet deallocated.
func (h *Heap) NumMeshes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.meshes)
}

// Stats queues a snapshot of the core-side counters.
func (h *Heap) Stats(acc *corethread.Accessor) *corethread.AsyncOp[HeapStats] {
	return coreobject.QueueReturnGpuCommand(acc, h.heapCore(), "mesh-stats", (*HeapCore).Stats)
}

// Destroy deallocates every remaining mesh and releases the heap buffers
// on the core thread.
func (h *Heap) Destroy() {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return
	}
	h.destroyed = true
	meshes := make([]*TransientMesh, 0, len(h.meshes))
	for _, m := range h.meshes {
		meshes = append(meshes, m)
	}
	h.mu.Unlock()

	for _, m := range meshes {
		h.Dealloc(m)
	}
	h.Object.DestroyWith(h.acc)
}

func (h *Heap) checkLayout(data *MeshData) error {
	if data.IndexFormat() != h.indexFormat {
		return fmt.Errorf("%w: index format %v, heap uses %v", ErrLayoutMismatch, data.IndexFormat(), h.indexFormat)
	}
	desc := data.VertexDesc()
	if desc.MaxStreamIdx() != h.vertexDesc.MaxStreamIdx() {
		return fmt.Errorf("%w: %d vertex streams, heap uses %d",
			ErrLayoutMismatch, desc.MaxStreamIdx()+1, h.vertexDesc.MaxStreamIdx()+1)
	}
	for s := 0; s <= h.vertexDesc.MaxStreamIdx(); s++ {
		if got, want := desc.VertexStride(s), h.vertexDesc.VertexStride(s); got != want {
			return fmt.Errorf("%w: stream %d stride %d, heap uses %d", ErrLayoutMismatch, s, got, want)
		}
	}
	return nil
}
