package mesh

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ggcore/coreobject"
	"github.com/gogpu/ggcore/hwbuffer"
	"github.com/gogpu/ggcore/internal/logging"
	"github.com/gogpu/ggcore/query"
)

// useFlags tracks which sides still use an allocation.
type useFlags int

const (
	// useUsed: neither side has released the allocation.
	useUsed useFlags = iota
	// useCPUFree: released by the simulation side, GPU may still read it.
	useCPUFree
	// useGPUFree: GPU is done with it, simulation side still owns it.
	useGPUFree
	// useFree: both sides are done.
	useFree
)

func (u useFlags) String() string {
	switch u {
	case useUsed:
		return "Used"
	case useCPUFree:
		return "CPUFree"
	case useGPUFree:
		return "GPUFree"
	case useFree:
		return "Free"
	default:
		return fmt.Sprintf("Unknown(%d)", int(u))
	}
}

type allocatedData struct {
	vertChunk     int
	idxChunk      int
	useFlags      useFlags
	eventQueryIdx int
	mesh          *TransientMeshCore

	// queryPending is set while the mesh was drawn but its event query
	// could not be issued yet.
	queryPending bool
}

type eventQueryData struct {
	query   *query.EventQuery
	queryID uint32
}

// HeapCore is the core-thread half of a Heap. It owns the vertex buffers
// (one per stream), the index buffer and the chunk bookkeeping. Core-thread
// only.
type HeapCore struct {
	coreobject.CoreBase

	factory     hwbuffer.Factory
	queries     *query.Manager
	vertexDesc  *hwbuffer.VertexDataDesc
	indexFormat gputypes.IndexFormat
	numVertices uint32
	numIndices  uint32
	opts        heapOptions
	err         error

	vertexBuffers []hwbuffer.HardwareBuffer
	indexBuffer   hwbuffer.HardwareBuffer

	vertChunks chunkList
	idxChunks  chunkList
	allocs     map[uint32]*allocatedData

	eventQueries     []eventQueryData
	freeEventQueries []int
	nextQueryID      uint32
	pendingQueries   []uint32
	removeUpdateHook func()

	vertexGrows int
	indexGrows  int
	merges      int
}

// Initialize creates the heap buffers.
func (c *HeapCore) Initialize() {
	c.allocs = make(map[uint32]*allocatedData)
	c.vertChunks = newChunkList(c.numVertices)
	c.idxChunks = newChunkList(c.numIndices)
	c.nextQueryID = 1
	c.removeUpdateHook = c.queries.OnUpdate(c.retryPendingQueries)

	c.vertexBuffers = make([]hwbuffer.HardwareBuffer, c.vertexDesc.MaxStreamIdx()+1)
	for s := range c.vertexBuffers {
		if !c.vertexDesc.HasStream(s) {
			continue
		}
		buf, err := c.createVertexBuffer(s, c.numVertices)
		if err != nil {
			c.fail(err)
			break
		}
		c.vertexBuffers[s] = buf
	}
	if c.err == nil {
		c.indexBuffer, c.err = c.createIndexBuffer(c.numIndices)
		if c.err != nil {
			c.fail(c.err)
		}
	}
	c.CoreBase.Initialize()
}

func (c *HeapCore) fail(err error) {
	c.err = err
	logging.Logger().Warn("mesh: heap buffer creation failed", "heap", c.opts.label, "err", err)
	c.releaseBuffers()
}

// Err returns the buffer creation error, if any.
func (c *HeapCore) Err() error { return c.err }

// VertexBuffer returns the buffer of stream, nil if the layout has no such
// stream.
func (c *HeapCore) VertexBuffer(stream int) hwbuffer.HardwareBuffer {
	if stream < 0 || stream >= len(c.vertexBuffers) {
		return nil
	}
	return c.vertexBuffers[stream]
}

// IndexBuffer returns the index buffer.
func (c *HeapCore) IndexBuffer() hwbuffer.HardwareBuffer { return c.indexBuffer }

// Capacity returns the current vertex and index capacity.
func (c *HeapCore) Capacity() (vertices, indices uint32) { return c.numVertices, c.numIndices }

// Destroy releases the heap buffers and event queries.
func (c *HeapCore) Destroy() {
	if c.removeUpdateHook != nil {
		c.removeUpdateHook()
		c.removeUpdateHook = nil
	}
	c.pendingQueries = nil
	c.releaseBuffers()
	for _, eq := range c.eventQueries {
		eq.query.Destroy()
	}
	c.eventQueries = nil
	c.freeEventQueries = nil
	c.allocs = nil
	c.CoreBase.Destroy()
}

func (c *HeapCore) releaseBuffers() {
	for s, buf := range c.vertexBuffers {
		if buf != nil {
			buf.Destroy()
			c.vertexBuffers[s] = nil
		}
	}
	if c.indexBuffer != nil {
		c.indexBuffer.Destroy()
		c.indexBuffer = nil
	}
}

func (c *HeapCore) allocInternal(m *TransientMeshCore, data *MeshData) error {
	if c.err != nil {
		return fmt.Errorf("%w: %w", ErrHeapUnavailable, c.err)
	}

	queryIdx, err := c.allocEventQuery()
	if err != nil {
		logging.Logger().Warn("mesh: allocation failed", "heap", c.opts.label, "mesh", m.id, "err", err)
		return err
	}

	vertChunk, err := c.reserve(&c.vertChunks, data.NumVertices(), c.growVertexBuffer)
	if err != nil {
		c.freeEventQuery(queryIdx)
		return err
	}
	idxChunk, err := c.reserve(&c.idxChunks, data.NumIndices(), c.growIndexBuffer)
	if err != nil {
		c.merges += c.vertChunks.release(vertChunk)
		c.freeEventQuery(queryIdx)
		return err
	}

	vc := c.vertChunks.get(vertChunk)
	ic := c.idxChunks.get(idxChunk)
	if err := c.upload(data, vc.start, ic.start); err != nil {
		c.merges += c.vertChunks.release(vertChunk)
		c.merges += c.idxChunks.release(idxChunk)
		c.freeEventQuery(queryIdx)
		logging.Logger().Warn("mesh: upload failed", "heap", c.opts.label, "mesh", m.id, "err", err)
		return err
	}

	c.allocs[m.id] = &allocatedData{
		vertChunk:     vertChunk,
		idxChunk:      idxChunk,
		useFlags:      useGPUFree,
		eventQueryIdx: queryIdx,
		mesh:          m,
	}
	m.vertexOffset = vc.start
	m.indexOffset = ic.start
	m.allocated = true
	return nil
}

// reserve allocates n elements from l, growing the heap once if needed.
func (c *HeapCore) reserve(l *chunkList, n uint32, grow func(needed uint32) error) (int, error) {
	if idx, ok := l.alloc(n); ok {
		return idx, nil
	}
	if err := grow(n); err != nil {
		return 0, err
	}
	idx, ok := l.alloc(n)
	if !ok {
		panic(fmt.Sprintf("mesh: no free chunk of %d elements after growing", n))
	}
	return idx, nil
}

func (c *HeapCore) upload(data *MeshData, vertexOffset, indexOffset uint32) error {
	for s, buf := range c.vertexBuffers {
		if buf == nil {
			continue
		}
		stride := uint64(c.vertexDesc.VertexStride(s))
		if err := buf.WriteData(uint64(vertexOffset)*stride, data.StreamData(s), hwbuffer.WriteNoOverwrite); err != nil {
			return fmt.Errorf("mesh: write vertex stream %d: %w", s, err)
		}
	}
	idxSize := uint64(hwbuffer.IndexSize(c.indexFormat))
	if err := c.indexBuffer.WriteData(uint64(indexOffset)*idxSize, data.IndexData(), hwbuffer.WriteNoOverwrite); err != nil {
		return fmt.Errorf("mesh: write indices: %w", err)
	}
	return nil
}

func (c *HeapCore) deallocInternal(id uint32) {
	a, ok := c.allocs[id]
	if !ok {
		// The allocation itself failed.
		return
	}
	switch a.useFlags {
	case useGPUFree:
		a.useFlags = useFree
		c.release(id, a)
	case useUsed:
		a.useFlags = useCPUFree
	default:
		panic(fmt.Sprintf("mesh: dealloc of mesh %d in state %v", id, a.useFlags))
	}
}

// notifyUsedOnGPU marks the allocation of mesh id in use by the GPU and
// issues its event query. If the query cannot be issued the mesh stays in
// use and the query is retried after the next query manager update.
func (c *HeapCore) notifyUsedOnGPU(id uint32) error {
	a, ok := c.allocs[id]
	if !ok {
		return fmt.Errorf("%w: mesh %d holds no allocation", hwbuffer.ErrInvalidState, id)
	}
	if a.useFlags == useGPUFree {
		a.useFlags = useUsed
	}
	if a.queryPending {
		return nil
	}
	c.beginQuery(id, a)
	return nil
}

// beginQuery issues the event query of allocation a. On failure the
// previous query's callback is invalidated and a is queued for retry.
func (c *HeapCore) beginQuery(id uint32, a *allocatedData) bool {
	eq := &c.eventQueries[a.eventQueryIdx]
	queryID := c.nextQueryID
	c.nextQueryID++
	eq.queryID = queryID
	eq.query.OnTriggered(func() {
		c.queryTriggered(id, queryID)
	})
	err := eq.query.Begin()
	if err == nil {
		return true
	}

	eq.queryID = 0
	a.queryPending = true
	c.pendingQueries = append(c.pendingQueries, id)
	if errors.Is(err, query.ErrQueryLimit) {
		logging.Logger().Debug("mesh: event query deferred", "heap", c.opts.label, "mesh", id, "err", err)
	} else {
		logging.Logger().Warn("mesh: event query begin failed, will retry", "heap", c.opts.label, "mesh", id, "err", err)
	}
	return false
}

// retryPendingQueries issues the event queries deferred by beginQuery.
func (c *HeapCore) retryPendingQueries() {
	if len(c.pendingQueries) == 0 {
		return
	}
	pending := c.pendingQueries
	c.pendingQueries = nil
	for i, id := range pending {
		a, ok := c.allocs[id]
		if !ok || !a.queryPending {
			continue
		}
		a.queryPending = false
		if !c.beginQuery(id, a) {
			// Still no room: keep the remaining order and stop.
			for _, rest := range pending[i+1:] {
				if r, ok := c.allocs[rest]; ok && r.queryPending {
					c.pendingQueries = append(c.pendingQueries, rest)
				}
			}
			return
		}
	}
}

// queryTriggered runs when the GPU passes the event query issued for mesh
// id. Callbacks for superseded queries are ignored.
func (c *HeapCore) queryTriggered(id, queryID uint32) {
	a, ok := c.allocs[id]
	if !ok || c.eventQueries[a.eventQueryIdx].queryID != queryID {
		return
	}
	if a.useFlags == useCPUFree {
		a.useFlags = useFree
		c.release(id, a)
		return
	}
	a.useFlags = useGPUFree
}

// release returns an allocation's chunks and query slot.
func (c *HeapCore) release(id uint32, a *allocatedData) {
	c.merges += c.vertChunks.release(a.vertChunk)
	c.merges += c.idxChunks.release(a.idxChunk)
	c.freeEventQuery(a.eventQueryIdx)
	a.mesh.allocated = false
	delete(c.allocs, id)
}

func (c *HeapCore) allocEventQuery() (int, error) {
	if n := len(c.freeEventQueries); n > 0 {
		idx := c.freeEventQueries[n-1]
		c.freeEventQueries = c.freeEventQueries[:n-1]
		return idx, nil
	}
	if c.opts.maxEventQueries > 0 && len(c.eventQueries) >= c.opts.maxEventQueries {
		return 0, fmt.Errorf("%w (%d queries)", ErrQueryPoolExhausted, c.opts.maxEventQueries)
	}
	q, err := c.queries.NewEventQuery()
	if err != nil {
		return 0, err
	}
	c.eventQueries = append(c.eventQueries, eventQueryData{query: q})
	logging.Logger().Debug("mesh: event query created", "heap", c.opts.label, "total", len(c.eventQueries))
	return len(c.eventQueries) - 1, nil
}

func (c *HeapCore) freeEventQuery(idx int) {
	eq := &c.eventQueries[idx]
	eq.queryID = 0
	eq.query.OnTriggered(nil)
	c.freeEventQueries = append(c.freeEventQueries, idx)
}

func (c *HeapCore) createVertexBuffer(stream int, numVerts uint32) (hwbuffer.HardwareBuffer, error) {
	return c.factory.CreateVertexBuffer(hwbuffer.VertexBufferDesc{
		Label:      fmt.Sprintf("%s-vb%d", c.opts.label, stream),
		VertexSize: c.vertexDesc.VertexStride(stream),
		NumVerts:   numVerts,
		Usage:      hwbuffer.UsageDynamic,
	})
}

func (c *HeapCore) createIndexBuffer(numIndices uint32) (hwbuffer.HardwareBuffer, error) {
	return c.factory.CreateIndexBuffer(hwbuffer.IndexBufferDesc{
		Label:      c.opts.label + "-ib",
		Format:     c.indexFormat,
		NumIndices: numIndices,
		Usage:      hwbuffer.UsageDynamic,
	})
}

// growVertexBuffer replaces every vertex stream buffer with one large
// enough for needed more vertices, copying the old contents so existing
// offsets stay valid.
func (c *HeapCore) growVertexBuffer(needed uint32) error {
	newCap, err := growCapacity(c.numVertices, needed, c.opts.growPercent)
	if err != nil {
		return fmt.Errorf("%w: vertex %w", hwbuffer.ErrInvalidParameters, err)
	}

	grown := make([]hwbuffer.HardwareBuffer, len(c.vertexBuffers))
	for s, old := range c.vertexBuffers {
		if old == nil {
			continue
		}
		nb, err := c.createVertexBuffer(s, newCap)
		if err == nil {
			stride := uint64(c.vertexDesc.VertexStride(s))
			err = nb.CopyData(old, 0, 0, uint64(c.numVertices)*stride)
			if err != nil {
				nb.Destroy()
			}
		}
		if err != nil {
			destroyAll(grown)
			return fmt.Errorf("mesh: grow vertex stream %d: %w", s, err)
		}
		grown[s] = nb
	}

	destroyAll(c.vertexBuffers)
	c.vertexBuffers = grown
	c.vertChunks.grow(c.numVertices, newCap)
	logging.Logger().Debug("mesh: vertex buffers grown", "heap", c.opts.label, "from", c.numVertices, "to", newCap)
	c.numVertices = newCap
	c.vertexGrows++
	return nil
}

// growIndexBuffer replaces the index buffer with one large enough for
// needed more indices, keeping existing offsets.
func (c *HeapCore) growIndexBuffer(needed uint32) error {
	newCap, err := growCapacity(c.numIndices, needed, c.opts.growPercent)
	if err != nil {
		return fmt.Errorf("%w: index %w", hwbuffer.ErrInvalidParameters, err)
	}

	nb, err := c.createIndexBuffer(newCap)
	if err != nil {
		return fmt.Errorf("mesh: grow index buffer: %w", err)
	}
	idxSize := uint64(hwbuffer.IndexSize(c.indexFormat))
	if err := nb.CopyData(c.indexBuffer, 0, 0, uint64(c.numIndices)*idxSize); err != nil {
		nb.Destroy()
		return fmt.Errorf("mesh: grow index buffer: %w", err)
	}

	c.indexBuffer.Destroy()
	c.indexBuffer = nb
	c.idxChunks.grow(c.numIndices, newCap)
	logging.Logger().Debug("mesh: index buffer grown", "heap", c.opts.label, "from", c.numIndices, "to", newCap)
	c.numIndices = newCap
	c.indexGrows++
	return nil
}

func destroyAll(bufs []hwbuffer.HardwareBuffer) {
	for _, b := range bufs {
		if b != nil {
			b.Destroy()
		}
	}
}

// Validate checks the heap bookkeeping: chunks tile both buffers, every
// allocation owns a live chunk of its mesh's size, and no allocation
// references a free chunk.
func (c *HeapCore) Validate() error {
	if err := c.vertChunks.validate(c.numVertices); err != nil {
		return fmt.Errorf("mesh: vertex chunks: %w", err)
	}
	if err := c.idxChunks.validate(c.numIndices); err != nil {
		return fmt.Errorf("mesh: index chunks: %w", err)
	}
	seenVert := make(map[int]uint32, len(c.allocs))
	seenIdx := make(map[int]uint32, len(c.allocs))
	for id, a := range c.allocs {
		var errs []error
		if c.vertChunks.isFree(a.vertChunk) {
			errs = append(errs, fmt.Errorf("mesh %d: vertex chunk %d is free", id, a.vertChunk))
		}
		if c.idxChunks.isFree(a.idxChunk) {
			errs = append(errs, fmt.Errorf("mesh %d: index chunk %d is free", id, a.idxChunk))
		}
		if got := c.vertChunks.get(a.vertChunk).size; got != a.mesh.numVertices {
			errs = append(errs, fmt.Errorf("mesh %d: vertex chunk holds %d, mesh has %d", id, got, a.mesh.numVertices))
		}
		if got := c.idxChunks.get(a.idxChunk).size; got != a.mesh.numIndices {
			errs = append(errs, fmt.Errorf("mesh %d: index chunk holds %d, mesh has %d", id, got, a.mesh.numIndices))
		}
		if other, dup := seenVert[a.vertChunk]; dup {
			errs = append(errs, fmt.Errorf("mesh %d shares vertex chunk %d with mesh %d", id, a.vertChunk, other))
		}
		if other, dup := seenIdx[a.idxChunk]; dup {
			errs = append(errs, fmt.Errorf("mesh %d shares index chunk %d with mesh %d", id, a.idxChunk, other))
		}
		seenVert[a.vertChunk] = id
		seenIdx[a.idxChunk] = id
		if len(errs) > 0 {
			return fmt.Errorf("mesh: %w", errors.Join(errs...))
		}
	}
	return nil
}

// Stats returns a snapshot of the heap counters.
func (c *HeapCore) Stats() HeapStats {
	s := HeapStats{
		VertexCapacity:   c.numVertices,
		IndexCapacity:    c.numIndices,
		FreeVertices:     c.vertChunks.freeElements(),
		FreeIndices:      c.idxChunks.freeElements(),
		FreeVertexChunks: len(c.vertChunks.free),
		FreeIndexChunks:  len(c.idxChunks.free),
		Allocations:      len(c.allocs),
		EventQueries:     len(c.eventQueries),
		FreeEventQueries: len(c.freeEventQueries),
		VertexGrows:      c.vertexGrows,
		IndexGrows:       c.indexGrows,
		Merges:           c.merges,
	}
	for _, a := range c.allocs {
		if a.useFlags == useCPUFree {
			s.AwaitingGPU++
		}
	}
	s.PendingQueries = len(c.pendingQueries)
	return s
}
