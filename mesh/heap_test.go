package mesh

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ggcore/backend/software"
	"github.com/gogpu/ggcore/coreobject"
	"github.com/gogpu/ggcore/corethread"
	"github.com/gogpu/ggcore/hwbuffer"
	"github.com/gogpu/ggcore/query"
)

const posStride = 12

type fixture struct {
	t       *testing.T
	dev     *software.Device
	objects *coreobject.Manager
	queries *query.Manager
	acc     *corethread.Accessor
}

func newFixture(t *testing.T, queryOpts ...query.Option) *fixture {
	t.Helper()
	th := corethread.NewThread()
	th.Start()
	t.Cleanup(th.Stop)

	dev := software.New()
	if err := dev.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(dev.Close)

	objects := coreobject.NewManager(th)
	return &fixture{
		t:       t,
		dev:     dev,
		objects: objects,
		queries: query.NewManager(dev, queryOpts...),
		acc:     objects.Accessor(),
	}
}

func positionDesc(t *testing.T) *hwbuffer.VertexDataDesc {
	t.Helper()
	d := hwbuffer.NewVertexDataDesc()
	if err := d.AddElement(hwbuffer.SemanticPosition, 0, gputypes.VertexFormatFloat32x3, 0); err != nil {
		t.Fatalf("AddElement: %v", err)
	}
	return d
}

func (f *fixture) newHeap(numVertices, numIndices uint32, opts ...Option) *Heap {
	f.t.Helper()
	h, err := NewHeap(Deps{Objects: f.objects, Buffers: f.dev, Queries: f.queries},
		numVertices, numIndices, positionDesc(f.t), gputypes.IndexFormatUint32, opts...)
	if err != nil {
		f.t.Fatalf("NewHeap: %v", err)
	}
	return h
}

// meshData builds a mesh whose vertex bytes all equal fill.
func (f *fixture) meshData(h *Heap, numVertices, numIndices uint32, fill byte) *MeshData {
	f.t.Helper()
	d, err := NewMeshData(numVertices, numIndices, h.VertexDesc(), h.IndexFormat())
	if err != nil {
		f.t.Fatalf("NewMeshData: %v", err)
	}
	if err := d.SetStreamData(0, bytes.Repeat([]byte{fill}, int(numVertices)*posStride)); err != nil {
		f.t.Fatalf("SetStreamData: %v", err)
	}
	idx := make([]uint32, numIndices)
	for i := range idx {
		idx[i] = uint32(i) % numVertices
	}
	if err := d.SetIndices(idx); err != nil {
		f.t.Fatalf("SetIndices: %v", err)
	}
	return d
}

// alloc allocates a mesh and waits for the core side.
func (f *fixture) alloc(h *Heap, numVertices, numIndices uint32, fill byte) *TransientMesh {
	f.t.Helper()
	m, err := h.Alloc(f.meshData(h, numVertices, numIndices, fill), TriangleList)
	if err != nil {
		f.t.Fatalf("Alloc: %v", err)
	}
	f.flush()
	if err := m.AllocResult().ReturnValue(); err != nil {
		f.t.Fatalf("AllocResult: %v", err)
	}
	return m
}

func (f *fixture) flush() {
	f.t.Helper()
	if err := f.acc.SubmitAndWait(); err != nil {
		f.t.Fatalf("SubmitAndWait: %v", err)
	}
}

// onCore runs fn on the core thread and waits for it.
func (f *fixture) onCore(fn func()) {
	f.acc.Queue("test", fn)
	f.flush()
}

// gpuFrame lets the GPU finish everything issued so far and delivers query
// callbacks.
func (f *fixture) gpuFrame() {
	f.dev.Complete()
	f.onCore(f.queries.Update)
}

func (f *fixture) stats(h *Heap) HeapStats {
	f.t.Helper()
	op := h.Stats(f.acc)
	f.flush()
	return op.ReturnValue()
}

func (f *fixture) validate(h *Heap) {
	f.t.Helper()
	var err error
	f.onCore(func() { err = h.heapCore().Validate() })
	if err != nil {
		f.t.Errorf("Validate: %v", err)
	}
}

func (f *fixture) offsets(m *TransientMesh) (vertex, index uint32) {
	c := m.meshCore()
	f.onCore(func() { vertex, index = c.VertexOffset(), c.IndexOffset() })
	return vertex, index
}

func (f *fixture) readVertices(h *Heap, first, count uint32) []byte {
	f.t.Helper()
	buf := make([]byte, count*posStride)
	var err error
	f.onCore(func() { err = h.heapCore().VertexBuffer(0).ReadData(uint64(first)*posStride, buf) })
	if err != nil {
		f.t.Fatalf("ReadData: %v", err)
	}
	return buf
}

func TestAllocPlacesMeshesContiguously(t *testing.T) {
	f := newFixture(t)
	h := f.newHeap(100, 100)

	m1 := f.alloc(h, 40, 60, 1)
	m2 := f.alloc(h, 30, 20, 2)

	if v, i := f.offsets(m1); v != 0 || i != 0 {
		t.Errorf("m1 offsets = %d/%d, want 0/0", v, i)
	}
	if v, i := f.offsets(m2); v != 40 || i != 60 {
		t.Errorf("m2 offsets = %d/%d, want 40/60", v, i)
	}
	if got := f.readVertices(h, 40, 30); !bytes.Equal(got, bytes.Repeat([]byte{2}, 30*posStride)) {
		t.Error("m2 vertex bytes not uploaded at its offset")
	}

	s := f.stats(h)
	if s.UsedVertices() != 70 || s.UsedIndices() != 80 {
		t.Errorf("used = %d/%d, want 70/80", s.UsedVertices(), s.UsedIndices())
	}
	if s.Allocations != 2 || h.NumMeshes() != 2 {
		t.Errorf("Allocations = %d, NumMeshes = %d, want 2", s.Allocations, h.NumMeshes())
	}
	if got, ok := h.Mesh(m2.ID()); !ok || got != m2 {
		t.Error("Mesh(m2.ID()) did not return m2")
	}
	f.validate(h)
}

func TestIndexUpload(t *testing.T) {
	f := newFixture(t)
	h := f.newHeap(16, 16)
	f.alloc(h, 4, 3, 0)
	m := f.alloc(h, 4, 6, 0)

	_, first := f.offsets(m)
	got := make([]byte, 6*4)
	f.onCore(func() { _ = h.heapCore().IndexBuffer().ReadData(uint64(first)*4, got) })

	want, _ := NewMeshData(4, 6, h.VertexDesc(), h.IndexFormat())
	_ = want.SetIndices([]uint32{0, 1, 2, 3, 0, 1})
	if !bytes.Equal(got, want.IndexData()) {
		t.Errorf("index bytes = %v, want %v", got, want.IndexData())
	}
}

// The end-to-end scenario: growth keeps old data and offsets, two-phase
// release frees space only after the GPU is done, and the freed range is
// reused first.
func TestHeapScenario(t *testing.T) {
	f := newFixture(t)
	h := f.newHeap(100, 100)

	m1 := f.alloc(h, 40, 60, 0xA1)
	m2 := f.alloc(h, 80, 30, 0xB2)

	s := f.stats(h)
	if s.VertexCapacity != 225 || s.VertexGrows != 1 {
		t.Errorf("vertex capacity = %d (grows %d), want 225 (1)", s.VertexCapacity, s.VertexGrows)
	}
	if s.IndexCapacity != 100 || s.IndexGrows != 0 {
		t.Errorf("index capacity = %d (grows %d), want 100 (0)", s.IndexCapacity, s.IndexGrows)
	}
	if v, _ := f.offsets(m2); v != 40 {
		t.Errorf("m2 vertex offset = %d, want 40", v)
	}
	if got := f.readVertices(h, 0, 40); !bytes.Equal(got, bytes.Repeat([]byte{0xA1}, 40*posStride)) {
		t.Error("m1 vertex bytes lost by growth")
	}
	if got := f.readVertices(h, 40, 80); !bytes.Equal(got, bytes.Repeat([]byte{0xB2}, 80*posStride)) {
		t.Error("m2 vertex bytes wrong after growth")
	}

	h.NotifyUsedOnGPU(f.acc, m1)
	h.Dealloc(m1)
	f.flush()

	s = f.stats(h)
	if s.Allocations != 2 || s.AwaitingGPU != 1 {
		t.Errorf("after dealloc: Allocations = %d, AwaitingGPU = %d, want 2, 1", s.Allocations, s.AwaitingGPU)
	}

	f.gpuFrame()
	s = f.stats(h)
	if s.Allocations != 1 || s.AwaitingGPU != 0 {
		t.Errorf("after GPU: Allocations = %d, AwaitingGPU = %d, want 1, 0", s.Allocations, s.AwaitingGPU)
	}

	m3 := f.alloc(h, 30, 10, 0xC3)
	if v, i := f.offsets(m3); v != 0 || i != 0 {
		t.Errorf("m3 offsets = %d/%d, want 0/0", v, i)
	}
	if s := f.stats(h); s.VertexGrows != 1 {
		t.Errorf("VertexGrows = %d after reuse, want 1", s.VertexGrows)
	}
	f.validate(h)
}

func TestTwoPhaseRelease(t *testing.T) {
	t.Run("never drawn", func(t *testing.T) {
		f := newFixture(t)
		h := f.newHeap(10, 10)
		m := f.alloc(h, 10, 10, 1)
		h.Dealloc(m)
		f.flush()
		if s := f.stats(h); s.FreeVertices != 10 || s.Allocations != 0 {
			t.Errorf("stats = %v", s)
		}
	})

	t.Run("released before GPU finishes", func(t *testing.T) {
		f := newFixture(t)
		h := f.newHeap(10, 10)
		m := f.alloc(h, 10, 10, 1)
		h.NotifyUsedOnGPU(f.acc, m)
		h.Dealloc(m)
		f.flush()

		if s := f.stats(h); s.FreeVertices != 0 {
			t.Errorf("FreeVertices = %d while GPU may read, want 0", s.FreeVertices)
		}

		// A frame without GPU progress changes nothing.
		f.onCore(f.queries.Update)
		if s := f.stats(h); s.AwaitingGPU != 1 {
			t.Errorf("AwaitingGPU = %d, want 1", s.AwaitingGPU)
		}

		f.gpuFrame()
		if s := f.stats(h); s.FreeVertices != 10 || s.FreeEventQueries != 1 {
			t.Errorf("after GPU: FreeVertices = %d, FreeEventQueries = %d", s.FreeVertices, s.FreeEventQueries)
		}
	})

	t.Run("GPU finishes first", func(t *testing.T) {
		f := newFixture(t)
		h := f.newHeap(10, 10)
		m := f.alloc(h, 10, 10, 1)
		h.NotifyUsedOnGPU(f.acc, m)
		f.flush()
		f.gpuFrame()

		if s := f.stats(h); s.FreeVertices != 0 {
			t.Errorf("FreeVertices = %d before Dealloc, want 0", s.FreeVertices)
		}
		h.Dealloc(m)
		f.flush()
		if s := f.stats(h); s.FreeVertices != 10 {
			t.Errorf("FreeVertices = %d after Dealloc, want 10", s.FreeVertices)
		}
	})
}

func TestMergeAdjacentChunks(t *testing.T) {
	f := newFixture(t)
	h := f.newHeap(15, 15)

	a := f.alloc(h, 10, 10, 1)
	b := f.alloc(h, 5, 5, 2)
	if v, _ := f.offsets(b); v != 10 {
		t.Fatalf("b vertex offset = %d, want 10", v)
	}
	h.Dealloc(a)
	h.Dealloc(b)
	f.flush()

	s := f.stats(h)
	if s.FreeVertexChunks != 1 || s.FreeIndexChunks != 1 {
		t.Errorf("free chunks = %d/%d, want 1/1", s.FreeVertexChunks, s.FreeIndexChunks)
	}
	if s.Merges == 0 {
		t.Error("Merges = 0, want > 0")
	}

	c := f.alloc(h, 15, 15, 3)
	if v, i := f.offsets(c); v != 0 || i != 0 {
		t.Errorf("c offsets = %d/%d, want 0/0", v, i)
	}
	if s := f.stats(h); s.VertexGrows != 0 || s.IndexGrows != 0 {
		t.Errorf("grows = %d/%d, want 0/0", s.VertexGrows, s.IndexGrows)
	}
	f.validate(h)
}

func TestNoMergeAcrossLiveMesh(t *testing.T) {
	f := newFixture(t)
	h := f.newHeap(30, 30)

	a := f.alloc(h, 10, 10, 1)
	f.alloc(h, 10, 10, 2)
	c := f.alloc(h, 10, 10, 3)
	h.Dealloc(a)
	h.Dealloc(c)
	f.flush()

	if s := f.stats(h); s.FreeVertexChunks != 2 {
		t.Errorf("FreeVertexChunks = %d, want 2", s.FreeVertexChunks)
	}

	f.alloc(h, 20, 20, 4)
	s := f.stats(h)
	if s.VertexGrows != 1 || s.IndexGrows != 1 {
		t.Errorf("grows = %d/%d, want 1/1", s.VertexGrows, s.IndexGrows)
	}
	f.validate(h)
}

func TestStaleQueryIgnored(t *testing.T) {
	f := newFixture(t)
	h := f.newHeap(10, 10)
	m := f.alloc(h, 5, 5, 1)
	core := h.heapCore()

	var first, second uint32
	f.onCore(func() {
		if err := core.notifyUsedOnGPU(m.ID()); err != nil {
			t.Errorf("notify: %v", err)
		}
		first = core.eventQueries[core.allocs[m.ID()].eventQueryIdx].queryID
		if err := core.notifyUsedOnGPU(m.ID()); err != nil {
			t.Errorf("notify: %v", err)
		}
		second = core.eventQueries[core.allocs[m.ID()].eventQueryIdx].queryID
	})
	if first == second {
		t.Fatalf("query ids not refreshed: %d", first)
	}

	h.Dealloc(m)
	f.flush()

	f.onCore(func() { core.queryTriggered(m.ID(), first) })
	if s := f.stats(h); s.AwaitingGPU != 1 {
		t.Errorf("stale callback released the mesh: AwaitingGPU = %d, want 1", s.AwaitingGPU)
	}

	f.onCore(func() { core.queryTriggered(m.ID(), second) })
	if s := f.stats(h); s.Allocations != 0 || s.FreeVertices != 10 {
		t.Errorf("after current callback: %v", s)
	}

	// A callback for an already released mesh is ignored as well.
	f.onCore(func() { core.queryTriggered(m.ID(), second) })
	f.validate(h)
}

func TestQueryPoolExhausted(t *testing.T) {
	f := newFixture(t)
	h := f.newHeap(10, 10, WithMaxEventQueries(1))

	m1 := f.alloc(h, 2, 2, 1)
	m2, err := h.Alloc(f.meshData(h, 2, 2, 2), TriangleList)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	f.flush()
	if err := m2.AllocResult().ReturnValue(); !errors.Is(err, ErrQueryPoolExhausted) {
		t.Fatalf("AllocResult = %v, want ErrQueryPoolExhausted", err)
	}
	if s := f.stats(h); s.UsedVertices() != 2 {
		t.Errorf("failed alloc reserved vertices: used = %d, want 2", s.UsedVertices())
	}

	h.Dealloc(m2)
	h.Dealloc(m1)
	f.flush()

	f.alloc(h, 2, 2, 3)
	if s := f.stats(h); s.EventQueries != 1 {
		t.Errorf("EventQueries = %d, want 1 (recycled)", s.EventQueries)
	}
}

func TestAllocRejectsBadData(t *testing.T) {
	f := newFixture(t)
	h := f.newHeap(10, 10)

	short, _ := NewMeshData(3, 3, h.VertexDesc(), gputypes.IndexFormatUint16)
	if _, err := h.Alloc(short, TriangleList); !errors.Is(err, ErrLayoutMismatch) {
		t.Errorf("index format mismatch err = %v, want ErrLayoutMismatch", err)
	}

	wide := hwbuffer.NewVertexDataDesc()
	_ = wide.AddElement(hwbuffer.SemanticPosition, 0, gputypes.VertexFormatFloat32x4, 0)
	other, _ := NewMeshData(3, 3, wide, gputypes.IndexFormatUint32)
	if _, err := h.Alloc(other, TriangleList); !errors.Is(err, ErrLayoutMismatch) {
		t.Errorf("stride mismatch err = %v, want ErrLayoutMismatch", err)
	}

	empty, _ := NewMeshData(0, 3, h.VertexDesc(), h.IndexFormat())
	if _, err := h.Alloc(empty, TriangleList); !errors.Is(err, hwbuffer.ErrInvalidParameters) {
		t.Errorf("empty mesh err = %v, want ErrInvalidParameters", err)
	}
	if h.NumMeshes() != 0 {
		t.Errorf("NumMeshes = %d, want 0", h.NumMeshes())
	}
}

func TestNewHeapInvalid(t *testing.T) {
	f := newFixture(t)
	deps := Deps{Objects: f.objects, Buffers: f.dev, Queries: f.queries}
	tests := []struct {
		name   string
		nv, ni uint32
		desc   *hwbuffer.VertexDataDesc
		format gputypes.IndexFormat
	}{
		{"no vertices", 0, 10, positionDesc(t), gputypes.IndexFormatUint32},
		{"no indices", 10, 0, positionDesc(t), gputypes.IndexFormatUint32},
		{"empty layout", 10, 10, hwbuffer.NewVertexDataDesc(), gputypes.IndexFormatUint32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewHeap(deps, tt.nv, tt.ni, tt.desc, tt.format); !errors.Is(err, hwbuffer.ErrInvalidParameters) {
				t.Errorf("err = %v, want ErrInvalidParameters", err)
			}
		})
	}
}

func TestDeallocTwicePanics(t *testing.T) {
	f := newFixture(t)
	h := f.newHeap(10, 10)
	m := f.alloc(h, 2, 2, 1)
	h.Dealloc(m)
	defer func() {
		if recover() == nil {
			t.Error("second Dealloc did not panic")
		}
	}()
	h.Dealloc(m)
}

func TestMultiStreamGrowth(t *testing.T) {
	f := newFixture(t)
	desc := hwbuffer.NewVertexDataDesc()
	_ = desc.AddElement(hwbuffer.SemanticPosition, 0, gputypes.VertexFormatFloat32x2, 0)
	_ = desc.AddElement(hwbuffer.SemanticColor, 0, gputypes.VertexFormatFloat32x4, 1)

	h, err := NewHeap(Deps{Objects: f.objects, Buffers: f.dev, Queries: f.queries},
		4, 6, desc, gputypes.IndexFormatUint16, WithGrowPercent(2), WithLabel("ui"))
	if err != nil {
		t.Fatalf("NewHeap: %v", err)
	}

	newData := func(n uint32, pos, col float32) *MeshData {
		d, _ := NewMeshData(n, 3, desc, gputypes.IndexFormatUint16)
		p := make([]float32, n*2)
		c := make([]float32, n*4)
		for i := range p {
			p[i] = pos
		}
		for i := range c {
			c[i] = col
		}
		if err := d.SetFloat32Element(hwbuffer.SemanticPosition, 0, p); err != nil {
			t.Fatalf("SetFloat32Element: %v", err)
		}
		if err := d.SetFloat32Element(hwbuffer.SemanticColor, 0, c); err != nil {
			t.Fatalf("SetFloat32Element: %v", err)
		}
		_ = d.SetIndices([]uint32{0, 1, 2})
		return d
	}

	first := newData(3, 1, 2)
	m1, _ := h.Alloc(first, TriangleList)
	m2, _ := h.Alloc(newData(3, 3, 4), TriangleList)
	f.flush()
	for _, m := range []*TransientMesh{m1, m2} {
		if err := m.AllocResult().ReturnValue(); err != nil {
			t.Fatalf("AllocResult: %v", err)
		}
	}

	s := f.stats(h)
	if s.VertexCapacity != 8 || s.VertexGrows != 1 {
		t.Errorf("vertex capacity = %d (grows %d), want 8 (1)", s.VertexCapacity, s.VertexGrows)
	}

	core := h.heapCore()
	colors := make([]byte, 3*16)
	f.onCore(func() { _ = core.VertexBuffer(1).ReadData(0, colors) })
	if !bytes.Equal(colors, first.StreamData(1)) {
		t.Error("color stream of m1 lost by growth")
	}
	if v, _ := f.offsets(m2); v != 3 {
		t.Errorf("m2 vertex offset = %d, want 3", v)
	}
	f.validate(h)
}

func TestHeapDestroyReleasesBuffers(t *testing.T) {
	f := newFixture(t)
	h := f.newHeap(10, 10)
	f.alloc(h, 2, 2, 1)
	f.alloc(h, 2, 2, 2)

	if f.dev.Stats().Buffers != 2 {
		t.Fatalf("Buffers = %d, want 2", f.dev.Stats().Buffers)
	}
	h.Destroy()
	f.flush()

	if h.NumMeshes() != 0 {
		t.Errorf("NumMeshes = %d after Destroy", h.NumMeshes())
	}
	if got := f.dev.Stats().Buffers; got != 0 {
		t.Errorf("Buffers = %d after Destroy, want 0", got)
	}
	if h.State() != coreobject.StateDestroyed {
		t.Errorf("State() = %v, want Destroyed", h.State())
	}
}

func TestDrawnMeshKeptWhenQueryDeferred(t *testing.T) {
	f := newFixture(t, query.WithMaxOutstanding(1))
	h := f.newHeap(20, 20)
	a := f.alloc(h, 10, 10, 1)
	b := f.alloc(h, 10, 10, 2)
	if v, _ := f.offsets(b); v != 10 {
		t.Fatalf("b vertex offset = %d, want 10", v)
	}

	h.NotifyUsedOnGPU(f.acc, a)
	h.NotifyUsedOnGPU(f.acc, b)
	h.Dealloc(b)
	f.flush()

	s := f.stats(h)
	if s.PendingQueries != 1 {
		t.Errorf("PendingQueries = %d, want 1", s.PendingQueries)
	}
	if s.FreeVertices != 0 || s.AwaitingGPU != 1 {
		t.Fatalf("FreeVertices = %d, AwaitingGPU = %d, want 0, 1", s.FreeVertices, s.AwaitingGPU)
	}

	c := f.alloc(h, 10, 10, 3)
	if v, _ := f.offsets(c); v == 10 {
		t.Error("mesh c reuses the range of b before the GPU is done with it")
	}

	// a's query completes; b's deferred query is issued in its place.
	f.gpuFrame()
	s = f.stats(h)
	if s.PendingQueries != 0 {
		t.Errorf("PendingQueries after update = %d, want 0", s.PendingQueries)
	}
	if s.AwaitingGPU != 1 {
		t.Errorf("AwaitingGPU after update = %d, want 1", s.AwaitingGPU)
	}

	f.gpuFrame()
	if s := f.stats(h); s.AwaitingGPU != 0 || s.Allocations != 2 {
		t.Errorf("AwaitingGPU = %d, Allocations = %d, want 0, 2", s.AwaitingGPU, s.Allocations)
	}
	if got := f.readVertices(h, 0, 10); !bytes.Equal(got, bytes.Repeat([]byte{1}, 10*posStride)) {
		t.Error("vertices of a changed")
	}
	f.validate(h)
}

func TestDestroyWithDeferredQuery(t *testing.T) {
	f := newFixture(t, query.WithMaxOutstanding(1))
	h := f.newHeap(20, 20)
	a := f.alloc(h, 5, 5, 1)
	b := f.alloc(h, 5, 5, 2)
	h.NotifyUsedOnGPU(f.acc, a)
	h.NotifyUsedOnGPU(f.acc, b)
	f.flush()

	h.Destroy()
	f.flush()
	f.gpuFrame()
	f.gpuFrame()
	if got := f.dev.Stats().Buffers; got != 0 {
		t.Errorf("Buffers = %d after Destroy, want 0", got)
	}
}

func TestAllocAfterDestroyPanics(t *testing.T) {
	f := newFixture(t)
	h := f.newHeap(10, 10)
	data := f.meshData(h, 1, 1, 1)
	h.Destroy()
	f.flush()

	defer func() {
		if recover() == nil {
			t.Error("Alloc on destroyed heap did not panic")
		}
	}()
	_, _ = h.Alloc(data, TriangleList)
}

func TestAllocConcurrentWithDestroy(t *testing.T) {
	f := newFixture(t)
	h := f.newHeap(64, 64)
	data := f.meshData(h, 1, 1, 1)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Alloc panics once the heap is destroyed.
			defer func() { _ = recover() }()
			for range 50 {
				if _, err := h.Alloc(data, TriangleList); err != nil {
					t.Errorf("Alloc: %v", err)
					return
				}
			}
		}()
	}
	h.Destroy()
	wg.Wait()
	f.flush()

	if n := h.NumMeshes(); n != 0 {
		t.Errorf("NumMeshes = %d after Destroy, want 0", n)
	}
	if got := f.dev.Stats().Buffers; got != 0 {
		t.Errorf("Buffers = %d after Destroy, want 0", got)
	}
}
