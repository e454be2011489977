package software

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ggcore/backend"
	"github.com/gogpu/ggcore/hwbuffer"
	"github.com/gogpu/ggcore/query"
)

func newDevice(t *testing.T, opts ...Option) *Device {
	t.Helper()
	d := New(opts...)
	if err := d.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestDeviceName(t *testing.T) {
	if got := New().Name(); got != "software" {
		t.Errorf("Name() = %q, want %q", got, "software")
	}
}

func TestDeviceRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.BackendSoftware) {
		t.Fatal("software backend not registered")
	}
	d, err := backend.Open(backend.BackendSoftware)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()
	if d.Name() != backend.BackendSoftware {
		t.Errorf("Name() = %q", d.Name())
	}
}

func TestDeviceLifecycle(t *testing.T) {
	d := New()
	desc := hwbuffer.VertexBufferDesc{VertexSize: 12, NumVerts: 4}
	if _, err := d.CreateVertexBuffer(desc); !errors.Is(err, backend.ErrNotInitialized) {
		t.Errorf("before Init err = %v, want ErrNotInitialized", err)
	}
	_ = d.Init()
	b, err := d.CreateVertexBuffer(desc)
	if err != nil {
		t.Fatalf("CreateVertexBuffer: %v", err)
	}
	d.Close()
	if _, err := d.CreateVertexBuffer(desc); !errors.Is(err, backend.ErrDeviceClosed) {
		t.Errorf("after Close err = %v, want ErrDeviceClosed", err)
	}
	if err := b.WriteData(0, []byte{1}, hwbuffer.WriteNormal); !errors.Is(err, hwbuffer.ErrDestroyed) {
		t.Errorf("buffer after Close err = %v, want ErrDestroyed", err)
	}
	if err := d.Init(); !errors.Is(err, backend.ErrDeviceClosed) {
		t.Errorf("Init after Close err = %v, want ErrDeviceClosed", err)
	}
}

func TestDeviceBuffers(t *testing.T) {
	d := newDevice(t)

	vb, err := d.CreateVertexBuffer(hwbuffer.VertexBufferDesc{Label: "vb", VertexSize: 12, NumVerts: 10})
	if err != nil {
		t.Fatalf("CreateVertexBuffer: %v", err)
	}
	if vb.Size() != 120 {
		t.Errorf("vertex buffer Size() = %d, want 120", vb.Size())
	}
	if vb.Usage()&gputypes.BufferUsageVertex == 0 {
		t.Error("vertex buffer lacks Vertex usage")
	}

	ib, err := d.CreateIndexBuffer(hwbuffer.IndexBufferDesc{Format: gputypes.IndexFormatUint32, NumIndices: 6})
	if err != nil {
		t.Fatalf("CreateIndexBuffer: %v", err)
	}
	if ib.Size() != 24 {
		t.Errorf("index buffer Size() = %d, want 24", ib.Size())
	}

	if _, err := d.CreateGpuBuffer(hwbuffer.GpuBufferDesc{ElementSize: 16, ElementCount: 2}); err != nil {
		t.Errorf("CreateGpuBuffer: %v", err)
	}
	if _, err := d.CreateParamBlockBuffer(hwbuffer.ParamBlockDesc{Size: 64}); err != nil {
		t.Errorf("CreateParamBlockBuffer: %v", err)
	}
	if _, err := d.CreateParamBlockBuffer(hwbuffer.ParamBlockDesc{}); !errors.Is(err, hwbuffer.ErrInvalidParameters) {
		t.Errorf("zero-size param block err = %v, want ErrInvalidParameters", err)
	}

	s := d.Stats()
	if s.Buffers != 4 || s.BufferBytes != 120+24+32+64 {
		t.Errorf("Stats() = %v", s)
	}

	vb.Destroy()
	if s := d.Stats(); s.Buffers != 3 {
		t.Errorf("Buffers after Destroy = %d, want 3", s.Buffers)
	}
}

func TestDeviceQueriesComplete(t *testing.T) {
	d := newDevice(t, WithOcclusionSamples(64))
	m := query.NewManager(d)

	ev, _ := m.NewEventQuery()
	tm, _ := m.NewTimerQuery()
	oc, _ := m.NewOcclusionQuery(false)
	bin, _ := m.NewOcclusionQuery(true)

	var evFired bool
	var samples, binSamples uint32
	ev.OnTriggered(func() { evFired = true })
	oc.OnComplete(func(n uint32) { samples = n })
	bin.OnComplete(func(n uint32) { binSamples = n })

	for _, step := range []func() error{ev.Begin, tm.Begin, tm.End, oc.Begin, oc.End, bin.Begin, bin.End} {
		if err := step(); err != nil {
			t.Fatalf("query step: %v", err)
		}
	}

	m.Update()
	if evFired || ev.IsReady() {
		t.Fatal("event ready before Complete")
	}
	if got := d.Stats().PendingQueries; got != 4 {
		t.Errorf("PendingQueries = %d, want 4", got)
	}

	d.Complete()
	m.Update()
	if !evFired {
		t.Error("event callback not fired after Complete")
	}
	if samples != 64 {
		t.Errorf("occlusion samples = %d, want 64", samples)
	}
	if binSamples != 1 {
		t.Errorf("binary occlusion samples = %d, want 1", binSamples)
	}
	if tm.TimeMs() < 0 {
		t.Errorf("TimeMs() = %v, want >= 0", tm.TimeMs())
	}
}

func TestDeviceAutoComplete(t *testing.T) {
	d := newDevice(t, WithAutoComplete(true))
	q, err := d.CreateEventQuery()
	if err != nil {
		t.Fatalf("CreateEventQuery: %v", err)
	}
	if err := q.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if !q.IsReady() {
		t.Error("auto-complete query not ready after Begin")
	}
	if d.Stats().PendingQueries != 0 {
		t.Error("auto-complete query left pending")
	}
}

func TestDestroyedQueryNeverReady(t *testing.T) {
	d := newDevice(t)
	q, _ := d.CreateEventQuery()
	_ = q.Begin()
	q.Destroy()
	d.Complete()
	if q.IsReady() {
		t.Error("destroyed query became ready")
	}
}
