package backend

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gogpu/ggcore/hwbuffer"
	"github.com/gogpu/ggcore/query"
)

// stubDevice is a Device whose Init result is configurable.
type stubDevice struct {
	name    string
	initErr error
	closed  bool
}

func (d *stubDevice) Name() string { return d.name }
func (d *stubDevice) Init() error  { return d.initErr }
func (d *stubDevice) Close()       { d.closed = true }

func (d *stubDevice) CreateVertexBuffer(hwbuffer.VertexBufferDesc) (hwbuffer.HardwareBuffer, error) {
	return nil, ErrUnsupported
}

func (d *stubDevice) CreateIndexBuffer(hwbuffer.IndexBufferDesc) (hwbuffer.HardwareBuffer, error) {
	return nil, ErrUnsupported
}

func (d *stubDevice) CreateGpuBuffer(hwbuffer.GpuBufferDesc) (hwbuffer.HardwareBuffer, error) {
	return nil, ErrUnsupported
}

func (d *stubDevice) CreateParamBlockBuffer(hwbuffer.ParamBlockDesc) (hwbuffer.HardwareBuffer, error) {
	return nil, ErrUnsupported
}

func (d *stubDevice) CreateEventQuery() (query.EventImpl, error) { return nil, ErrUnsupported }
func (d *stubDevice) CreateTimerQuery() (query.TimerImpl, error) { return nil, ErrUnsupported }

func (d *stubDevice) CreateOcclusionQuery(bool) (query.OcclusionImpl, error) {
	return nil, ErrUnsupported
}

// withRegistry swaps in an empty registry for the duration of the test.
func withRegistry(t *testing.T) {
	t.Helper()
	registryMu.Lock()
	saved := backends
	backends = make(map[string]DeviceFactory)
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		backends = saved
		registryMu.Unlock()
	})
}

func TestRegistry(t *testing.T) {
	withRegistry(t)

	if Default() != nil {
		t.Error("Default() with empty registry should be nil")
	}
	if Get(BackendSoftware) != nil {
		t.Error("Get() of unregistered backend should be nil")
	}

	Register(BackendSoftware, func() Device { return &stubDevice{name: BackendSoftware} })
	Register("custom", func() Device { return &stubDevice{name: "custom"} })

	if got, want := Available(), []string{"custom", BackendSoftware}; !reflect.DeepEqual(got, want) {
		t.Errorf("Available() = %v, want %v", got, want)
	}
	if !IsRegistered("custom") {
		t.Error("IsRegistered(custom) = false")
	}
	if d := Default(); d == nil || d.Name() != BackendSoftware {
		t.Errorf("Default() = %v, want software", d)
	}

	Register(BackendWGPU, func() Device { return &stubDevice{name: BackendWGPU} })
	if d := Default(); d.Name() != BackendWGPU {
		t.Errorf("Default() = %q, want wgpu", d.Name())
	}

	Unregister(BackendWGPU)
	if IsRegistered(BackendWGPU) {
		t.Error("IsRegistered(wgpu) after Unregister")
	}
}

func TestOpenFallsBack(t *testing.T) {
	withRegistry(t)

	noGPU := errors.New("no adapter")
	gpu := &stubDevice{name: BackendWGPU, initErr: noGPU}
	Register(BackendWGPU, func() Device { return gpu })
	Register(BackendSoftware, func() Device { return &stubDevice{name: BackendSoftware} })

	d, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if d.Name() != BackendSoftware {
		t.Errorf("Open(\"\") = %q, want software", d.Name())
	}
	if !gpu.closed {
		t.Error("failed device was not closed")
	}

	if _, err := Open(BackendWGPU); !errors.Is(err, noGPU) {
		t.Errorf("Open(wgpu) err = %v, want %v", err, noGPU)
	}
	if _, err := Open("missing"); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open(missing) err = %v, want ErrBackendNotAvailable", err)
	}
}

func TestOpenEmptyRegistry(t *testing.T) {
	withRegistry(t)
	if _, err := Open(""); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("err = %v, want ErrBackendNotAvailable", err)
	}
}

func TestMustDefaultPanics(t *testing.T) {
	withRegistry(t)
	defer func() {
		if recover() == nil {
			t.Error("MustDefault() did not panic")
		}
	}()
	MustDefault()
}
