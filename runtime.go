package ggcore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ggcore/backend"
	"github.com/gogpu/ggcore/config"
	"github.com/gogpu/ggcore/coreobject"
	"github.com/gogpu/ggcore/corethread"
	"github.com/gogpu/ggcore/hwbuffer"
	"github.com/gogpu/ggcore/mesh"
	"github.com/gogpu/ggcore/query"

	// Register the built-in backends.
	_ "github.com/gogpu/ggcore/backend/software"
	_ "github.com/gogpu/ggcore/backend/wgpu"
)

// ErrClosed is returned by Runtime methods called after Close.
var ErrClosed = errors.New("ggcore: runtime closed")

// Runtime ties a render device to a core thread, an object manager and a
// query manager. Its methods are called from the simulation thread.
type Runtime struct {
	cfg     config.Config
	device  backend.Device
	thread  *corethread.Thread
	objects *coreobject.Manager
	queries *query.Manager
	acc     *corethread.Accessor

	mu     sync.Mutex
	frame  uint64
	closed bool
}

// New validates cfg, opens the render device and starts the core thread.
func New(cfg config.Config, opts ...Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := runtimeOptions{backend: cfg.Backend, logOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}
	configureLogging(cfg.Log, o)

	dev := o.device
	if dev != nil {
		if err := dev.Init(); err != nil {
			dev.Close()
			return nil, fmt.Errorf("ggcore: init device %q: %w", dev.Name(), err)
		}
	} else {
		var err error
		dev, err = backend.Open(o.backend)
		if err != nil {
			return nil, fmt.Errorf("ggcore: open backend %q: %w", o.backend, err)
		}
	}

	thread := corethread.NewThread(corethread.WithQueueDepth(cfg.CoreThread.QueueDepth))
	thread.Start()

	objects := coreobject.NewManager(thread)
	rt := &Runtime{
		cfg:     cfg,
		device:  dev,
		thread:  thread,
		objects: objects,
		queries: query.NewManager(dev, query.WithMaxOutstanding(cfg.Queries.MaxOutstanding)),
		acc:     objects.Accessor(),
	}
	Logger().Info("ggcore: runtime started", "backend", dev.Name(), "queueDepth", cfg.CoreThread.QueueDepth)
	return rt, nil
}

func configureLogging(cfg config.LogConfig, o runtimeOptions) {
	if o.logger != nil {
		SetLogger(o.logger)
		return
	}
	// Validate has already checked the level.
	level, enabled, _ := cfg.SlogLevel()
	if !enabled {
		return
	}
	SetLogger(slog.New(slog.NewTextHandler(o.logOutput, &slog.HandlerOptions{Level: level})))
}

// Config returns the settings the runtime was created with.
func (r *Runtime) Config() config.Config { return r.cfg }

// Device returns the render device.
func (r *Runtime) Device() backend.Device { return r.device }

// Thread returns the core thread.
func (r *Runtime) Thread() *corethread.Thread { return r.thread }

// Objects returns the core object manager.
func (r *Runtime) Objects() *coreobject.Manager { return r.objects }

// Queries returns the query manager. Its methods run on the core thread.
func (r *Runtime) Queries() *query.Manager { return r.queries }

// Accessor returns the simulation thread's accessor. EndFrame submits it.
func (r *Runtime) Accessor() *corethread.Accessor { return r.acc }

// Frame returns the number of completed frames.
func (r *Runtime) Frame() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

// NewMeshHeap creates a mesh heap sized and configured from the
// mesh_heap config section. opts are applied after the config values.
func (r *Runtime) NewMeshHeap(vertexDesc *hwbuffer.VertexDataDesc, indexFormat gputypes.IndexFormat, opts ...mesh.Option) (*mesh.Heap, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	hc := r.cfg.MeshHeap
	all := append([]mesh.Option{
		mesh.WithGrowPercent(hc.GrowPercent),
		mesh.WithMaxEventQueries(hc.MaxEventQueries),
	}, opts...)
	return mesh.NewHeap(r.deps(), hc.InitialVertices, hc.InitialIndices, vertexDesc, indexFormat, all...)
}

// NewParamBlock creates a parameter block of size bytes.
func (r *Runtime) NewParamBlock(label string, size uint32) (*hwbuffer.ParamBlock, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	return hwbuffer.NewParamBlock(r.objects, r.device, hwbuffer.ParamBlockDesc{
		Label: label,
		Size:  size,
		Usage: hwbuffer.UsageDynamic,
	})
}

// NewProfiler creates a GPU profiler on the runtime's query manager. Its
// methods must run on the core thread. Sample counting is off on devices
// without occlusion queries unless opts turn it back on.
func (r *Runtime) NewProfiler(opts ...query.ProfilerOption) *query.GPUProfiler {
	all := append([]query.ProfilerOption{
		query.WithSampleCounting(backend.SupportsOcclusion(r.device)),
	}, opts...)
	return query.NewGPUProfiler(r.queries, all...)
}

func (r *Runtime) deps() mesh.Deps {
	return mesh.Deps{Objects: r.objects, Buffers: r.device, Queries: r.queries}
}

// EndFrame syncs dirty objects to the core thread, polls outstanding
// queries there and submits everything queued on the accessor this frame.
// It does not wait for the core thread.
func (r *Runtime) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	synced := r.objects.SyncToCore(r.acc)
	r.acc.Queue("query-update", r.queries.Update)
	if err := r.acc.Submit(); err != nil {
		return fmt.Errorf("ggcore: submit frame %d: %w", r.frame, err)
	}
	r.frame++
	Logger().Debug("ggcore: frame submitted", "frame", r.frame, "synced", synced)
	return nil
}

// Flush submits pending commands and waits for the core thread to run
// them.
func (r *Runtime) Flush() error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	return r.acc.SubmitAndWait()
}

// Close drains pending commands, stops the core thread and closes the
// device. Calling Close twice is a no-op.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	err := r.acc.SubmitAndWait()
	r.thread.Stop()
	r.device.Close()
	Logger().Info("ggcore: runtime closed", "frames", r.Frame())
	if err != nil {
		return fmt.Errorf("ggcore: drain on close: %w", err)
	}
	return nil
}

func (r *Runtime) checkOpen() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return nil
}
