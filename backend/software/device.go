package software

import (
	"fmt"
	"sync"

	"github.com/gogpu/ggcore/backend"
	"github.com/gogpu/ggcore/hwbuffer"
	"github.com/gogpu/ggcore/internal/logging"
)

// init registers the software backend on package import.
func init() {
	backend.Register(backend.BackendSoftware, func() backend.Device {
		return New()
	})
}

// Option configures a Device.
type Option func(*Device)

// WithAutoComplete makes queries complete as soon as they are issued.
func WithAutoComplete(enabled bool) Option {
	return func(d *Device) {
		d.autoComplete = enabled
	}
}

// WithOcclusionSamples sets the sample count every occlusion query reports.
func WithOcclusionSamples(n uint32) Option {
	return func(d *Device) {
		d.samples = n
	}
}

// Stats contains device counters.
type Stats struct {
	Buffers        int
	BufferBytes    uint64
	PendingQueries int
}

// String returns a human-readable string of device stats.
func (s Stats) String() string {
	return fmt.Sprintf("SoftwareDevice[%d buffers, %d bytes, %d pending queries]",
		s.Buffers, s.BufferBytes, s.PendingQueries)
}

// Device is the in-memory render device.
//
// Device is safe for concurrent use.
type Device struct {
	mu           sync.Mutex
	initialized  bool
	closed       bool
	autoComplete bool
	samples      uint32

	buffers []*hwbuffer.MemoryBuffer
	pending []*softQuery
}

// New creates a software device. Call Init before use.
func New(opts ...Option) *Device {
	d := &Device{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the backend identifier.
func (d *Device) Name() string { return backend.BackendSoftware }

// Init initializes the device.
func (d *Device) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return backend.ErrDeviceClosed
	}
	d.initialized = true
	logging.Logger().Debug("software: device initialized", "autoComplete", d.autoComplete)
	return nil
}

// Close destroys every buffer still alive.
func (d *Device) Close() {
	d.mu.Lock()
	buffers := d.buffers
	d.buffers = nil
	d.pending = nil
	d.closed = true
	d.initialized = false
	d.mu.Unlock()

	for _, b := range buffers {
		b.Destroy()
	}
}

// SetOcclusionSamples changes the sample count reported by occlusion
// queries ended from now on.
func (d *Device) SetOcclusionSamples(n uint32) {
	d.mu.Lock()
	d.samples = n
	d.mu.Unlock()
}

// Complete marks every issued query as finished by the GPU.
func (d *Device) Complete() {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()

	for _, q := range pending {
		q.complete()
	}
}

// Stats returns current device counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	var s Stats
	for _, b := range d.buffers {
		if b.IsDestroyed() {
			continue
		}
		s.Buffers++
		s.BufferBytes += b.Size()
	}
	s.PendingQueries = len(d.pending)
	return s
}

func (d *Device) checkUsable() error {
	if d.closed {
		return backend.ErrDeviceClosed
	}
	if !d.initialized {
		return backend.ErrNotInitialized
	}
	return nil
}
