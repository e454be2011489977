// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ggcore/backend"
	"github.com/gogpu/ggcore/internal/logging"
)

// defaultProvider is used by devices created through the backend registry.
var defaultProvider atomic.Pointer[providerRef]

type providerRef struct {
	p gpucontext.DeviceProvider
}

// init registers the wgpu backend on package import.
func init() {
	backend.Register(backend.BackendWGPU, func() backend.Device {
		var p gpucontext.DeviceProvider
		if ref := defaultProvider.Load(); ref != nil {
			p = ref.p
		}
		return New(p)
	})
}

// SetProvider sets the provider used by devices opened through the backend
// registry. Passing nil clears it.
func SetProvider(p gpucontext.DeviceProvider) {
	if p == nil {
		defaultProvider.Store(nil)
		return
	}
	defaultProvider.Store(&providerRef{p: p})
}

// halProvider is implemented by providers that expose their HAL objects.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// Device is the GPU render device.
//
// Buffer and query methods are called on the core thread; Init, Close and
// Stats may be called from any goroutine.
type Device struct {
	provider gpucontext.DeviceProvider

	mu          sync.Mutex
	device      hal.Device
	queue       hal.Queue
	initialized bool
	closed      bool
	buffers     []*buffer
	queries     []*gpuQuery

	// inflight holds submitted command buffers until the queue reports
	// their submission index completed.
	submitMu sync.Mutex
	inflight []submission
}

// submission is a command buffer owned by the device until the GPU is
// done with it.
type submission struct {
	encoder hal.CommandEncoder
	cmdBuf  hal.CommandBuffer
	index   uint64
}

// New creates a device sharing the GPU of provider. Call Init before use.
func New(provider gpucontext.DeviceProvider) *Device {
	return &Device{provider: provider}
}

// Name returns the backend identifier.
func (d *Device) Name() string { return backend.BackendWGPU }

// Init resolves the provider's HAL device and queue.
func (d *Device) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return backend.ErrDeviceClosed
	}
	if d.initialized {
		return nil
	}
	if d.provider == nil {
		return fmt.Errorf("%w: wgpu: no device provider", backend.ErrBackendNotAvailable)
	}
	hp, ok := d.provider.(halProvider)
	if !ok {
		return fmt.Errorf("%w: wgpu: provider does not expose HAL types", backend.ErrBackendNotAvailable)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("%w: wgpu: provider HalDevice is not hal.Device", backend.ErrBackendNotAvailable)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("%w: wgpu: provider HalQueue is not hal.Queue", backend.ErrBackendNotAvailable)
	}

	d.device = device
	d.queue = queue
	d.initialized = true
	logging.Logger().Info("wgpu: device initialized",
		"adapter", d.provider.AdapterInfo().Name,
		"surfaceFormat", d.provider.SurfaceFormat())
	return nil
}

// Close waits for the GPU to go idle, then destroys every buffer and query
// still alive. The shared HAL device belongs to the provider and is left
// open.
func (d *Device) Close() {
	d.mu.Lock()
	device, queue := d.device, d.queue
	buffers := d.buffers
	queries := d.queries
	d.buffers = nil
	d.queries = nil
	d.closed = true
	d.mu.Unlock()

	if device != nil {
		if err := device.WaitIdle(); err != nil {
			logging.Logger().Warn("wgpu: wait idle on close failed", "err", err)
		}
		d.retire(device, queue, true)
	}
	for _, q := range queries {
		q.Destroy()
	}
	for _, b := range buffers {
		b.Destroy()
	}

	d.mu.Lock()
	d.initialized = false
	d.device = nil
	d.queue = nil
	d.mu.Unlock()
}

// Stats contains device counters.
type Stats struct {
	Buffers     int
	BufferBytes uint64
	Queries     int
	InFlight    int
}

// String returns a human-readable string of device stats.
func (s Stats) String() string {
	return fmt.Sprintf("WGPUDevice[%d buffers, %d bytes, %d queries, %d in flight]",
		s.Buffers, s.BufferBytes, s.Queries, s.InFlight)
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
	for _, q := range d.queries {
		if !q.isDestroyed() {
			s.Queries++
		}
	}
	d.submitMu.Lock()
	s.InFlight = len(d.inflight)
	d.submitMu.Unlock()
	return s
}

// halObjects returns the HAL objects, or an error if the device is unusable.
func (d *Device) halObjects() (hal.Device, hal.Queue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, nil, backend.ErrDeviceClosed
	}
	if !d.initialized {
		return nil, nil, backend.ErrNotInitialized
	}
	return d.device, d.queue, nil
}

// submit ends encoder, submits its command buffer and returns the
// submission index. The command buffer is kept until the queue reports the
// index completed.
func (d *Device) submit(device hal.Device, queue hal.Queue, encoder hal.CommandEncoder) (uint64, error) {
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		encoder.Destroy()
		return 0, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	index, err := queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		device.FreeCommandBuffer(cmdBuf)
		encoder.Destroy()
		return 0, fmt.Errorf("wgpu: submit: %w", err)
	}

	d.submitMu.Lock()
	d.inflight = append(d.inflight, submission{encoder: encoder, cmdBuf: cmdBuf, index: index})
	d.submitMu.Unlock()
	return index, nil
}

// submitEmpty submits an empty command buffer. Its index completes once
// the GPU has finished everything submitted before it.
func (d *Device) submitEmpty(device hal.Device, queue hal.Queue, label string) (uint64, error) {
	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return 0, fmt.Errorf("wgpu: create encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		encoder.Destroy()
		return 0, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	return d.submit(device, queue, encoder)
}

// retire polls the queue, frees the command buffers of completed
// submissions and returns the highest completed index. With all set every
// submission is freed; the caller must have waited for the GPU to go idle.
func (d *Device) retire(device hal.Device, queue hal.Queue, all bool) uint64 {
	completed := queue.PollCompleted()

	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	keep := d.inflight[:0]
	for _, s := range d.inflight {
		if !all && s.index > completed {
			keep = append(keep, s)
			continue
		}
		device.FreeCommandBuffer(s.cmdBuf)
		s.encoder.Destroy()
	}
	clear(d.inflight[len(keep):])
	d.inflight = keep
	return completed
}
