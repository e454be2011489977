package software

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/ggcore/hwbuffer"
)

// CreateVertexBuffer creates an in-memory vertex buffer.
func (d *Device) CreateVertexBuffer(desc hwbuffer.VertexBufferDesc) (hwbuffer.HardwareBuffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return d.newBuffer(desc.Label, desc.Size(), desc.GPUUsage())
}

// CreateIndexBuffer creates an in-memory index buffer.
func (d *Device) CreateIndexBuffer(desc hwbuffer.IndexBufferDesc) (hwbuffer.HardwareBuffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return d.newBuffer(desc.Label, desc.Size(), desc.GPUUsage())
}

// CreateGpuBuffer creates an in-memory structured buffer.
func (d *Device) CreateGpuBuffer(desc hwbuffer.GpuBufferDesc) (hwbuffer.HardwareBuffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return d.newBuffer(desc.Label, desc.Size(), desc.GPUUsage())
}

// CreateParamBlockBuffer creates an in-memory uniform buffer.
func (d *Device) CreateParamBlockBuffer(desc hwbuffer.ParamBlockDesc) (hwbuffer.HardwareBuffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return d.newBuffer(desc.Label, uint64(desc.Size), desc.GPUUsage())
}

func (d *Device) newBuffer(label string, size uint64, usage gputypes.BufferUsage) (hwbuffer.HardwareBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkUsable(); err != nil {
		return nil, err
	}
	b, err := hwbuffer.NewMemoryBuffer(label, size, usage)
	if err != nil {
		return nil, err
	}

	// Drop destroyed buffers so long runs do not accumulate them.
	live := d.buffers[:0]
	for _, old := range d.buffers {
		if !old.IsDestroyed() {
			live = append(live, old)
		}
	}
	clear(d.buffers[len(live):])
	d.buffers = append(live, b)
	return b, nil
}
