package hwbuffer

import (
	"fmt"
)

// ViewDesc selects a range of elements of a GpuBufferCore.
type ViewDesc struct {
	FirstElement uint32
	NumElements  uint32
	Writable     bool
}

// BufferView is a shared window onto a range of a GpuBufferCore.
type BufferView struct {
	desc   ViewDesc
	owner  *GpuBufferCore
	offset uint64
	length uint64
}

// Desc returns the view descriptor.
func (v *BufferView) Desc() ViewDesc { return v.desc }

// Offset returns the first byte of the view in the buffer.
func (v *BufferView) Offset() uint64 { return v.offset }

// Length returns the view size in bytes.
func (v *BufferView) Length() uint64 { return v.length }

// Read copies the viewed bytes into dst, which must hold Length bytes.
func (v *BufferView) Read(dst []byte) error {
	if uint64(len(dst)) < v.length {
		return fmt.Errorf("%w: destination holds %d bytes, view has %d", ErrInvalidParameters, len(dst), v.length)
	}
	return v.owner.buffer.ReadData(v.offset, dst[:v.length])
}

// Write copies src into the view. The view must be writable.
func (v *BufferView) Write(offset uint64, src []byte) error {
	if !v.desc.Writable {
		return fmt.Errorf("%w: view is read-only", ErrInvalidState)
	}
	if err := CheckRange(v.length, offset, uint64(len(src))); err != nil {
		return err
	}
	return v.owner.buffer.WriteData(v.offset+offset, src, WriteNoOverwrite)
}

// GpuBufferCore owns a structured device buffer and the views created on
// it. Core-thread only.
type GpuBufferCore struct {
	desc   GpuBufferDesc
	buffer HardwareBuffer
	views  *ViewCache[ViewDesc, *BufferView]
}

// NewGpuBufferCore creates the device buffer through factory.
func NewGpuBufferCore(factory Factory, desc GpuBufferDesc) (*GpuBufferCore, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	buf, err := factory.CreateGpuBuffer(desc)
	if err != nil {
		return nil, fmt.Errorf("hwbuffer: create gpu buffer %q: %w", desc.Label, err)
	}
	return &GpuBufferCore{
		desc:   desc,
		buffer: buf,
		views:  NewViewCache[ViewDesc, *BufferView](nil),
	}, nil
}

// Desc returns the buffer descriptor.
func (b *GpuBufferCore) Desc() GpuBufferDesc { return b.desc }

// Buffer returns the device buffer.
func (b *GpuBufferCore) Buffer() HardwareBuffer { return b.buffer }

// View returns the shared view for desc, taking a reference. Release it
// with ReleaseView.
func (b *GpuBufferCore) View(desc ViewDesc) (*BufferView, error) {
	if desc.NumElements == 0 ||
		uint64(desc.FirstElement)+uint64(desc.NumElements) > uint64(b.desc.ElementCount) {
		return nil, fmt.Errorf("%w: view [%d, +%d) of %d elements",
			ErrInvalidParameters, desc.FirstElement, desc.NumElements, b.desc.ElementCount)
	}
	return b.views.Acquire(desc, func() (*BufferView, error) {
		size := uint64(b.desc.ElementSize)
		return &BufferView{
			desc:   desc,
			owner:  b,
			offset: uint64(desc.FirstElement) * size,
			length: uint64(desc.NumElements) * size,
		}, nil
	})
}

// ReleaseView drops a reference taken by View.
func (b *GpuBufferCore) ReleaseView(v *BufferView) {
	b.views.Release(v.desc)
}

// NumViews returns the number of distinct live views.
func (b *GpuBufferCore) NumViews() int { return b.views.Len() }

// Destroy drops every view and releases the device buffer.
func (b *GpuBufferCore) Destroy() {
	b.views.Clear()
	b.buffer.Destroy()
}
