// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ggcore/hwbuffer"
)

const (
	// copyAlignment is the offset and size alignment of queue writes and
	// buffer-to-buffer copies.
	copyAlignment = 4

	// uniformAlignment is the size alignment of uniform buffers.
	uniformAlignment = 16
)

func alignUp(n, a uint64) uint64 { return (n + a - 1) &^ (a - 1) }

// CreateVertexBuffer creates a GPU vertex buffer.
func (d *Device) CreateVertexBuffer(desc hwbuffer.VertexBufferDesc) (hwbuffer.HardwareBuffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return d.newBuffer(desc.Label, desc.Size(), desc.GPUUsage(), copyAlignment)
}

// CreateIndexBuffer creates a GPU index buffer.
func (d *Device) CreateIndexBuffer(desc hwbuffer.IndexBufferDesc) (hwbuffer.HardwareBuffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return d.newBuffer(desc.Label, desc.Size(), desc.GPUUsage(), copyAlignment)
}

// CreateGpuBuffer creates a GPU storage buffer.
func (d *Device) CreateGpuBuffer(desc hwbuffer.GpuBufferDesc) (hwbuffer.HardwareBuffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return d.newBuffer(desc.Label, desc.Size(), desc.GPUUsage(), copyAlignment)
}

// CreateParamBlockBuffer creates a GPU uniform buffer.
func (d *Device) CreateParamBlockBuffer(desc hwbuffer.ParamBlockDesc) (hwbuffer.HardwareBuffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return d.newBuffer(desc.Label, uint64(desc.Size), desc.GPUUsage(), uniformAlignment)
}

func (d *Device) newBuffer(label string, size uint64, usage gputypes.BufferUsage, align uint64) (hwbuffer.HardwareBuffer, error) {
	device, queue, err := d.halObjects()
	if err != nil {
		return nil, err
	}

	allocSize := alignUp(size, align)
	shadow, err := hwbuffer.NewMemoryBuffer(label, allocSize, usage)
	if err != nil {
		return nil, err
	}
	gpu, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  allocSize,
		Usage: usage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		shadow.Destroy()
		return nil, fmt.Errorf("wgpu: create buffer %q: %w", label, err)
	}

	b := &buffer{
		owner:  d,
		label:  label,
		size:   size,
		usage:  usage,
		device: device,
		queue:  queue,
		gpu:    gpu,
		shadow: shadow,
	}

	d.mu.Lock()
	live := d.buffers[:0]
	for _, old := range d.buffers {
		if !old.IsDestroyed() {
			live = append(live, old)
		}
	}
	clear(d.buffers[len(live):])
	d.buffers = append(live, b)
	d.mu.Unlock()
	return b, nil
}

// buffer is a GPU buffer with a CPU shadow copy. The shadow is allocated
// at the aligned size so every upload can be widened to whole words.
type buffer struct {
	owner  *Device
	label  string
	size   uint64
	usage  gputypes.BufferUsage
	device hal.Device
	queue  hal.Queue
	gpu    hal.Buffer
	shadow *hwbuffer.MemoryBuffer

	mu        sync.Mutex
	lockOff   uint64
	lockLen   uint64
	lockOpts  hwbuffer.LockOptions
	destroyed bool
}

func (b *buffer) Size() uint64 { return b.size }

func (b *buffer) Usage() gputypes.BufferUsage { return b.usage }

func (b *buffer) IsDestroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

func (b *buffer) Lock(offset, length uint64, opts hwbuffer.LockOptions) ([]byte, error) {
	if err := hwbuffer.CheckRange(b.size, offset, length); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	data, err := b.shadow.Lock(offset, length, opts)
	if err != nil {
		return nil, err
	}
	b.lockOff, b.lockLen, b.lockOpts = offset, length, opts
	return data, nil
}

// Unlock uploads the locked range unless it was locked read-only. A
// discarding lock uploads the whole buffer.
func (b *buffer) Unlock() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.shadow.Unlock(); err != nil {
		return err
	}
	switch b.lockOpts {
	case hwbuffer.LockReadOnly:
		return nil
	case hwbuffer.LockWriteDiscard:
		return b.uploadLocked(0, b.size)
	default:
		return b.uploadLocked(b.lockOff, b.lockLen)
	}
}

func (b *buffer) ReadData(offset uint64, dst []byte) error {
	if err := hwbuffer.CheckRange(b.size, offset, uint64(len(dst))); err != nil {
		return err
	}
	return b.shadow.ReadData(offset, dst)
}

func (b *buffer) WriteData(offset uint64, src []byte, flags hwbuffer.WriteFlags) error {
	if err := hwbuffer.CheckRange(b.size, offset, uint64(len(src))); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.shadow.WriteData(offset, src, flags); err != nil {
		return err
	}
	if flags == hwbuffer.WriteDiscard {
		return b.uploadLocked(0, b.size)
	}
	return b.uploadLocked(offset, uint64(len(src)))
}

// CopyData copies length bytes from src. Word-aligned copies between
// buffers of this device run on the GPU; anything else goes through the
// shadows.
func (b *buffer) CopyData(src hwbuffer.HardwareBuffer, srcOffset, dstOffset, length uint64) error {
	if err := hwbuffer.CheckRange(src.Size(), srcOffset, length); err != nil {
		return err
	}
	if err := hwbuffer.CheckRange(b.size, dstOffset, length); err != nil {
		return err
	}
	if length == 0 {
		return nil
	}

	sb, ok := src.(*buffer)
	aligned := (srcOffset|dstOffset|length)%copyAlignment == 0
	if !ok || sb == b || !aligned || sb.device != b.device {
		tmp := make([]byte, length)
		if err := src.ReadData(srcOffset, tmp); err != nil {
			return err
		}
		return b.WriteData(dstOffset, tmp, hwbuffer.WriteNormal)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return hwbuffer.ErrDestroyed
	}
	if err := b.gpuCopy(sb, srcOffset, dstOffset, length); err != nil {
		return err
	}
	return b.shadow.CopyData(sb.shadow, srcOffset, dstOffset, length)
}

// gpuCopy records and submits a buffer-to-buffer copy, then waits for the
// GPU so later queue writes to either range cannot race it.
func (b *buffer) gpuCopy(src *buffer, srcOffset, dstOffset, length uint64) error {
	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "buffer_copy"})
	if err != nil {
		return fmt.Errorf("wgpu: create encoder: %w", err)
	}
	if err := encoder.BeginEncoding("buffer_copy"); err != nil {
		encoder.Destroy()
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(src.gpu, b.gpu, []hal.BufferCopy{{
		SrcOffset: srcOffset,
		DstOffset: dstOffset,
		Size:      length,
	}})
	if _, err := b.owner.submit(b.device, b.queue, encoder); err != nil {
		return fmt.Errorf("wgpu: submit copy: %w", err)
	}
	if err := b.device.WaitIdle(); err != nil {
		return fmt.Errorf("wgpu: wait for copy: %w", err)
	}
	b.owner.retire(b.device, b.queue, false)
	return nil
}

// uploadLocked writes a shadow range to the GPU, widened to whole words.
func (b *buffer) uploadLocked(offset, length uint64) error {
	if b.destroyed {
		return hwbuffer.ErrDestroyed
	}
	if length == 0 {
		return nil
	}
	start := offset &^ (copyAlignment - 1)
	end := alignUp(offset+length, copyAlignment)
	data := make([]byte, end-start)
	if err := b.shadow.ReadData(start, data); err != nil {
		return err
	}
	if err := b.queue.WriteBuffer(b.gpu, start, data); err != nil {
		return fmt.Errorf("wgpu: write buffer %q: %w", b.label, err)
	}
	return nil
}

func (b *buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.device.DestroyBuffer(b.gpu)
	b.shadow.Destroy()
}
