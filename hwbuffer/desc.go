package hwbuffer

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Usage describes how often buffer contents change.
type Usage int

const (
	// UsageStatic buffers are written once, or rarely.
	UsageStatic Usage = iota
	// UsageDynamic buffers are rewritten frequently.
	UsageDynamic
)

// String returns the string representation of Usage.
func (u Usage) String() string {
	switch u {
	case UsageStatic:
		return "Static"
	case UsageDynamic:
		return "Dynamic"
	default:
		return fmt.Sprintf("Unknown(%d)", int(u))
	}
}

// Every buffer can be the source and destination of copies so it can be
// grown and read back.
const copyUsage = gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst

// VertexBufferDesc describes a vertex buffer.
type VertexBufferDesc struct {
	Label      string
	VertexSize uint32
	NumVerts   uint32
	Usage      Usage
}

// Size returns the buffer size in bytes.
func (d VertexBufferDesc) Size() uint64 { return uint64(d.VertexSize) * uint64(d.NumVerts) }

// GPUUsage returns the device usage flags.
func (d VertexBufferDesc) GPUUsage() gputypes.BufferUsage {
	return gputypes.BufferUsageVertex | copyUsage
}

// Validate checks the descriptor.
func (d VertexBufferDesc) Validate() error {
	if d.VertexSize == 0 || d.NumVerts == 0 {
		return fmt.Errorf("%w: vertex buffer %q: vertex size %d, count %d",
			ErrInvalidParameters, d.Label, d.VertexSize, d.NumVerts)
	}
	return nil
}

// IndexBufferDesc describes an index buffer.
type IndexBufferDesc struct {
	Label      string
	Format     gputypes.IndexFormat
	NumIndices uint32
	Usage      Usage
}

// Size returns the buffer size in bytes.
func (d IndexBufferDesc) Size() uint64 { return uint64(IndexSize(d.Format)) * uint64(d.NumIndices) }

// GPUUsage returns the device usage flags.
func (d IndexBufferDesc) GPUUsage() gputypes.BufferUsage {
	return gputypes.BufferUsageIndex | copyUsage
}

// Validate checks the descriptor.
func (d IndexBufferDesc) Validate() error {
	if IndexSize(d.Format) == 0 {
		return fmt.Errorf("%w: index buffer %q: unsupported index format %v",
			ErrInvalidParameters, d.Label, d.Format)
	}
	if d.NumIndices == 0 {
		return fmt.Errorf("%w: index buffer %q has no indices", ErrInvalidParameters, d.Label)
	}
	return nil
}

// GpuBufferDesc describes a generic structured buffer read by shaders.
type GpuBufferDesc struct {
	Label        string
	ElementSize  uint32
	ElementCount uint32
	Usage        Usage
}

// Size returns the buffer size in bytes.
func (d GpuBufferDesc) Size() uint64 { return uint64(d.ElementSize) * uint64(d.ElementCount) }

// GPUUsage returns the device usage flags.
func (d GpuBufferDesc) GPUUsage() gputypes.BufferUsage {
	return gputypes.BufferUsageStorage | copyUsage
}

// Validate checks the descriptor.
func (d GpuBufferDesc) Validate() error {
	if d.ElementSize == 0 || d.ElementCount == 0 {
		return fmt.Errorf("%w: gpu buffer %q: element size %d, count %d",
			ErrInvalidParameters, d.Label, d.ElementSize, d.ElementCount)
	}
	return nil
}

// ParamBlockDesc describes a uniform parameter block buffer.
type ParamBlockDesc struct {
	Label string
	Size  uint32
	Usage Usage
}

// GPUUsage returns the device usage flags.
func (d ParamBlockDesc) GPUUsage() gputypes.BufferUsage {
	return gputypes.BufferUsageUniform | copyUsage
}

// Validate checks the descriptor.
func (d ParamBlockDesc) Validate() error {
	if d.Size == 0 {
		return fmt.Errorf("%w: param block %q has zero size", ErrInvalidParameters, d.Label)
	}
	return nil
}

// Factory creates hardware buffers. Implemented by every render backend;
// called on the core thread.
type Factory interface {
	CreateVertexBuffer(desc VertexBufferDesc) (HardwareBuffer, error)
	CreateIndexBuffer(desc IndexBufferDesc) (HardwareBuffer, error)
	CreateGpuBuffer(desc GpuBufferDesc) (HardwareBuffer, error)
	CreateParamBlockBuffer(desc ParamBlockDesc) (HardwareBuffer, error)
}
