package hwbuffer

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// LockOptions describes how locked memory will be accessed.
type LockOptions int

const (
	// LockReadWrite allows reading and writing.
	LockReadWrite LockOptions = iota
	// LockReadOnly allows reading only.
	LockReadOnly
	// LockWriteOnly allows writing only.
	LockWriteOnly
	// LockWriteDiscard discards previous contents of the whole buffer.
	LockWriteDiscard
	// LockWriteNoOverwrite promises not to touch memory the GPU is using.
	LockWriteNoOverwrite
)

// String returns the string representation of LockOptions.
func (o LockOptions) String() string {
	switch o {
	case LockReadWrite:
		return "ReadWrite"
	case LockReadOnly:
		return "ReadOnly"
	case LockWriteOnly:
		return "WriteOnly"
	case LockWriteDiscard:
		return "WriteDiscard"
	case LockWriteNoOverwrite:
		return "WriteNoOverwrite"
	default:
		return fmt.Sprintf("Unknown(%d)", int(o))
	}
}

// WriteFlags controls how WriteData synchronizes with the GPU.
type WriteFlags int

const (
	// WriteNormal waits for the GPU as needed.
	WriteNormal WriteFlags = iota
	// WriteDiscard discards previous contents of the whole buffer.
	WriteDiscard
	// WriteNoOverwrite promises the written range is not in use by the GPU.
	WriteNoOverwrite
)

// String returns the string representation of WriteFlags.
func (f WriteFlags) String() string {
	switch f {
	case WriteNormal:
		return "Normal"
	case WriteDiscard:
		return "Discard"
	case WriteNoOverwrite:
		return "NoOverwrite"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// HardwareBuffer is a device buffer. Methods are called on the core thread.
type HardwareBuffer interface {
	// Size returns the buffer size in bytes.
	Size() uint64

	// Usage returns the device usage flags the buffer was created with.
	Usage() gputypes.BufferUsage

	// Lock maps [offset, offset+length) for CPU access until Unlock.
	Lock(offset, length uint64, opts LockOptions) ([]byte, error)

	// Unlock ends a Lock, publishing writes made through the locked slice.
	Unlock() error

	// ReadData copies len(dst) bytes starting at offset into dst.
	ReadData(offset uint64, dst []byte) error

	// WriteData copies src into the buffer starting at offset.
	WriteData(offset uint64, src []byte, flags WriteFlags) error

	// CopyData copies length bytes from src at srcOffset into this buffer
	// at dstOffset. src may be this buffer; overlapping ranges are allowed.
	CopyData(src HardwareBuffer, srcOffset, dstOffset, length uint64) error

	// Destroy releases the device memory. Destroying twice is a no-op.
	Destroy()
}

// CheckRange returns ErrInvalidParameters unless [offset, offset+length)
// lies inside a buffer of size bytes.
func CheckRange(size, offset, length uint64) error {
	if offset > size || length > size-offset {
		return fmt.Errorf("%w: range [%d, %d) exceeds buffer size %d",
			ErrInvalidParameters, offset, offset+length, size)
	}
	return nil
}
