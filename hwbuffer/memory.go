package hwbuffer

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
)

// MemoryBuffer is a HardwareBuffer backed by CPU memory.
//
// MemoryBuffer is safe for concurrent use.
type MemoryBuffer struct {
	mu        sync.Mutex
	data      []byte
	usage     gputypes.BufferUsage
	label     string
	locked    bool
	destroyed bool
}

// NewMemoryBuffer allocates a zeroed buffer of size bytes.
func NewMemoryBuffer(label string, size uint64, usage gputypes.BufferUsage) (*MemoryBuffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: buffer %q has zero size", ErrInvalidParameters, label)
	}
	return &MemoryBuffer{
		data:  make([]byte, size),
		usage: usage,
		label: label,
	}, nil
}

// Label returns the debug label.
func (b *MemoryBuffer) Label() string { return b.label }

// Size returns the buffer size in bytes.
func (b *MemoryBuffer) Size() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(b.data))
}

// Usage returns the usage flags.
func (b *MemoryBuffer) Usage() gputypes.BufferUsage { return b.usage }

// IsLocked reports whether the buffer is locked.
func (b *MemoryBuffer) IsLocked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}

// Lock returns the requested range. The slice aliases buffer memory until
// Unlock.
func (b *MemoryBuffer) Lock(offset, length uint64, opts LockOptions) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkUsableLocked(); err != nil {
		return nil, err
	}
	if err := CheckRange(uint64(len(b.data)), offset, length); err != nil {
		return nil, err
	}
	if opts == LockWriteDiscard {
		clear(b.data)
	}
	b.locked = true
	return b.data[offset : offset+length : offset+length], nil
}

// Unlock ends the lock.
func (b *MemoryBuffer) Unlock() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return ErrDestroyed
	}
	if !b.locked {
		return ErrNotLocked
	}
	b.locked = false
	return nil
}

// ReadData copies buffer bytes into dst.
func (b *MemoryBuffer) ReadData(offset uint64, dst []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkUsableLocked(); err != nil {
		return err
	}
	if err := CheckRange(uint64(len(b.data)), offset, uint64(len(dst))); err != nil {
		return err
	}
	copy(dst, b.data[offset:])
	return nil
}

// WriteData copies src into the buffer.
func (b *MemoryBuffer) WriteData(offset uint64, src []byte, flags WriteFlags) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkUsableLocked(); err != nil {
		return err
	}
	if err := CheckRange(uint64(len(b.data)), offset, uint64(len(src))); err != nil {
		return err
	}
	if flags == WriteDiscard {
		clear(b.data)
	}
	copy(b.data[offset:], src)
	return nil
}

// CopyData copies length bytes from src.
func (b *MemoryBuffer) CopyData(src HardwareBuffer, srcOffset, dstOffset, length uint64) error {
	if src == nil {
		return fmt.Errorf("%w: nil source buffer", ErrInvalidParameters)
	}
	if err := CheckRange(src.Size(), srcOffset, length); err != nil {
		return err
	}

	if src == HardwareBuffer(b) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if err := b.checkUsableLocked(); err != nil {
			return err
		}
		if err := CheckRange(uint64(len(b.data)), dstOffset, length); err != nil {
			return err
		}
		copy(b.data[dstOffset:dstOffset+length], b.data[srcOffset:srcOffset+length])
		return nil
	}

	tmp := make([]byte, length)
	if err := src.ReadData(srcOffset, tmp); err != nil {
		return err
	}
	return b.WriteData(dstOffset, tmp, WriteNormal)
}

// Destroy frees the memory.
func (b *MemoryBuffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.destroyed = true
	b.locked = false
	b.data = nil
}

// IsDestroyed reports whether Destroy was called.
func (b *MemoryBuffer) IsDestroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

func (b *MemoryBuffer) checkUsableLocked() error {
	if b.destroyed {
		return ErrDestroyed
	}
	if b.locked {
		return ErrAlreadyLocked
	}
	return nil
}
