package hwbuffer

import "errors"

// Buffer errors.
var (
	// ErrInvalidParameters is returned when a size, offset or range is out
	// of bounds for the resource it addresses.
	ErrInvalidParameters = errors.New("hwbuffer: invalid parameters")

	// ErrInvalidState is returned when the resource is not in a state that
	// allows the operation.
	ErrInvalidState = errors.New("hwbuffer: invalid state")

	// ErrAlreadyLocked is returned by Lock on a locked buffer, and by data
	// transfers while the buffer is locked.
	ErrAlreadyLocked = errors.New("hwbuffer: buffer is already locked")

	// ErrNotLocked is returned by Unlock on a buffer that is not locked.
	ErrNotLocked = errors.New("hwbuffer: buffer is not locked")

	// ErrDestroyed is returned when operating on a destroyed buffer.
	ErrDestroyed = errors.New("hwbuffer: buffer has been destroyed")
)
