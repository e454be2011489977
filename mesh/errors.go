package mesh

import "errors"

// Heap errors.
var (
	// ErrQueryPoolExhausted is reported by AllocResult when every event
	// query allowed by WithMaxEventQueries is in use.
	ErrQueryPoolExhausted = errors.New("mesh: event query pool exhausted")

	// ErrLayoutMismatch is returned by Alloc when mesh data does not match
	// the heap's vertex layout or index format.
	ErrLayoutMismatch = errors.New("mesh: mesh data does not match heap layout")

	// ErrHeapUnavailable is reported by AllocResult when the heap's
	// buffers could not be created.
	ErrHeapUnavailable = errors.New("mesh: heap buffers unavailable")
)
