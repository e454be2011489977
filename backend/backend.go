package backend

import (
	"errors"

	"github.com/gogpu/ggcore/hwbuffer"
	"github.com/gogpu/ggcore/query"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")

	// ErrDeviceClosed is returned when operations are called after Close.
	ErrDeviceClosed = errors.New("backend: device closed")

	// ErrUnsupported is returned for features the device cannot provide.
	ErrUnsupported = errors.New("backend: unsupported")
)

// Backend name constants.
const (
	// BackendSoftware is the name of the in-memory backend.
	BackendSoftware = "software"
	// BackendWGPU is the name of the GPU backend built on gogpu/wgpu.
	BackendWGPU = "wgpu"
)

// Device is a render device: it creates hardware buffers and GPU queries.
// Every creation method is called on the core thread.
//
// Devices must be registered via Register() and are selected via
// Get() or Default().
type Device interface {
	hwbuffer.Factory
	query.Factory

	// Name returns the backend identifier (e.g., "software", "wgpu").
	Name() string

	// Init acquires device resources.
	// This should be called before creating buffers or queries.
	Init() error

	// Close releases all device resources.
	// The device should not be used after Close is called.
	Close()
}

// OcclusionSupport is implemented by devices that may lack occlusion
// queries.
type OcclusionSupport interface {
	SupportsOcclusion() bool
}

// SupportsOcclusion reports whether d provides occlusion queries. Devices
// not implementing OcclusionSupport are assumed to.
func SupportsOcclusion(d Device) bool {
	if s, ok := d.(OcclusionSupport); ok {
		return s.SupportsOcclusion()
	}
	return true
}
