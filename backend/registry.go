package backend

import (
	"sort"
	"sync"
)

// DeviceFactory creates a new device instance.
type DeviceFactory func() Device

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]DeviceFactory)
	// Priority order for backend selection (first available wins).
	backendPriority = []string{BackendWGPU, BackendSoftware}
)

// Register registers a device factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory DeviceFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the sorted names of registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns a device by name.
// Returns nil if the backend is not registered.
func Get(name string) Device {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil
	}
	return factory()
}

// Default returns a device from the best available backend.
// Priority order: wgpu > software
// Returns nil if no backends are registered.
func Default() Device {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range backendPriority {
		if factory, ok := backends[name]; ok {
			if d := factory(); d != nil {
				return d
			}
		}
	}

	// Fallback: first available in name order.
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if d := backends[name](); d != nil {
			return d
		}
	}

	return nil
}

// MustDefault returns the default device or panics.
func MustDefault() Device {
	d := Default()
	if d == nil {
		panic("backend: no backend available")
	}
	return d
}

// Open returns an initialized device. An empty name selects Default; a
// device whose Init fails is closed and, for the default selection, the
// next backend in priority order is tried.
func Open(name string) (Device, error) {
	if name != "" {
		d := Get(name)
		if d == nil {
			return nil, ErrBackendNotAvailable
		}
		if err := d.Init(); err != nil {
			d.Close()
			return nil, err
		}
		return d, nil
	}

	var firstErr error
	for _, candidate := range candidates() {
		d := Get(candidate)
		if d == nil {
			continue
		}
		err := d.Init()
		if err == nil {
			return d, nil
		}
		d.Close()
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, ErrBackendNotAvailable
}

// candidates returns registered names, priority backends first.
func candidates() []string {
	names := Available()
	out := make([]string, 0, len(names))
	for _, p := range backendPriority {
		if IsRegistered(p) {
			out = append(out, p)
		}
	}
	for _, n := range names {
		if !contains(backendPriority, n) {
			out = append(out, n)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
