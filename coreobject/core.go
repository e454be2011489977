package coreobject

import "sync/atomic"

// Core is the core-thread half of a dual object. Every method is called on
// the core thread only.
type Core interface {
	// Initialize creates device resources. Implementations that embed
	// CoreBase must call CoreBase.Initialize when done.
	Initialize()

	// IsInitialized reports whether Initialize has completed.
	IsInitialized() bool

	// SyncToCore applies simulation-side changes. Byte slices in data are
	// only valid for the duration of the call.
	SyncToCore(data SyncData)

	// Destroy releases device resources.
	Destroy()
}

// CoreBase is an embeddable Core with no device resources.
type CoreBase struct {
	initialized atomic.Bool
}

// Initialize marks the core initialized.
func (c *CoreBase) Initialize() { c.initialized.Store(true) }

// IsInitialized reports whether Initialize has completed. Safe to call from
// any goroutine.
func (c *CoreBase) IsInitialized() bool { return c.initialized.Load() }

// SyncToCore ignores the data.
func (c *CoreBase) SyncToCore(SyncData) {}

// Destroy marks the core uninitialized.
func (c *CoreBase) Destroy() { c.initialized.Store(false) }

// SyncData carries one object's simulation-side delta to its core.
type SyncData struct {
	// Flags are the dirty flags that were set when the data was built.
	Flags uint32

	// Bytes is raw data allocated from the frame's FrameAlloc.
	Bytes []byte

	// Value is an optional typed payload.
	Value any
}

// CoreCreator builds the core half of an object.
type CoreCreator interface {
	CreateCore() Core
}

// CoreSyncer packages simulation-side changes for the core half. Called on
// the simulation thread; alloc memory stays valid until the core has
// applied the data.
type CoreSyncer interface {
	BuildSyncData(alloc *FrameAlloc) SyncData
}

// DependencyProvider lists the objects whose changes must reach the core
// thread before this object's own.
type DependencyProvider interface {
	CoreDependencies() []*Object
}
