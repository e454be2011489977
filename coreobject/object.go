package coreobject

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/ggcore/corethread"
	"github.com/gogpu/ggcore/internal/logging"
)

// Object is the simulation-thread half of a dual object.
//
// Resource types embed *Object, created with Manager.NewObject, and pass
// themselves as owner so the Object can discover their capabilities.
// Object methods are meant to be called from the simulation thread.
type Object struct {
	id      uint64
	name    string
	owner   any
	manager *Manager

	flags atomic.Uint32
	dirty atomic.Uint32

	core   Core
	initOp *corethread.AsyncOp[struct{}]
}

// InternalID returns the unique id assigned by the manager. Never 0.
func (o *Object) InternalID() uint64 { return o.id }

// Name returns the debug name.
func (o *Object) Name() string { return o.name }

// Flags returns the current flags.
func (o *Object) Flags() Flags { return Flags(o.flags.Load()) }

// IsDestroyed reports whether Destroy has been called.
func (o *Object) IsDestroyed() bool { return o.Flags().Has(FlagDestroyed) }

// RequiresCoreInit reports whether init and destroy run on the core thread.
func (o *Object) RequiresCoreInit() bool { return o.Flags().Has(FlagRequiresCoreInit) }

// Core returns the core half, or nil if the object has none. The returned
// value may only be dereferenced on the core thread; see
// BlockUntilCoreInitialized for when its fields are populated.
func (o *Object) Core() Core { return o.core }

// State returns the lifecycle state.
func (o *Object) State() State {
	switch {
	case o.IsDestroyed():
		return StateDestroyed
	case o.initOp == nil:
		return StateConstructed
	case !o.initOp.HasCompleted():
		return StateCoreInitPending
	default:
		return StateActive
	}
}

// Initialize creates the core half and initializes it: synchronously when
// FlagRequiresCoreInit is unset, otherwise through the core thread's primary
// queue. Must be called exactly once.
func (o *Object) Initialize() error {
	if o.initOp != nil {
		panic(fmt.Sprintf("coreobject: %s initialized twice", o.describe()))
	}
	if o.IsDestroyed() {
		panic(fmt.Sprintf("coreobject: %s initialized after destroy", o.describe()))
	}

	op := corethread.NewAsyncOp[struct{}]()
	o.initOp = op

	if creator, ok := o.owner.(CoreCreator); ok {
		o.core = creator.CreateCore()
	}
	if o.core == nil {
		op.Complete(struct{}{})
		return nil
	}

	if !o.RequiresCoreInit() {
		o.core.Initialize()
		op.Complete(struct{}{})
		return nil
	}

	core := o.core
	cmd := corethread.NewCommand(corethread.CommandInit, "init "+o.describe(), func() {
		core.Initialize()
		op.Complete(struct{}{})
	})
	if err := o.manager.thread.QueuePrimary(cmd); err != nil {
		return fmt.Errorf("coreobject: queue init of %s: %w", o.describe(), err)
	}
	return nil
}

// IsInitialized reports whether core initialization has completed.
func (o *Object) IsInitialized() bool {
	return o.initOp != nil && o.initOp.HasCompleted()
}

// BlockUntilCoreInitialized waits until the queued init command has run.
//
// Precondition: Initialize has been called. Must never be called from the
// core thread.
func (o *Object) BlockUntilCoreInitialized() {
	if o.initOp == nil {
		panic(fmt.Sprintf("coreobject: %s: BlockUntilCoreInitialized before Initialize", o.describe()))
	}
	o.initOp.BlockUntilComplete()
}

// Destroy destroys the object through the manager's default accessor.
// See DestroyWith.
func (o *Object) Destroy() {
	o.DestroyWith(o.manager.accessor)
}

// DestroyWith marks the object destroyed and releases its core half. When
// the core requires the core thread, the release is queued through acc so
// it runs after every command acc queued before it; otherwise it happens
// immediately. Destroying twice is a no-op.
func (o *Object) DestroyWith(acc *corethread.Accessor) {
	for {
		old := o.flags.Load()
		if Flags(old).Has(FlagDestroyed) {
			return
		}
		if o.flags.CompareAndSwap(old, old|uint32(FlagDestroyed)) {
			break
		}
	}

	o.manager.unregister(o)

	core := o.core
	o.core = nil
	if core == nil {
		return
	}

	if !o.RequiresCoreInit() {
		core.Destroy()
		return
	}
	acc.QueueCommand(corethread.NewCommand(corethread.CommandDestroy, "destroy "+o.describe(), core.Destroy))
}

// MarkCoreDirty ORs flags into the core dirty mask and schedules the object
// for the next frame's sync.
func (o *Object) MarkCoreDirty(flags uint32) {
	if flags == 0 {
		return
	}
	o.dirty.Or(flags)
	o.manager.markDirty(o)
}

// MarkCoreClean clears the dirty mask without syncing.
func (o *Object) MarkCoreClean() {
	o.dirty.Store(0)
}

// IsCoreDirty reports whether any dirty flag is set.
func (o *Object) IsCoreDirty() bool { return o.dirty.Load() != 0 }

// CoreDirtyFlags returns the current dirty mask.
func (o *Object) CoreDirtyFlags() uint32 { return o.dirty.Load() }

// MarkDependenciesDirty asks the manager to recompute this object's
// dependencies through DependencyProvider.
func (o *Object) MarkDependenciesDirty() {
	o.manager.updateDependencies(o)
}

// SyncToCore syncs this object alone through acc, using its own frame
// allocator. Per-frame syncing of all objects goes through Manager.SyncToCore.
func (o *Object) SyncToCore(acc *corethread.Accessor) bool {
	alloc := NewFrameAlloc(0)
	synced := o.syncTo(acc, alloc)
	acc.QueueCommand(corethread.NewCommand(corethread.CommandSync, "release-frame-alloc", alloc.Release))
	return synced
}

// syncTo queues the application of this object's delta. Returns false if
// there was nothing to sync.
func (o *Object) syncTo(acc *corethread.Accessor, alloc *FrameAlloc) bool {
	if o.IsDestroyed() || o.core == nil {
		o.MarkCoreClean()
		return false
	}
	flags := o.dirty.Load()
	if flags == 0 {
		return false
	}

	syncer, ok := o.owner.(CoreSyncer)
	if !ok {
		o.MarkCoreClean()
		return false
	}

	data := syncer.BuildSyncData(alloc)
	data.Flags = flags
	core := o.core
	acc.QueueCommand(corethread.NewCommand(corethread.CommandSync, "sync "+o.describe(), func() {
		core.SyncToCore(data)
	}))
	o.dirty.And(^flags)

	logging.Logger().Debug("coreobject: synced", "object", o.describe(), "flags", fmt.Sprintf("0x%x", flags))
	return true
}

func (o *Object) describe() string {
	if o.name != "" {
		return fmt.Sprintf("%s#%d", o.name, o.id)
	}
	return fmt.Sprintf("object#%d", o.id)
}
