package coreobject

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/ggcore/corethread"
	"github.com/gogpu/ggcore/internal/logging"
)

// Manager is the registry of live objects. It assigns ids, tracks which
// objects are dirty and which depend on which, and drives the per-frame
// sync in dependency order.
//
// Manager is safe for concurrent use.
type Manager struct {
	thread   *corethread.Thread
	accessor *corethread.Accessor

	nextID atomic.Uint64

	mu           sync.Mutex
	objects      map[uint64]*Object
	dirty        map[uint64]*Object
	dependencies map[uint64][]uint64 // id -> ids it depends on
	dependants   map[uint64][]uint64 // id -> ids depending on it
}

// NewManager creates a manager submitting init commands to thread and
// destroy commands to the thread's default accessor.
func NewManager(thread *corethread.Thread) *Manager {
	m := &Manager{
		thread:       thread,
		accessor:     thread.DefaultAccessor(),
		objects:      make(map[uint64]*Object),
		dirty:        make(map[uint64]*Object),
		dependencies: make(map[uint64][]uint64),
		dependants:   make(map[uint64][]uint64),
	}
	// Start ID generation at 1 (0 is invalid)
	m.nextID.Store(1)
	return m
}

// Thread returns the core thread.
func (m *Manager) Thread() *corethread.Thread { return m.thread }

// Accessor returns the default (simulation thread) accessor.
func (m *Manager) Accessor() *corethread.Accessor { return m.accessor }

// NewObject registers a new object. owner is the resource embedding the
// object and is queried for CoreCreator, CoreSyncer and DependencyProvider.
func (m *Manager) NewObject(owner any, name string, flags Flags) *Object {
	o := &Object{
		id:      m.nextID.Add(1) - 1,
		name:    name,
		owner:   owner,
		manager: m,
	}
	o.flags.Store(uint32(flags &^ FlagDestroyed))

	m.mu.Lock()
	m.objects[o.id] = o
	m.mu.Unlock()

	return o
}

// Object returns the live object with the given id.
func (m *Manager) Object(id uint64) (*Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[id]
	return o, ok
}

// Count returns the number of live objects.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// DirtyCount returns the number of objects waiting to be synced.
func (m *Manager) DirtyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dirty)
}

// Dependencies returns the ids o currently depends on.
func (m *Manager) Dependencies(o *Object) []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.dependencies[o.id])
}

// SyncToCore queues the sync of every dirty object through acc.
// Dependencies are synced before their dependants; otherwise objects are
// visited in id order. The frame's FrameAlloc is released on the core
// thread after the last sync command. Returns the number of objects synced.
func (m *Manager) SyncToCore(acc *corethread.Accessor) int {
	m.mu.Lock()
	dirty := make([]*Object, 0, len(m.dirty))
	for _, o := range m.dirty {
		dirty = append(dirty, o)
	}
	clear(m.dirty)
	m.mu.Unlock()

	if len(dirty) == 0 {
		return 0
	}
	slices.SortFunc(dirty, func(a, b *Object) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})

	alloc := NewFrameAlloc(0)
	visited := make(map[uint64]bool, len(dirty))
	synced := 0

	var visit func(o *Object)
	visit = func(o *Object) {
		if visited[o.id] {
			return
		}
		visited[o.id] = true
		for _, depID := range m.Dependencies(o) {
			if dep, ok := m.Object(depID); ok {
				visit(dep)
			}
		}
		if o.syncTo(acc, alloc) {
			synced++
		}
	}
	for _, o := range dirty {
		visit(o)
	}

	acc.QueueCommand(corethread.NewCommand(corethread.CommandSync, "release-frame-alloc", alloc.Release))

	logging.Logger().Debug("coreobject: frame sync queued", "objects", synced, "frame_bytes", alloc.Allocated())
	return synced
}

func (m *Manager) markDirty(o *Object) {
	m.mu.Lock()
	if _, live := m.objects[o.id]; live {
		m.dirty[o.id] = o
	}
	m.mu.Unlock()
}

// updateDependencies recomputes o's dependency edges.
func (m *Manager) updateDependencies(o *Object) {
	var deps []uint64
	if p, ok := o.owner.(DependencyProvider); ok {
		for _, d := range p.CoreDependencies() {
			if d != nil && d.id != o.id {
				deps = append(deps, d.id)
			}
		}
	}
	slices.Sort(deps)
	deps = slices.Compact(deps)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeEdgesLocked(o.id)
	if len(deps) == 0 {
		return
	}
	m.dependencies[o.id] = deps
	for _, d := range deps {
		m.dependants[d] = append(m.dependants[d], o.id)
	}
}

// removeEdgesLocked drops every edge from id to its dependencies. Caller
// must hold mu.
func (m *Manager) removeEdgesLocked(id uint64) {
	for _, d := range m.dependencies[id] {
		m.dependants[d] = slices.DeleteFunc(m.dependants[d], func(x uint64) bool { return x == id })
		if len(m.dependants[d]) == 0 {
			delete(m.dependants, d)
		}
	}
	delete(m.dependencies, id)
}

func (m *Manager) unregister(o *Object) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, o.id)
	delete(m.dirty, o.id)
	m.removeEdgesLocked(o.id)

	// Dependants keep their own edge lists; a dangling id is skipped at
	// sync time because the object is no longer registered.
	delete(m.dependants, o.id)
}
