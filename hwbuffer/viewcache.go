package hwbuffer

import "sync"

// ViewCache shares views keyed by their descriptor. The first Acquire of a
// key creates the view, later ones share it; the view is destroyed when
// the last reference is released.
//
// ViewCache is safe for concurrent use.
// ViewCache must not be copied after creation (has mutex).
type ViewCache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*viewEntry[V]
	destroy func(key K, value V)
}

// viewEntry holds a shared view with its reference count.
type viewEntry[V any] struct {
	value V
	refs  int
}

// NewViewCache creates a cache. destroy, if not nil, is called when a
// view's last reference is released.
func NewViewCache[K comparable, V any](destroy func(key K, value V)) *ViewCache[K, V] {
	return &ViewCache[K, V]{
		entries: make(map[K]*viewEntry[V]),
		destroy: destroy,
	}
}

// Acquire returns the view for key, creating it if needed, and takes a
// reference. create is called under lock so a key is created only once.
func (c *ViewCache[K, V]) Acquire(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.refs++
		return entry.value, nil
	}

	value, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	c.entries[key] = &viewEntry[V]{value: value, refs: 1}
	return value, nil
}

// Release drops a reference to key. Returns true if it was the last one and
// the view was destroyed. Releasing an unknown key panics.
func (c *ViewCache[K, V]) Release(key K) bool {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		panic("hwbuffer: release of unknown view")
	}
	entry.refs--
	if entry.refs > 0 {
		c.mu.Unlock()
		return false
	}
	delete(c.entries, key)
	c.mu.Unlock()

	if c.destroy != nil {
		c.destroy(key, entry.value)
	}
	return true
}

// RefCount returns the number of references held on key.
func (c *ViewCache[K, V]) RefCount(key K) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		return entry.refs
	}
	return 0
}

// Len returns the number of live views.
func (c *ViewCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Clear destroys every view regardless of outstanding references.
func (c *ViewCache[K, V]) Clear() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[K]*viewEntry[V])
	c.mu.Unlock()

	if c.destroy == nil {
		return
	}
	for key, entry := range entries {
		c.destroy(key, entry.value)
	}
}
