package reverb

import (
	"sync"
	"sync/atomic"
)

// Computed is a lazy, memoized derivation. Reading Value recomputes
// only when a dependency changed since the last read; upstream writes
// mark the cell dirty and wake its subscribers without recomputing
// eagerly.
//
// Two subscriber populations keep this both lazy and push-notifying:
// consumers of the cell subscribe to (cell, "value"), while the cell's
// internal invalidator subscribes to whatever the getter reads. The
// invalidator only flips the dirty flag and re-triggers (cell, "value");
// the actual recomputation waits for the next read.
type Computed struct {
	engine *Engine
	id     uint64
	getter func() any

	mu    sync.RWMutex
	value any
	dirty bool

	inv *invalidator

	// computing makes re-entrant recomputation (a getter reading its
	// own cell) a no-op returning the current value.
	computing atomic.Bool
}

// Computed creates a derivation from getter. The getter is not invoked
// until the first read.
func (e *Engine) Computed(getter func() any) *Computed {
	c := &Computed{
		engine: e,
		id:     e.nextID(),
		getter: getter,
		dirty:  true,
	}
	c.inv = &invalidator{c: c, id: e.nextID()}
	return c
}

func (c *Computed) sourceID() uint64   { return c.id }
func (c *Computed) sourceKind() string { return "computed" }

// Value returns the memoized value, recomputing if dirty, and tracks
// (cell, "value") so an outer listener subscribes to the cell itself.
func (c *Computed) Value() any {
	c.engine.track(c, "value")
	c.refresh()

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Peek returns the value without subscribing the current listener.
// Still recomputes when dirty.
func (c *Computed) Peek() any {
	c.refresh()

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

func (c *Computed) refresh() {
	c.mu.RLock()
	dirty := c.dirty
	c.mu.RUnlock()
	if !dirty || !c.computing.CompareAndSwap(false, true) {
		return
	}
	defer c.computing.Store(false)

	e := c.engine

	// Drop stale edges, then re-track through the invalidator.
	e.mu.Lock()
	e.dropSubscriber(c.inv.id, c.inv.deps)
	c.inv.deps = c.inv.deps[:0]
	e.mu.Unlock()

	e.pushListener(c.inv)
	defer e.popListener()
	v := c.getter()

	c.mu.Lock()
	c.value = v
	c.dirty = false
	c.mu.Unlock()
}

// invalidator is the computed cell's internal subscriber to the
// getter's sources. It never recomputes; it marks the cell dirty and
// propagates to the cell's own subscribers.
type invalidator struct {
	c    *Computed
	id   uint64
	deps []*subscriberSet
}

// MarkDirty implements the Listener interface.
func (iv *invalidator) MarkDirty() {
	c := iv.c
	c.mu.Lock()
	was := c.dirty
	c.dirty = true
	c.mu.Unlock()

	if !was {
		c.engine.trigger(c, "value")
	}
}

// ID implements the Listener interface.
func (iv *invalidator) ID() uint64 { return iv.id }

// addDep implements the tracked interface.
func (iv *invalidator) addDep(s *subscriberSet) {
	iv.deps = append(iv.deps, s)
}
