package reverb

import "sync"

// RefValue is the capability marker shared by single-slot value cells.
// Records and lists detect it to auto-unwrap on read and write through
// on assignment.
type RefValue interface {
	// Value returns the cell's value, tracking it for the current
	// listener.
	Value() any

	// SetValue assigns the cell's value.
	SetValue(v any)

	isRef()
}

// Ref is a single-slot reactive value cell. Its only dependency key is
// the conventional "value" slot.
//
// Equality policy: a deep ref performs the same changed check as record
// writes and skips the trigger on equal assignment; a shallow ref
// triggers on every assignment.
type Ref struct {
	engine *Engine
	id     uint64

	mu    sync.RWMutex
	value any

	shallow bool
}

// Ref creates a deep value cell: composite values are wrapped via
// Reactive on construction and on every assignment.
func (e *Engine) Ref(v any) *Ref {
	return &Ref{engine: e, id: e.nextID(), value: e.Reactive(v)}
}

// ShallowRef creates a cell that stores assigned values raw, without
// wrapping them for observation.
func (e *Engine) ShallowRef(v any) *Ref {
	return &Ref{engine: e, id: e.nextID(), value: v, shallow: true}
}

func (r *Ref) sourceID() uint64   { return r.id }
func (r *Ref) sourceKind() string { return "ref" }
func (r *Ref) isRef()             {}

// Value reads the cell, tracking (cell, "value").
func (r *Ref) Value() any {
	r.mu.RLock()
	v := r.value
	r.mu.RUnlock()

	r.engine.track(r, "value")
	return v
}

// Peek reads the cell without tracking.
func (r *Ref) Peek() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// SetValue assigns the cell and triggers its subscribers per the
// equality policy above.
func (r *Ref) SetValue(v any) {
	if !r.shallow {
		v = r.engine.Reactive(v)
	}

	r.mu.Lock()
	changed := r.shallow || !valuesEqual(r.value, v)
	r.value = v
	r.mu.Unlock()

	if changed {
		r.engine.trigger(r, "value")
	}
}
