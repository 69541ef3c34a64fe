package reverb

import "reflect"

// Reactive wraps a composite value for observation. Maps become records
// (*Rec), slices become ordered lists (*List); already-wrapped values
// and non-composite values pass through unchanged. Wrapping the same
// map twice returns the same record, so dependency entries stay keyed
// by the underlying value's identity.
//
// Children are wrapped lazily on read, not eagerly.
func (e *Engine) Reactive(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case *Rec:
		return t
	case *List:
		return t
	case *Computed:
		return t
	case RefValue:
		return t
	case map[string]any:
		return e.recFor(t, false)
	case []any:
		return e.listFor(t, false)
	default:
		return v
	}
}

// ShallowReactive wraps only the top level: children are returned raw
// and refs inside the value are not unwrapped.
func (e *Engine) ShallowReactive(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return e.recFor(t, true)
	case []any:
		return e.listFor(t, true)
	default:
		return e.Reactive(v)
	}
}

// Readonly wraps a composite value in a read-tracking view that rejects
// mutation: writes and deletes log a warning and are absorbed without
// effect. The view shares identity (and storage) with the reactive
// wrapper of the same value, so reads through either view observe the same
// dependency entries.
func (e *Engine) Readonly(v any) any {
	switch t := v.(type) {
	case *Rec:
		return t.readonlyView()
	case *List:
		return t.readonlyView()
	case map[string]any:
		return e.recFor(t, false).readonlyView()
	case []any:
		return e.listFor(t, false).readonlyView()
	default:
		return e.Reactive(v)
	}
}

// recFor returns the canonical record wrapper for a backing map,
// creating and caching it on first use. Deep and shallow wrappers cache
// independently. Cache entries live as long as the engine.
func (e *Engine) recFor(m map[string]any, shallow bool) *Rec {
	ptr := reflect.ValueOf(m).Pointer()
	cache := e.recs
	if shallow {
		cache = e.shallowRecs
	}

	e.mu.Lock()
	if r, ok := cache[ptr]; ok {
		e.mu.Unlock()
		return r
	}
	e.mu.Unlock()

	r := newRec(e, m, shallow)

	e.mu.Lock()
	// Lost race: keep the first wrapper so identity stays stable.
	if prior, ok := cache[ptr]; ok {
		e.mu.Unlock()
		return prior
	}
	cache[ptr] = r
	e.mu.Unlock()
	return r
}

// listFor returns the canonical list wrapper for a backing slice,
// keyed by the underlying array pointer. Zero-capacity slices all share
// the runtime's zero-size allocation and carry no identity of their
// own, so those are wrapped fresh each time.
func (e *Engine) listFor(s []any, shallow bool) *List {
	if cap(s) == 0 {
		return e.newList(s, shallow)
	}
	ptr := reflect.ValueOf(s).Pointer()
	cache := e.lists
	if shallow {
		cache = e.shallowLists
	}

	e.mu.Lock()
	if l, ok := cache[ptr]; ok {
		e.mu.Unlock()
		return l
	}
	e.mu.Unlock()

	l := e.newList(s, shallow)

	e.mu.Lock()
	if prior, ok := cache[ptr]; ok {
		e.mu.Unlock()
		return prior
	}
	cache[ptr] = l
	e.mu.Unlock()
	return l
}

// valuesEqual is the changed check used by record, list, and deep ref
// writes. Basic types compare by value, wrapped composites and refs by
// identity, everything else by reflect.DeepEqual.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int8:
		bv, ok := b.(int8)
		return ok && av == bv
	case int16:
		bv, ok := b.(int16)
		return ok && av == bv
	case int32:
		bv, ok := b.(int32)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case uint:
		bv, ok := b.(uint)
		return ok && av == bv
	case uint8:
		bv, ok := b.(uint8)
		return ok && av == bv
	case uint16:
		bv, ok := b.(uint16)
		return ok && av == bv
	case uint32:
		bv, ok := b.(uint32)
		return ok && av == bv
	case uint64:
		bv, ok := b.(uint64)
		return ok && av == bv
	case float32:
		bv, ok := b.(float32)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case *Rec:
		bv, ok := b.(*Rec)
		return ok && av.state == bv.state
	case *List:
		bv, ok := b.(*List)
		return ok && av.state == bv.state
	case *Ref:
		bv, ok := b.(*Ref)
		return ok && av == bv
	case *Computed:
		bv, ok := b.(*Computed)
		return ok && av == bv
	default:
		return reflect.DeepEqual(a, b)
	}
}
