package reverb

import (
	"log/slog"
	"sort"
	"sync"
)

// iterateKey is the conventional key tracked by structural reads (Keys,
// Len) and triggered by structural writes (key added or removed).
const iterateKey = "$keys"

// recState is the storage shared by a record and its readonly views, so
// all views observe the same data under the same target identity.
type recState struct {
	id   uint64
	mu   sync.RWMutex
	data map[string]any
}

// Rec is a reactive record over string-keyed data. Reads track the
// current listener against (record, key); writes trigger subscribers of
// the written key. Nested maps and slices are wrapped on first read;
// refs stored in a deep record unwrap on read and absorb writes while
// keeping their identity.
type Rec struct {
	engine *Engine
	state  *recState

	// readonly views absorb Set/Delete as warned no-ops.
	readonly bool

	// shallow records neither wrap children nor unwrap refs.
	shallow bool
}

func newRec(e *Engine, data map[string]any, shallow bool) *Rec {
	if data == nil {
		data = make(map[string]any)
	}
	return &Rec{
		engine:  e,
		state:   &recState{id: e.nextID(), data: data},
		shallow: shallow,
	}
}

func (r *Rec) sourceID() uint64   { return r.state.id }
func (r *Rec) sourceKind() string { return "record" }

func (r *Rec) readonlyView() *Rec {
	if r.readonly {
		return r
	}
	return &Rec{engine: r.engine, state: r.state, readonly: true, shallow: r.shallow}
}

// IsReadonly reports whether this view rejects mutation.
func (r *Rec) IsReadonly() bool { return r.readonly }

// Get reads a key, tracking it for the current listener. In a deep
// record a stored ref is unwrapped and composite children come back
// wrapped (readonly views wrap children readonly). Missing keys read as
// nil and are still tracked, so an effect re-runs when the key appears.
func (r *Rec) Get(key string) any {
	st := r.state
	st.mu.RLock()
	raw := st.data[key]
	st.mu.RUnlock()

	r.engine.track(r, key)

	if r.shallow {
		return raw
	}
	if rv, ok := raw.(RefValue); ok {
		return rv.Value()
	}
	return r.wrapChild(key, raw)
}

// wrapChild normalizes a composite child to its canonical wrapper,
// storing the wrapper back so identity stays stable across reads.
func (r *Rec) wrapChild(key string, raw any) any {
	st := r.state
	switch cv := raw.(type) {
	case map[string]any:
		child := r.engine.recFor(cv, false)
		st.mu.Lock()
		st.data[key] = child
		st.mu.Unlock()
		raw = child
	case []any:
		child := r.engine.listFor(cv, false)
		st.mu.Lock()
		st.data[key] = child
		st.mu.Unlock()
		raw = child
	}
	if r.readonly {
		switch cv := raw.(type) {
		case *Rec:
			return cv.readonlyView()
		case *List:
			return cv.readonlyView()
		}
	}
	return raw
}

// Set writes a key and triggers its subscribers when the value changed.
// When the prior value is a ref and the incoming value is not, the
// write goes through the ref's own value slot, preserving the ref's
// identity and firing its trigger path instead. On a readonly view the
// write is rejected: a warning is logged and nothing changes.
func (r *Rec) Set(key string, v any) {
	if r.readonly {
		r.reject("set", key)
		return
	}

	st := r.state
	st.mu.Lock()
	prior, existed := st.data[key]
	if pr, ok := prior.(RefValue); ok && !r.shallow && !IsRef(v) {
		st.mu.Unlock()
		pr.SetValue(v)
		return
	}
	changed := !valuesEqual(prior, v)
	st.data[key] = v
	st.mu.Unlock()

	if changed {
		r.engine.trigger(r, key)
	}
	if !existed {
		r.engine.trigger(r, iterateKey)
	}
}

// Delete removes a key, triggering only if the key existed.
func (r *Rec) Delete(key string) {
	if r.readonly {
		r.reject("delete", key)
		return
	}

	st := r.state
	st.mu.Lock()
	_, existed := st.data[key]
	if existed {
		delete(st.data, key)
	}
	st.mu.Unlock()

	if existed {
		r.engine.trigger(r, key)
		r.engine.trigger(r, iterateKey)
	}
}

// Has reports key existence, tracking the key.
func (r *Rec) Has(key string) bool {
	st := r.state
	st.mu.RLock()
	_, ok := st.data[key]
	st.mu.RUnlock()

	r.engine.track(r, key)
	return ok
}

// Len reports the number of keys. Tracks structural changes: the
// listener re-runs when keys are added or removed.
func (r *Rec) Len() int {
	st := r.state
	st.mu.RLock()
	n := len(st.data)
	st.mu.RUnlock()

	r.engine.track(r, iterateKey)
	return n
}

// Keys returns the record's keys in sorted order. Like Len it tracks
// structural changes only, not the individual values.
func (r *Rec) Keys() []string {
	st := r.state
	st.mu.RLock()
	keys := make([]string, 0, len(st.data))
	for k := range st.data {
		keys = append(keys, k)
	}
	st.mu.RUnlock()
	sort.Strings(keys)

	r.engine.track(r, iterateKey)
	return keys
}

func (r *Rec) reject(op, key string) {
	r.engine.logger.Warn("reverb: mutation rejected on readonly record",
		slog.String("op", op),
		slog.String("key", key),
		slog.Uint64("target", r.state.id))
	r.engine.instr.ReadonlyRejected(r.state.id, key)
}
