package reverb

import (
	"log/slog"
	"strconv"
	"sync"
)

// lengthKey is the conventional key tracked by Len and triggered by
// every index write, so length-sensitive consumers re-run on
// push/pop-style mutations.
const lengthKey = "length"

type listState struct {
	id    uint64
	mu    sync.RWMutex
	items []any
}

// List is a reactive ordered list. Index reads track (list, index);
// index writes that change a value trigger that index and the length
// key. The list owns its backing slice after wrapping.
type List struct {
	engine *Engine
	state  *listState

	readonly bool
	shallow  bool
}

func (e *Engine) newList(items []any, shallow bool) *List {
	return &List{
		engine:  e,
		state:   &listState{id: e.nextID(), items: items},
		shallow: shallow,
	}
}

func (l *List) sourceID() uint64   { return l.state.id }
func (l *List) sourceKind() string { return "list" }

func (l *List) readonlyView() *List {
	if l.readonly {
		return l
	}
	return &List{engine: l.engine, state: l.state, readonly: true, shallow: l.shallow}
}

// IsReadonly reports whether this view rejects mutation.
func (l *List) IsReadonly() bool { return l.readonly }

// Get reads the element at i, tracking the index. Out-of-range reads
// return nil but still track, so an effect re-runs if the index comes
// into range. Deep lists unwrap refs and wrap composite children on
// read like records do.
func (l *List) Get(i int) any {
	key := strconv.Itoa(i)
	st := l.state

	st.mu.RLock()
	var raw any
	if i >= 0 && i < len(st.items) {
		raw = st.items[i]
	}
	st.mu.RUnlock()

	l.engine.track(l, key)

	if l.shallow {
		return raw
	}
	if rv, ok := raw.(RefValue); ok {
		return rv.Value()
	}
	return l.wrapChild(i, raw)
}

func (l *List) wrapChild(i int, raw any) any {
	st := l.state
	switch cv := raw.(type) {
	case map[string]any:
		child := l.engine.recFor(cv, false)
		st.mu.Lock()
		if i >= 0 && i < len(st.items) {
			st.items[i] = child
		}
		st.mu.Unlock()
		raw = child
	case []any:
		child := l.engine.listFor(cv, false)
		st.mu.Lock()
		if i >= 0 && i < len(st.items) {
			st.items[i] = child
		}
		st.mu.Unlock()
		raw = child
	}
	if l.readonly {
		switch cv := raw.(type) {
		case *Rec:
			return cv.readonlyView()
		case *List:
			return cv.readonlyView()
		}
	}
	return raw
}

// Set writes the element at i. Writing one past the end grows the
// list. Writes outside 0..Len() are ignored. A changed write triggers
// the index key and the length key.
func (l *List) Set(i int, v any) {
	if l.readonly {
		l.reject("set", strconv.Itoa(i))
		return
	}

	st := l.state
	st.mu.Lock()
	if i < 0 || i > len(st.items) {
		st.mu.Unlock()
		return
	}
	if i == len(st.items) {
		st.items = append(st.items, v)
		st.mu.Unlock()
		l.engine.trigger(l, strconv.Itoa(i))
		l.engine.trigger(l, lengthKey)
		return
	}
	prior := st.items[i]
	if pr, ok := prior.(RefValue); ok && !l.shallow && !IsRef(v) {
		st.mu.Unlock()
		pr.SetValue(v)
		return
	}
	changed := !valuesEqual(prior, v)
	st.items[i] = v
	st.mu.Unlock()

	if changed {
		l.engine.trigger(l, strconv.Itoa(i))
		l.engine.trigger(l, lengthKey)
	}
}

// Append adds an element at the end, triggering the new index and the
// length key.
func (l *List) Append(v any) {
	if l.readonly {
		l.reject("append", lengthKey)
		return
	}

	st := l.state
	st.mu.Lock()
	i := len(st.items)
	st.items = append(st.items, v)
	st.mu.Unlock()

	l.engine.trigger(l, strconv.Itoa(i))
	l.engine.trigger(l, lengthKey)
}

// Pop removes and returns the last element, or nil when empty.
func (l *List) Pop() any {
	if l.readonly {
		l.reject("pop", lengthKey)
		return nil
	}

	st := l.state
	st.mu.Lock()
	n := len(st.items)
	if n == 0 {
		st.mu.Unlock()
		return nil
	}
	v := st.items[n-1]
	st.items = st.items[:n-1]
	st.mu.Unlock()

	l.engine.trigger(l, strconv.Itoa(n-1))
	l.engine.trigger(l, lengthKey)
	return v
}

// Len reports the list length, tracking the length key.
func (l *List) Len() int {
	st := l.state
	st.mu.RLock()
	n := len(st.items)
	st.mu.RUnlock()

	l.engine.track(l, lengthKey)
	return n
}

func (l *List) reject(op, key string) {
	l.engine.logger.Warn("reverb: mutation rejected on readonly list",
		slog.String("op", op),
		slog.String("key", key),
		slog.Uint64("target", l.state.id))
	l.engine.instr.ReadonlyRejected(l.state.id, key)
}
