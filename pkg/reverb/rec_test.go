package reverb

import "testing"

func TestRecGetTracksAndSetTriggers(t *testing.T) {
	e := New()
	state := e.Reactive(map[string]any{"count": 0}).(*Rec)

	var seen []int
	stop := e.WatchEffect(func(OnCleanup) {
		seen = append(seen, state.Get("count").(int))
	})
	defer stop()

	state.Set("count", 1)
	e.Flush()

	if len(seen) != 2 || seen[1] != 1 {
		t.Errorf("expected [0 1], got %v", seen)
	}
}

func TestRecEqualWriteDoesNotTrigger(t *testing.T) {
	e := New()
	state := e.Reactive(map[string]any{"count": 5}).(*Rec)

	runs := 0
	e.WatchEffect(func(OnCleanup) {
		runs++
		_ = state.Get("count")
	})

	state.Set("count", 5)
	e.Flush()

	if runs != 1 {
		t.Errorf("write of equal value re-ran effect: %d runs", runs)
	}
}

func TestRecIdentityStable(t *testing.T) {
	e := New()
	raw := map[string]any{"count": 0}

	a := e.Reactive(raw)
	b := e.Reactive(raw)
	if a != b {
		t.Error("observing the same map twice returned distinct wrappers")
	}
	if e.Reactive(a) != a {
		t.Error("observing a wrapper should return it unchanged")
	}
}

func TestRecNestedWrappedOnRead(t *testing.T) {
	e := New()
	state := e.Reactive(map[string]any{
		"user": map[string]any{"name": "ada"},
	}).(*Rec)

	u1, ok := state.Get("user").(*Rec)
	if !ok {
		t.Fatal("nested map was not wrapped on read")
	}
	u2 := state.Get("user").(*Rec)
	if u1 != u2 {
		t.Error("nested wrapper identity not stable across reads")
	}

	var seen []string
	e.WatchEffect(func(OnCleanup) {
		seen = append(seen, state.Get("user").(*Rec).Get("name").(string))
	})

	u1.Set("name", "grace")
	e.Flush()

	if len(seen) != 2 || seen[1] != "grace" {
		t.Errorf("expected [ada grace], got %v", seen)
	}
}

func TestRecDelete(t *testing.T) {
	e := New()
	state := e.Reactive(map[string]any{"k": 1}).(*Rec)

	runs := 0
	e.WatchEffect(func(OnCleanup) {
		runs++
		_ = state.Has("k")
	})

	state.Delete("k")
	e.Flush()
	if runs != 2 {
		t.Errorf("delete of present key did not notify: %d runs", runs)
	}
	if state.Has("k") {
		t.Error("key still present after delete")
	}

	state.Delete("k")
	e.Flush()
	if runs != 2 {
		t.Errorf("delete of absent key notified: %d runs", runs)
	}
}

func TestRecStructuralTracking(t *testing.T) {
	e := New()
	state := e.Reactive(map[string]any{"a": 1}).(*Rec)

	var lens []int
	e.WatchEffect(func(OnCleanup) {
		lens = append(lens, state.Len())
	})

	state.Set("b", 2) // new key
	e.Flush()
	state.Set("a", 10) // existing key, no structural change
	e.Flush()
	state.Delete("b")
	e.Flush()

	if len(lens) != 3 || lens[0] != 1 || lens[1] != 2 || lens[2] != 1 {
		t.Errorf("expected lens [1 2 1], got %v", lens)
	}
}

func TestRecKeysTracksIteration(t *testing.T) {
	e := New()
	state := e.Reactive(map[string]any{"a": 1}).(*Rec)

	runs := 0
	e.WatchEffect(func(OnCleanup) {
		runs++
		_ = state.Keys()
	})

	state.Set("b", 2)
	e.Flush()
	if runs != 2 {
		t.Errorf("key addition did not wake iterator: %d runs", runs)
	}
}

func TestReadonlyRejectsWrites(t *testing.T) {
	e := quietEngine()
	state := e.Reactive(map[string]any{"count": 0}).(*Rec)
	ro := e.Readonly(state).(*Rec)

	ro.Set("count", 99)
	ro.Delete("count")

	if got := state.Get("count").(int); got != 0 {
		t.Errorf("readonly write mutated state: %d", got)
	}
	if !ro.IsReadonly() {
		t.Error("IsReadonly false on readonly view")
	}
	if state.IsReadonly() {
		t.Error("IsReadonly true on writable wrapper")
	}
}

func TestReadonlySeesWritableMutations(t *testing.T) {
	e := New()
	state := e.Reactive(map[string]any{"count": 0}).(*Rec)
	ro := e.Readonly(state).(*Rec)

	var seen []int
	e.WatchEffect(func(OnCleanup) {
		seen = append(seen, ro.Get("count").(int))
	})

	state.Set("count", 7)
	e.Flush()

	if len(seen) != 2 || seen[1] != 7 {
		t.Errorf("readonly view stale after source write: %v", seen)
	}
}

func TestReadonlyNestedIsReadonly(t *testing.T) {
	e := quietEngine()
	state := e.Reactive(map[string]any{
		"inner": map[string]any{"v": 1},
	}).(*Rec)
	ro := e.Readonly(state).(*Rec)

	inner := ro.Get("inner").(*Rec)
	if !inner.IsReadonly() {
		t.Fatal("nested value read through readonly view is writable")
	}
	inner.Set("v", 2)
	if got := state.Get("inner").(*Rec).Get("v").(int); got != 1 {
		t.Errorf("nested readonly write mutated state: %d", got)
	}
}

func TestShallowReactiveLeavesNestedRaw(t *testing.T) {
	e := New()
	nested := map[string]any{"v": 1}
	state := e.ShallowReactive(map[string]any{"inner": nested}).(*Rec)

	if _, ok := state.Get("inner").(map[string]any); !ok {
		t.Error("shallow wrapper converted nested map")
	}

	runs := 0
	e.WatchEffect(func(OnCleanup) {
		runs++
		_ = state.Get("inner")
	})

	state.Set("inner", map[string]any{"v": 2}) // root-level write still observed
	e.Flush()
	if runs != 2 {
		t.Errorf("shallow root write did not trigger: %d runs", runs)
	}
}

func TestRecRefUnwrapping(t *testing.T) {
	e := New()
	count := e.Ref(0)
	state := e.Reactive(map[string]any{"count": count}).(*Rec)

	if got, ok := state.Get("count").(int); !ok || got != 0 {
		t.Fatalf("nested ref not unwrapped on read: %v", state.Get("count"))
	}

	// Plain write to a ref-holding key goes through to the ref.
	state.Set("count", 3)
	if got := count.Value().(int); got != 3 {
		t.Errorf("write-through missed the ref: %d", got)
	}

	// Writing a new ref replaces the slot instead.
	other := e.Ref(100)
	state.Set("count", other)
	if got := state.Get("count").(int); got != 100 {
		t.Errorf("ref replacement not visible: %d", got)
	}
	if got := count.Value().(int); got != 3 {
		t.Errorf("replacement wrote through to old ref: %d", got)
	}
}
