package reverb

import "testing"

func TestComputedLazyUntilRead(t *testing.T) {
	e := New()
	calls := 0
	double := e.Computed(func() any {
		calls++
		return 0
	})

	if calls != 0 {
		t.Fatalf("getter ran before first read: %d calls", calls)
	}
	_ = double.Value()
	if calls != 1 {
		t.Errorf("expected 1 call after first read, got %d", calls)
	}
}

func TestComputedMemoizes(t *testing.T) {
	e := New()
	count := e.Ref(1)

	calls := 0
	double := e.Computed(func() any {
		calls++
		return count.Value().(int) * 2
	})

	if double.Value().(int) != 2 || double.Value().(int) != 2 {
		t.Fatal("wrong computed value")
	}
	if calls != 1 {
		t.Errorf("clean re-read recomputed: %d calls", calls)
	}

	count.SetValue(5)
	if double.Value().(int) != 10 {
		t.Error("stale value after upstream write")
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestComputedFreshBeforeFlush(t *testing.T) {
	e := New()
	count := e.Ref(1)
	double := e.Computed(func() any { return count.Value().(int) * 2 })

	_ = double.Value()
	count.SetValue(3)

	// A read between the write and the flush must see the new value.
	if got := double.Value().(int); got != 6 {
		t.Errorf("read before flush returned %d, want 6", got)
	}
}

func TestComputedWakesEffects(t *testing.T) {
	e := New()
	count := e.Ref(1)
	double := e.Computed(func() any { return count.Value().(int) * 2 })

	var seen []int
	e.WatchEffect(func(OnCleanup) {
		seen = append(seen, double.Value().(int))
	})

	count.SetValue(4)
	e.Flush()

	if len(seen) != 2 || seen[1] != 8 {
		t.Errorf("expected [2 8], got %v", seen)
	}
}

func TestComputedChains(t *testing.T) {
	e := New()
	count := e.Ref(1)
	double := e.Computed(func() any { return count.Value().(int) * 2 })
	quad := e.Computed(func() any { return double.Value().(int) * 2 })

	if quad.Value().(int) != 4 {
		t.Fatal("wrong chained value")
	}

	var seen []int
	e.WatchEffect(func(OnCleanup) {
		seen = append(seen, quad.Value().(int))
	})

	count.SetValue(2)
	e.Flush()

	if len(seen) != 2 || seen[1] != 8 {
		t.Errorf("expected [4 8], got %v", seen)
	}
}

func TestComputedRetracksPerRecompute(t *testing.T) {
	e := New()
	useA := e.Ref(true)
	a := e.Ref("a")
	b := e.Ref("b")

	calls := 0
	pick := e.Computed(func() any {
		calls++
		if useA.Value().(bool) {
			return a.Value()
		}
		return b.Value()
	})

	if pick.Value().(string) != "a" {
		t.Fatal("wrong initial pick")
	}
	useA.SetValue(false)
	if pick.Value().(string) != "b" {
		t.Fatal("wrong pick after switch")
	}
	calls = 0

	// a is no longer a dependency.
	a.SetValue("a2")
	_ = pick.Value()
	if calls != 0 {
		t.Errorf("stale dependency caused recompute: %d calls", calls)
	}

	b.SetValue("b2")
	if pick.Value().(string) != "b2" {
		t.Error("live dependency did not invalidate")
	}
}

func TestComputedPeekDoesNotSubscribe(t *testing.T) {
	e := New()
	count := e.Ref(1)
	double := e.Computed(func() any { return count.Value().(int) * 2 })

	runs := 0
	e.WatchEffect(func(OnCleanup) {
		runs++
		_ = double.Peek()
	})

	count.SetValue(2)
	e.Flush()
	if runs != 1 {
		t.Errorf("peek subscribed the effect: %d runs", runs)
	}
	if double.Peek().(int) != 4 {
		t.Error("peek returned stale value")
	}
}

func TestComputedOverRecord(t *testing.T) {
	e := New()
	state := e.Reactive(map[string]any{"first": "Ada", "last": "Lovelace"}).(*Rec)
	full := e.Computed(func() any {
		return state.Get("first").(string) + " " + state.Get("last").(string)
	})

	if full.Value().(string) != "Ada Lovelace" {
		t.Fatal("wrong derived value")
	}

	state.Set("first", "Grace")
	if full.Value().(string) != "Grace Lovelace" {
		t.Error("derived value stale after record write")
	}
}

func TestComputedRepeatedWriteInvalidatesOnce(t *testing.T) {
	e := New()
	count := e.Ref(0)
	double := e.Computed(func() any { return count.Value().(int) * 2 })

	runs := 0
	e.WatchEffect(func(OnCleanup) {
		runs++
		_ = double.Value()
	})

	// Both writes land while the cell is already dirty from the first;
	// the effect still coalesces to a single re-run.
	count.SetValue(1)
	count.SetValue(2)
	e.Flush()

	if runs != 2 {
		t.Errorf("expected one re-run, got %d total runs", runs)
	}
	if double.Value().(int) != 4 {
		t.Error("wrong final value")
	}
}
