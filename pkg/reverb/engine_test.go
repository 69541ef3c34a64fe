package reverb

import (
	"io"
	"log/slog"
	"sync"
	"testing"
)

// testListener is a simple Listener implementation for testing.
type testListener struct {
	id         uint64
	dirtyCount int
	mu         sync.Mutex
}

func newTestListener(e *Engine) *testListener {
	return &testListener{id: e.nextID()}
}

func (l *testListener) MarkDirty() {
	l.mu.Lock()
	l.dirtyCount++
	l.mu.Unlock()
}

func (l *testListener) ID() uint64 {
	return l.id
}

func (l *testListener) getDirtyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirtyCount
}

// quietEngine suppresses warning output for tests that exercise
// rejected mutations and recovered panics.
func quietEngine(opts ...Option) *Engine {
	opts = append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return New(opts...)
}

func TestTrackRequiresListener(t *testing.T) {
	e := New()
	r := e.Ref(0)

	// Read outside any tracked context
	_ = r.Value()

	snap := e.Snapshot()
	if len(snap.Targets) != 0 {
		t.Errorf("expected empty graph after untracked read, got %d targets", len(snap.Targets))
	}
}

func TestTrackAndTrigger(t *testing.T) {
	e := New()
	r := e.Ref(0)
	listener := newTestListener(e)

	e.pushListener(listener)
	_ = r.Value()
	e.popListener()

	r.SetValue(1)
	if listener.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification, got %d", listener.getDirtyCount())
	}

	// Triggering a key with no subscribers is a no-op
	e.trigger(r, "nonexistent")
	if listener.getDirtyCount() != 1 {
		t.Errorf("unexpected notification from untracked key")
	}
}

func TestTrackDeduplicates(t *testing.T) {
	e := New()
	r := e.Ref(0)
	listener := newTestListener(e)

	e.pushListener(listener)
	_ = r.Value()
	_ = r.Value()
	_ = r.Value()
	e.popListener()

	r.SetValue(1)
	if listener.getDirtyCount() != 1 {
		t.Errorf("duplicate subscriptions: expected 1 notification, got %d", listener.getDirtyCount())
	}
}

func TestUntracked(t *testing.T) {
	e := New()
	r := e.Ref(0)

	runs := 0
	e.WatchEffect(func(OnCleanup) {
		runs++
		e.Untracked(func() {
			_ = r.Value()
		})
	})

	r.SetValue(1)
	e.Flush()

	if runs != 1 {
		t.Errorf("untracked read should not subscribe: expected 1 run, got %d", runs)
	}
}

func TestGraphPrunedOnStop(t *testing.T) {
	e := New()
	state := e.Reactive(map[string]any{"a": 1, "b": 2}).(*Rec)

	stop := e.WatchEffect(func(OnCleanup) {
		_ = state.Get("a")
		_ = state.Get("b")
	})

	snap := e.Snapshot()
	if len(snap.Targets) != 1 {
		t.Fatalf("expected 1 target, got %d", len(snap.Targets))
	}
	if len(snap.Targets[0].Keys) != 2 {
		t.Errorf("expected 2 tracked keys, got %d", len(snap.Targets[0].Keys))
	}

	stop()

	snap = e.Snapshot()
	if len(snap.Targets) != 0 {
		t.Errorf("expected empty graph after stop, got %d targets", len(snap.Targets))
	}
}

func TestSnapshotShape(t *testing.T) {
	e := New()
	state := e.Reactive(map[string]any{"x": 1}).(*Rec)
	count := e.Ref(0)

	e.WatchEffect(func(OnCleanup) {
		_ = state.Get("x")
		_ = count.Value()
	})

	snap := e.Snapshot()
	if len(snap.Targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(snap.Targets))
	}

	kinds := map[string]bool{}
	for _, target := range snap.Targets {
		kinds[target.Kind] = true
		for _, key := range target.Keys {
			if key.Subscribers != 1 {
				t.Errorf("target %d key %q: expected 1 subscriber, got %d",
					target.ID, key.Key, key.Subscribers)
			}
		}
	}
	if !kinds["record"] || !kinds["ref"] {
		t.Errorf("expected record and ref kinds, got %v", kinds)
	}

	// IDs ascend
	for i := 1; i < len(snap.Targets); i++ {
		if snap.Targets[i-1].ID >= snap.Targets[i].ID {
			t.Errorf("targets not sorted by ID")
		}
	}
}

func TestIndependentEngines(t *testing.T) {
	e1 := New()
	e2 := New()

	r1 := e1.Ref(0)

	runs := 0
	e1.WatchEffect(func(OnCleanup) {
		runs++
		_ = r1.Value()
	})

	// Mutating through engine 1 must not involve engine 2's queue.
	r1.SetValue(1)
	if e2.PendingJobs() != 0 {
		t.Errorf("engine 2 queue should be empty, got %d", e2.PendingJobs())
	}
	e2.Flush()
	if runs != 1 {
		t.Errorf("flushing engine 2 should not run engine 1 effects")
	}
	e1.Flush()
	if runs != 2 {
		t.Errorf("expected 2 runs after engine 1 flush, got %d", runs)
	}
}
