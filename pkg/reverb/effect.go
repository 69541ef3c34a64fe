package reverb

import "sync/atomic"

// Effect is a re-runnable computation with tracked dependencies.
// It runs once when created and re-runs (via the scheduler) whenever a
// value it read during its last run changes. Dependencies are cleared
// and re-tracked on every run, so edges from branches that are no
// longer taken are pruned immediately.
type Effect struct {
	id     uint64
	engine *Engine

	fn      func(OnCleanup)
	cleanup func()

	// deps are back-edges into the dependency graph, rebuilt each run.
	deps []*subscriberSet

	// pending is set while the effect sits in the job queue.
	pending atomic.Bool

	// stopped is permanent; a stopped effect never re-queues.
	stopped atomic.Bool
}

// MarkDirty schedules the effect for the next flush. Implements the
// Listener interface. Duplicate notifications before the flush collapse
// into one queued job.
func (ef *Effect) MarkDirty() {
	if ef.stopped.Load() {
		return
	}
	if ef.pending.CompareAndSwap(false, true) {
		ef.engine.enqueue(ef)
	}
}

// ID implements the Listener interface.
func (ef *Effect) ID() uint64 {
	return ef.id
}

// addDep implements the tracked interface. Caller holds the engine
// lock (addDep is only reached from track).
func (ef *Effect) addDep(s *subscriberSet) {
	ef.deps = append(ef.deps, s)
}

// run executes the effect body: previous cleanup first, then dependency
// re-tracking with this effect as the current listener. The listener
// stack is restored even if the body panics.
func (ef *Effect) run() {
	if ef.stopped.Load() {
		return
	}
	ef.pending.Store(false)

	if ef.cleanup != nil {
		cl := ef.cleanup
		ef.cleanup = nil
		cl()
	}

	e := ef.engine
	e.mu.Lock()
	e.dropSubscriber(ef.id, ef.deps)
	ef.deps = ef.deps[:0]
	e.mu.Unlock()

	e.pushListener(ef)
	defer e.popListener()

	ef.fn(func(fn func()) {
		ef.cleanup = fn
	})
}

// stop permanently deactivates the effect: removes it from the job
// queue if still pending, runs the pending cleanup, and unsubscribes it
// from the dependency graph. Idempotent.
func (ef *Effect) stop() {
	if ef.stopped.Swap(true) {
		return
	}

	e := ef.engine
	e.mu.Lock()
	// Splicing the queue mid-flush would shift entries under the flush
	// cursor and skip a live job. The flush loop skips stopped entries
	// itself and clears them at pass end, so only splice outside a
	// flush, where each effect has at most one queue entry.
	if ef.pending.Swap(false) && !e.flushing {
		e.dequeue(ef)
	}
	e.dropSubscriber(ef.id, ef.deps)
	ef.deps = nil
	e.mu.Unlock()

	if ef.cleanup != nil {
		cl := ef.cleanup
		ef.cleanup = nil
		cl()
	}
}

// WatchEffect creates an effect, runs it immediately to establish its
// initial dependencies, and returns a stop function. The body receives
// a cleanup-registration capability; the registered action runs before
// the next execution and on stop. Calling stop more than once is a
// no-op.
//
// A panic during the initial run propagates to the caller (after the
// listener stack is restored); panics during scheduled re-runs surface
// from Flush.
func (e *Engine) WatchEffect(fn func(OnCleanup)) (stop func()) {
	ef := &Effect{
		id:     e.nextID(),
		engine: e,
		fn:     fn,
	}
	ef.run()
	return ef.stop
}
