// Package reverb provides a fine-grained reactive-dependency engine.
//
// State wrapped by the engine automatically notifies interested
// computations when it changes, without those computations declaring
// their dependencies up front. Dependencies are tracked at runtime:
// reading a reactive value during an effect run or a computed
// recomputation subscribes the current listener to that value's changes.
//
// # Engine
//
// All bookkeeping (the dependency graph, the job queue, the stack of
// currently running listeners) lives on an explicit Engine instance, so
// independent engines can coexist in one process:
//
//	e := reverb.New()
//	state := e.Store(func() map[string]any {
//	    return map[string]any{"count": 0}
//	})
//
// # Observation
//
// Reactive values come in two composite kinds plus single-value cells:
//
//	rec := e.Reactive(map[string]any{"name": "ada"}).(*reverb.Rec)
//	list := e.Reactive([]any{1, 2, 3}).(*reverb.List)
//	count := e.Ref(0)
//	total := e.Computed(func() any { return count.Value().(int) * 2 })
//
// Rec and List expose explicit Get/Set/Delete operations instead of
// intercepting arbitrary property access; reads track, writes trigger.
// Readonly views reject mutation without effect.
//
// # Effects and scheduling
//
// WatchEffect runs its body once immediately and re-runs it when any
// value it read changes. Writes never re-run effects synchronously; they
// coalesce in a deduplicating job queue until the next flush:
//
//	stop := e.WatchEffect(func(onCleanup reverb.OnCleanup) {
//	    fmt.Println("count is", count.Value())
//	})
//	count.SetValue(1)
//	count.SetValue(2)
//	e.Flush() // one re-run, observing 2
//
// Batch groups writes and flushes once when the outermost batch exits.
// Hosts that mutate outside Batch drive the tick themselves via Flush.
//
// # Concurrency
//
// All engine bookkeeping is mutex-guarded, so concurrent goroutines will
// not corrupt the graph. The tracking stack itself models a single
// cooperative caller: interleaving effect runs from multiple goroutines
// at once gives unspecified dependency attribution.
package reverb
