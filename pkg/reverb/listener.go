package reverb

// Listener is anything that can be notified when a dependency changes.
// Effects implement it by scheduling a re-run; computed cells implement
// it by marking themselves dirty and propagating to their own
// subscribers.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies has
	// changed.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used for deduplication in subscriber sets and the job queue.
	ID() uint64
}

// tracked is implemented by listeners that keep back-edges to the
// subscriber sets they appear in, so the engine can unsubscribe them in
// one pass before a re-run or on stop.
type tracked interface {
	Listener
	addDep(s *subscriberSet)
}

// OnCleanup registers a cleanup action with the currently running
// effect. The action runs before the effect's next execution and when
// the effect is stopped. Registering again replaces the previous action.
type OnCleanup func(fn func())

// source is implemented by every observable value kind (Rec, List, Ref,
// Computed). The engine keys the dependency graph on the source's
// identity.
type source interface {
	sourceID() uint64
	sourceKind() string
}
