package reverb

// targetEntry is one target's slice of the dependency graph.
type targetEntry struct {
	src  source
	keys map[string]*subscriberSet
}

// subscriberSet is an insertion-ordered set of listeners subscribed to
// one (target, key) pair. Order gives deterministic notification within
// a flush; the ids map deduplicates.
type subscriberSet struct {
	entry *targetEntry
	key   string

	subs []Listener
	ids  map[uint64]struct{}
}

// add inserts l, reporting whether it was newly added.
func (s *subscriberSet) add(l Listener) bool {
	id := l.ID()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	s.subs = append(s.subs, l)
	return true
}

func (s *subscriberSet) remove(id uint64) {
	if _, ok := s.ids[id]; !ok {
		return
	}
	delete(s.ids, id)
	for i, sub := range s.subs {
		if sub.ID() == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			break
		}
	}
}

// track records that the current listener depends on (target, key).
// No-op when nothing is tracking. Caller must not hold e.mu.
func (e *Engine) track(target source, key string) {
	e.mu.Lock()
	l := e.currentListener()
	if l == nil {
		e.mu.Unlock()
		return
	}

	id := target.sourceID()
	entry := e.graph[id]
	if entry == nil {
		entry = &targetEntry{src: target, keys: make(map[string]*subscriberSet)}
		e.graph[id] = entry
	}
	set := entry.keys[key]
	if set == nil {
		set = &subscriberSet{entry: entry, key: key, ids: make(map[uint64]struct{})}
		entry.keys[key] = set
	}
	if set.add(l) {
		if t, ok := l.(tracked); ok {
			t.addDep(set)
		}
	}
	e.mu.Unlock()
}

// trigger notifies every subscriber of (target, key). Notification uses
// a snapshot copy so subscriber sets may change while listeners react,
// including re-entrant triggers from computed invalidation.
func (e *Engine) trigger(target source, key string) {
	id := target.sourceID()

	e.mu.Lock()
	entry := e.graph[id]
	if entry == nil {
		e.mu.Unlock()
		return
	}
	set := entry.keys[key]
	if set == nil {
		e.mu.Unlock()
		return
	}
	subs := make([]Listener, len(set.subs))
	copy(subs, set.subs)
	e.mu.Unlock()

	for _, sub := range subs {
		sub.MarkDirty()
	}
	e.instr.Trigger(id, key, len(subs))
}

// dropSubscriber removes a listener from all the subscriber sets it
// tracked into, pruning empty sets and empty target entries. Used both
// for per-run re-tracking and for stop. Caller must hold e.mu.
func (e *Engine) dropSubscriber(id uint64, deps []*subscriberSet) {
	for _, set := range deps {
		set.remove(id)
		if len(set.subs) == 0 {
			delete(set.entry.keys, set.key)
			if len(set.entry.keys) == 0 {
				delete(e.graph, set.entry.src.sourceID())
			}
		}
	}
}
