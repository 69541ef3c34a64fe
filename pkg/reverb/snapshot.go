package reverb

import "sort"

// Snapshot is a point-in-time view of the dependency graph, shaped for
// serialization by inspector tooling.
type Snapshot struct {
	Targets     []TargetSnapshot `json:"targets"`
	PendingJobs int              `json:"pending_jobs"`
}

// TargetSnapshot describes one observed target and its tracked keys.
type TargetSnapshot struct {
	ID   uint64        `json:"id"`
	Kind string        `json:"kind"`
	Keys []KeySnapshot `json:"keys"`
}

// KeySnapshot describes one tracked key and its subscriber count.
type KeySnapshot struct {
	Key         string `json:"key"`
	Subscribers int    `json:"subscribers"`
}

// Snapshot captures the current dependency graph and queue depth.
// Targets sort by ID and keys by name, so output is stable.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()

	targets := make([]TargetSnapshot, 0, len(e.graph))
	for _, entry := range e.graph {
		ts := TargetSnapshot{
			ID:   entry.src.sourceID(),
			Kind: entry.src.sourceKind(),
			Keys: make([]KeySnapshot, 0, len(entry.keys)),
		}
		for key, set := range entry.keys {
			ts.Keys = append(ts.Keys, KeySnapshot{Key: key, Subscribers: len(set.subs)})
		}
		sort.Slice(ts.Keys, func(i, j int) bool { return ts.Keys[i].Key < ts.Keys[j].Key })
		targets = append(targets, ts)
	}

	pending := 0
	for _, job := range e.queue {
		if !job.stopped.Load() && job.pending.Load() {
			pending++
		}
	}
	e.mu.Unlock()

	sort.Slice(targets, func(i, j int) bool { return targets[i].ID < targets[j].ID })
	return Snapshot{Targets: targets, PendingJobs: pending}
}
