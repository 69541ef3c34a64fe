package reverb

import "time"

// Instrumentation receives engine lifecycle callbacks. Implementations
// must be fast and must not call back into the engine's mutating API;
// they are invoked outside the engine lock but on the hot path.
//
// The instrument package provides Prometheus and OpenTelemetry
// implementations; the devtools package streams these callbacks to
// inspector clients.
type Instrumentation interface {
	// Trigger fires after a write notified the subscribers of
	// (target, key). subscribers is the snapshot size that was notified.
	Trigger(targetID uint64, key string, subscribers int)

	// EffectRun fires after each job executed during a flush.
	// recovered is non-nil if the effect body panicked.
	EffectRun(effectID uint64, d time.Duration, recovered any)

	// FlushStart fires when a flush pass begins.
	FlushStart()

	// FlushEnd fires when a flush pass completes, with the number of
	// jobs executed and the total pass duration.
	FlushEnd(jobs int, d time.Duration)

	// ReadonlyRejected fires when a mutation against a readonly view
	// was absorbed as a no-op.
	ReadonlyRejected(targetID uint64, key string)

	// BudgetExceeded fires when a flush stops early because the effect
	// budget ran out, with the number of jobs left queued.
	BudgetExceeded(remaining int)
}

// NopInstrumentation is the default Instrumentation; every callback is
// a no-op.
type NopInstrumentation struct{}

func (NopInstrumentation) Trigger(uint64, string, int)          {}
func (NopInstrumentation) EffectRun(uint64, time.Duration, any) {}
func (NopInstrumentation) FlushStart()                          {}
func (NopInstrumentation) FlushEnd(int, time.Duration)          {}
func (NopInstrumentation) ReadonlyRejected(uint64, string)      {}
func (NopInstrumentation) BudgetExceeded(int)                   {}

// MultiInstrumentation fans callbacks out to several implementations in
// order, e.g. metrics plus a devtools stream.
func MultiInstrumentation(ins ...Instrumentation) Instrumentation {
	return multiInstrumentation(ins)
}

type multiInstrumentation []Instrumentation

func (m multiInstrumentation) Trigger(id uint64, key string, subs int) {
	for _, in := range m {
		in.Trigger(id, key, subs)
	}
}

func (m multiInstrumentation) EffectRun(id uint64, d time.Duration, recovered any) {
	for _, in := range m {
		in.EffectRun(id, d, recovered)
	}
}

func (m multiInstrumentation) FlushStart() {
	for _, in := range m {
		in.FlushStart()
	}
}

func (m multiInstrumentation) FlushEnd(jobs int, d time.Duration) {
	for _, in := range m {
		in.FlushEnd(jobs, d)
	}
}

func (m multiInstrumentation) ReadonlyRejected(id uint64, key string) {
	for _, in := range m {
		in.ReadonlyRejected(id, key)
	}
}

func (m multiInstrumentation) BudgetExceeded(remaining int) {
	for _, in := range m {
		in.BudgetExceeded(remaining)
	}
}
