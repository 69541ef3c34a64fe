package reverb

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Engine owns all reactive bookkeeping: the dependency graph, the job
// queue, and the stack of currently running listeners. Engines are
// independent; values created on one engine must not be read or written
// through another.
type Engine struct {
	mu sync.Mutex

	// graph maps target identity -> key -> subscriber set.
	graph map[uint64]*targetEntry

	// stack holds the currently running listeners, innermost last.
	// A nil entry disables tracking (Untracked).
	stack []Listener

	// queue is the insertion-ordered job queue for the next flush.
	queue []*Effect

	// batchDepth tracks nested Batch calls; the outermost exit flushes.
	batchDepth int

	// flushing guards against re-entrant Flush.
	flushing bool

	// recs and lists cache wrappers by backing-store identity so
	// repeated Reactive calls on the same map or slice return the same
	// wrapper. Deep and shallow wrappers are distinct targets, so they
	// cache separately. Entries are never evicted: a wrapped value stays
	// reachable for the engine's lifetime.
	recs         map[uintptr]*Rec
	lists        map[uintptr]*List
	shallowRecs  map[uintptr]*Rec
	shallowLists map[uintptr]*List

	// budget caps job executions per flush; 0 means unlimited.
	budget int

	idc    atomic.Uint64
	logger *slog.Logger
	instr  Instrumentation
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for readonly-rejection warnings,
// recovered effect panics, and budget exhaustion. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithInstrumentation attaches engine lifecycle callbacks.
// Use MultiInstrumentation to attach more than one implementation.
func WithInstrumentation(in Instrumentation) Option {
	return func(e *Engine) {
		if in != nil {
			e.instr = in
		}
	}
}

// WithEffectBudget caps the number of jobs a single flush may execute.
// When the cap is hit the flush stops, logs a warning, and leaves the
// remaining jobs queued for the next flush. Zero (the default) means
// unlimited.
func WithEffectBudget(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.budget = n
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		graph:        make(map[uint64]*targetEntry),
		recs:         make(map[uintptr]*Rec),
		lists:        make(map[uintptr]*List),
		shallowRecs:  make(map[uintptr]*Rec),
		shallowLists: make(map[uintptr]*List),
		logger:       slog.Default(),
		instr:        NopInstrumentation{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// nextID returns the next unique ID for a reactive primitive on this
// engine. IDs are monotonically increasing and never reused.
func (e *Engine) nextID() uint64 {
	return e.idc.Add(1)
}

// pushListener makes l the current listener. Pass nil to disable
// tracking for the dynamic extent.
func (e *Engine) pushListener(l Listener) {
	e.mu.Lock()
	e.stack = append(e.stack, l)
	e.mu.Unlock()
}

// popListener restores the previous listener. Safe to call from a defer
// so a panicking body still unwinds the stack correctly.
func (e *Engine) popListener() {
	e.mu.Lock()
	if n := len(e.stack); n > 0 {
		e.stack[n-1] = nil
		e.stack = e.stack[:n-1]
	}
	e.mu.Unlock()
}

// currentListener returns the top of the listener stack, or nil when no
// tracking is active. Caller must hold e.mu.
func (e *Engine) currentListener() Listener {
	if n := len(e.stack); n > 0 {
		return e.stack[n-1]
	}
	return nil
}

// Untracked runs fn with dependency tracking disabled, so reads inside
// it do not subscribe the current effect.
func (e *Engine) Untracked(fn func()) {
	e.pushListener(nil)
	defer e.popListener()
	fn()
}
