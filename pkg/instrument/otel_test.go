package instrument

import (
	"context"
	"testing"
	"time"
)

// The tracing callbacks run against the global tracer provider, which is
// the no-op provider in tests. These exercise the lifecycle plumbing.

func TestTracing_FlushLifecycle(t *testing.T) {
	tr := OpenTelemetry(WithTracerName("test"))

	tr.FlushStart()
	tr.mu.Lock()
	if tr.flushSpan == nil || tr.flushCtx == nil {
		tr.mu.Unlock()
		t.Fatal("expected open flush span after FlushStart")
	}
	tr.mu.Unlock()

	tr.Trigger(1, "count", 2)
	tr.EffectRun(10, time.Millisecond, nil)
	tr.EffectRun(11, time.Millisecond, "boom")
	tr.ReadonlyRejected(2, "count")
	tr.BudgetExceeded(3)
	tr.FlushEnd(2, 5*time.Millisecond)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.flushSpan != nil || tr.flushCtx != nil {
		t.Fatal("expected flush span state cleared after FlushEnd")
	}
}

func TestTracing_CallbacksOutsideFlushAreSafe(t *testing.T) {
	tr := OpenTelemetry()

	// No open flush span: span events are dropped, effect spans parent
	// on the configured context.
	tr.Trigger(1, "count", 1)
	tr.EffectRun(10, time.Millisecond, nil)
	tr.ReadonlyRejected(2, "count")
	tr.BudgetExceeded(0)
	tr.FlushEnd(0, 0)
}

func TestTracing_WithContext(t *testing.T) {
	type ctxKey struct{}
	parent := context.WithValue(context.Background(), ctxKey{}, "root")

	tr := OpenTelemetry(WithContext(parent), WithIncludeKeys(false))
	tr.FlushStart()

	tr.mu.Lock()
	got := tr.flushCtx.Value(ctxKey{})
	tr.mu.Unlock()
	if got != "root" {
		t.Fatalf("flush context does not descend from configured parent: %v", got)
	}

	tr.FlushEnd(0, 0)
}
