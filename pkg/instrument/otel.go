package instrument

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for reactive engines.
const defaultTracerName = "reverb"

// OTelConfig configures the OpenTelemetry instrumentation.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "reverb").
	TracerName string

	// IncludeKeys records the written key on trigger events. Key sets
	// are usually small and static, but disable this if yours are
	// unbounded.
	IncludeKeys bool

	// Context is the parent context for flush spans
	// (default: context.Background()).
	Context context.Context

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry instrumentation.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithIncludeKeys enables/disables recording written keys on spans.
func WithIncludeKeys(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeKeys = include
	}
}

// WithContext sets the parent context for flush spans.
func WithContext(ctx context.Context) OTelOption {
	return func(c *OTelConfig) {
		c.Context = ctx
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName:  defaultTracerName,
		IncludeKeys: true,
		Context:     context.Background(),
	}
}

// Tracing is the OpenTelemetry implementation of reverb.Instrumentation.
// Each flush pass becomes a span; effect runs become child spans with
// their measured duration, and triggers outside a flush become events on
// no span (they are dropped) or on the open flush span.
type Tracing struct {
	config OTelConfig

	mu        sync.Mutex
	flushCtx  context.Context
	flushSpan trace.Span
}

// OpenTelemetry creates tracing instrumentation for a reactive engine.
//
// The tracer uses the global OpenTelemetry tracer provider. Configure it
// in your main() before wiring the engine:
//
//	tp := sdktrace.NewTracerProvider(
//	    sdktrace.WithBatcher(exporter),
//	    sdktrace.WithResource(resource.NewWithAttributes(
//	        semconv.SchemaURL,
//	        semconv.ServiceName("my-app"),
//	    )),
//	)
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) *Tracing {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Resolve tracer from global provider
	config.tracer = otel.Tracer(config.TracerName)

	return &Tracing{config: config}
}

// Trigger implements reverb.Instrumentation. While a flush span is open
// the trigger is recorded as a span event; standalone triggers are not
// traced.
func (t *Tracing) Trigger(targetID uint64, key string, subscribers int) {
	t.mu.Lock()
	span := t.flushSpan
	t.mu.Unlock()
	if span == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.Int64("reverb.target_id", int64(targetID)),
		attribute.Int("reverb.subscribers", subscribers),
	}
	if t.config.IncludeKeys {
		attrs = append(attrs, attribute.String("reverb.key", key))
	}
	span.AddEvent("reverb.trigger", trace.WithAttributes(attrs...))
}

// EffectRun implements reverb.Instrumentation. The run already finished,
// so the child span is created with an explicit start timestamp.
func (t *Tracing) EffectRun(effectID uint64, d time.Duration, recovered any) {
	t.mu.Lock()
	parent := t.flushCtx
	t.mu.Unlock()
	if parent == nil {
		parent = t.config.Context
	}

	end := time.Now()
	_, span := t.config.tracer.Start(
		parent,
		"reverb.effect",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(end.Add(-d)),
		trace.WithAttributes(attribute.Int64("reverb.effect_id", int64(effectID))),
	)
	if recovered != nil {
		span.RecordError(fmt.Errorf("effect panic: %v", recovered))
		span.SetStatus(codes.Error, fmt.Sprintf("%v", recovered))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(end))
}

// FlushStart implements reverb.Instrumentation.
func (t *Tracing) FlushStart() {
	ctx, span := t.config.tracer.Start(
		t.config.Context,
		"reverb.flush",
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	t.mu.Lock()
	t.flushCtx = ctx
	t.flushSpan = span
	t.mu.Unlock()
}

// FlushEnd implements reverb.Instrumentation.
func (t *Tracing) FlushEnd(jobs int, d time.Duration) {
	t.mu.Lock()
	span := t.flushSpan
	t.flushCtx = nil
	t.flushSpan = nil
	t.mu.Unlock()
	if span == nil {
		return
	}

	span.SetAttributes(
		attribute.Int("reverb.jobs", jobs),
		attribute.Float64("reverb.duration_seconds", d.Seconds()),
	)
	span.End()
}

// ReadonlyRejected implements reverb.Instrumentation.
func (t *Tracing) ReadonlyRejected(targetID uint64, key string) {
	t.mu.Lock()
	span := t.flushSpan
	t.mu.Unlock()
	if span == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.Int64("reverb.target_id", int64(targetID)),
	}
	if t.config.IncludeKeys {
		attrs = append(attrs, attribute.String("reverb.key", key))
	}
	span.AddEvent("reverb.readonly_rejected", trace.WithAttributes(attrs...))
}

// BudgetExceeded implements reverb.Instrumentation.
func (t *Tracing) BudgetExceeded(remaining int) {
	t.mu.Lock()
	span := t.flushSpan
	t.mu.Unlock()
	if span == nil {
		return
	}

	span.AddEvent("reverb.budget_exceeded",
		trace.WithAttributes(attribute.Int("reverb.remaining_jobs", remaining)))
	span.SetStatus(codes.Error, "effect budget exceeded")
}
