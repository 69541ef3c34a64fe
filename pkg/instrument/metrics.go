// Package instrument provides Prometheus and OpenTelemetry
// implementations of reverb.Instrumentation.
//
// Attach them with reverb.WithInstrumentation, combining several via
// reverb.MultiInstrumentation:
//
//	m := instrument.Prometheus(instrument.WithNamespace("myapp"))
//	e := reverb.New(reverb.WithInstrumentation(m))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
package instrument

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus instrumentation.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "reverb").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for effect and flush duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus instrumentation.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "reverb",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is the Prometheus implementation of reverb.Instrumentation.
type Metrics struct {
	triggersTotal     prometheus.Counter
	notifiedTotal     prometheus.Counter
	effectRunsTotal   *prometheus.CounterVec
	effectDuration    prometheus.Histogram
	flushesTotal      prometheus.Counter
	flushDuration     prometheus.Histogram
	flushJobs         prometheus.Histogram
	readonlyRejects   prometheus.Counter
	budgetExceedances prometheus.Counter
}

// Prometheus creates Prometheus instrumentation for a reactive engine.
//
// Metrics collected:
//   - reverb_triggers_total: Counter of writes that notified subscribers
//   - reverb_notified_subscribers_total: Counter of subscribers notified
//   - reverb_effect_runs_total: Counter of effect runs by status
//   - reverb_effect_duration_seconds: Histogram of effect run duration
//   - reverb_flushes_total: Counter of flush passes
//   - reverb_flush_duration_seconds: Histogram of flush pass duration
//   - reverb_flush_jobs: Histogram of jobs executed per flush
//   - reverb_readonly_rejections_total: Counter of rejected readonly writes
//   - reverb_budget_exceedances_total: Counter of flushes cut off by the
//     effect budget
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		triggersTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "triggers_total",
			Help:        "Total number of writes that notified subscribers",
			ConstLabels: config.ConstLabels,
		}),

		notifiedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notified_subscribers_total",
			Help:        "Total number of subscribers notified by triggers",
			ConstLabels: config.ConstLabels,
		}),

		effectRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Total number of effect runs by status",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		effectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_duration_seconds",
			Help:        "Effect run duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		flushesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of flush passes",
			ConstLabels: config.ConstLabels,
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Flush pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		flushJobs: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_jobs",
			Help:        "Number of jobs executed per flush pass",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),

		readonlyRejects: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "readonly_rejections_total",
			Help:        "Total number of mutations rejected on readonly views",
			ConstLabels: config.ConstLabels,
		}),

		budgetExceedances: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "budget_exceedances_total",
			Help:        "Total number of flushes stopped by the effect budget",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Trigger implements reverb.Instrumentation.
func (m *Metrics) Trigger(targetID uint64, key string, subscribers int) {
	m.triggersTotal.Inc()
	m.notifiedTotal.Add(float64(subscribers))
}

// EffectRun implements reverb.Instrumentation.
func (m *Metrics) EffectRun(effectID uint64, d time.Duration, recovered any) {
	status := "ok"
	if recovered != nil {
		status = "panic"
	}
	m.effectRunsTotal.WithLabelValues(status).Inc()
	m.effectDuration.Observe(d.Seconds())
}

// FlushStart implements reverb.Instrumentation.
func (m *Metrics) FlushStart() {
	m.flushesTotal.Inc()
}

// FlushEnd implements reverb.Instrumentation.
func (m *Metrics) FlushEnd(jobs int, d time.Duration) {
	m.flushJobs.Observe(float64(jobs))
	m.flushDuration.Observe(d.Seconds())
}

// ReadonlyRejected implements reverb.Instrumentation.
func (m *Metrics) ReadonlyRejected(targetID uint64, key string) {
	m.readonlyRejects.Inc()
}

// BudgetExceeded implements reverb.Instrumentation.
func (m *Metrics) BudgetExceeded(remaining int) {
	m.budgetExceedances.Inc()
}
