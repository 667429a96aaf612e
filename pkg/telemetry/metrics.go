package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides Prometheus metrics for resgen.
type Metrics struct {
	config MetricsConfig

	// Orchestration metrics
	orchestrations        *prometheus.CounterVec
	orchestrationDuration prometheus.Histogram
	generators            *prometheus.CounterVec

	// Task metrics
	tasksExecuted *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
	activeTasks   prometheus.Gauge

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		orchestrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orchestrations_total",
				Help:      "Total number of generator orchestrations by outcome",
			},
			[]string{"outcome"},
		),
		orchestrationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "orchestration_duration_seconds",
				Help:      "Duration of configuration resolution and generator instantiation in seconds",
				Buckets:   buckets,
			},
		),
		generators: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generators_instantiated_total",
				Help:      "Total number of generator instances by family and feature",
			},
			[]string{"family", "feature"},
		),

		tasksExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_executed_total",
				Help:      "Total number of build tasks executed by status",
			},
			[]string{"group", "status"},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_duration_seconds",
				Help:      "Duration of build task execution in seconds",
				Buckets:   buckets,
			},
			[]string{"group"},
		),
		activeTasks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_tasks",
				Help:      "Number of build tasks currently executing",
			},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by classification",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),
	}

	collectors := []prometheus.Collector{
		m.orchestrations,
		m.orchestrationDuration,
		m.generators,
		m.tasksExecuted,
		m.taskDuration,
		m.activeTasks,
		m.errorsByClass,
		m.errorsByCode,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return m, nil
}

// Orchestration Metrics

// RecordOrchestration records a finished orchestration with its outcome.
func (m *Metrics) RecordOrchestration(outcome string, duration time.Duration) {
	if m == nil || m.orchestrations == nil {
		return
	}
	m.orchestrations.WithLabelValues(outcome).Inc()
	m.orchestrationDuration.Observe(duration.Seconds())
}

// RecordGeneratorInstantiated records one generator instance.
func (m *Metrics) RecordGeneratorInstantiated(family, feature string) {
	if m == nil || m.generators == nil {
		return
	}
	m.generators.WithLabelValues(family, feature).Inc()
}

// Task Metrics

// TaskStarted increments the active task gauge.
func (m *Metrics) TaskStarted() {
	if m == nil || m.activeTasks == nil {
		return
	}
	m.activeTasks.Inc()
}

// RecordTaskExecution records a finished task and decrements the active task gauge.
func (m *Metrics) RecordTaskExecution(group, status string, duration time.Duration) {
	if m == nil || m.tasksExecuted == nil {
		return
	}
	m.activeTasks.Dec()
	m.tasksExecuted.WithLabelValues(group, status).Inc()
	m.taskDuration.WithLabelValues(group).Observe(duration.Seconds())
}

// Error Metrics

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m == nil || m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// Registry returns the underlying registry, or nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes the current metrics in text exposition format to the
// configured textfile path. It is a no-op when metrics are disabled or no
// path is configured.
func (m *Metrics) WriteTextfile() error {
	if m == nil || m.registry == nil || m.config.TextfilePath == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(m.config.TextfilePath, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
