package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides Prometheus metrics for ppactl. A nil *Metrics is a valid no-op.
type Metrics struct {
	config MetricsConfig

	// Run metrics
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	// Remote API metrics
	apiCalls    *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec
	apiErrors   *prometheus.CounterVec

	// Copy metrics
	copiesQueued      prometheus.Counter
	copyBatches       *prometheus.CounterVec
	promotions        *prometheus.CounterVec
	rejectionsIgnored *prometheus.CounterVec
	errorsByClass     *prometheus.CounterVec

	// Build wait metrics
	waitPolls    prometheus.Counter
	waitOutcomes *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) *Metrics {
	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of commands started",
			},
			[]string{"command"},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of commands completed",
			},
			[]string{"command", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of command execution in seconds",
				Buckets:   buckets,
			},
			[]string{"command"},
		),

		apiCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_calls_total",
				Help:      "Total number of archive service calls",
			},
			[]string{"operation"},
		),
		apiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_call_duration_seconds",
				Help:      "Duration of archive service calls in seconds",
				Buckets:   buckets,
			},
			[]string{"operation"},
		),
		apiErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of failed archive service calls",
			},
			[]string{"operation"},
		),

		copiesQueued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "copies_queued_total",
				Help:      "Total number of package copies queued between series",
			},
		),
		copyBatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "copy_batches_total",
				Help:      "Total number of copy batches by outcome",
			},
			[]string{"outcome"},
		),
		promotions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "promotions_total",
				Help:      "Total number of package promotions by outcome",
			},
			[]string{"outcome"},
		),
		rejectionsIgnored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejections_ignored_total",
				Help:      "Total number of remote rejections treated as no-ops",
			},
			[]string{"kind"},
		),
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),

		waitPolls: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wait_polls_total",
				Help:      "Total number of build wait poll iterations",
			},
		),
		waitOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wait_outcomes_total",
				Help:      "Total number of build waits by final state",
			},
			[]string{"state"},
		),
	}

	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.apiCalls,
		m.apiDuration,
		m.apiErrors,
		m.copiesQueued,
		m.copyBatches,
		m.promotions,
		m.rejectionsIgnored,
		m.errorsByClass,
		m.waitPolls,
		m.waitOutcomes,
	)

	return m
}

// Run Metrics

// RecordRunStarted increments the counter for started commands.
func (m *Metrics) RecordRunStarted(command string) {
	if m == nil {
		return
	}
	m.runsStarted.WithLabelValues(command).Inc()
}

// RecordRunCompleted records a completed command with its status and duration.
func (m *Metrics) RecordRunCompleted(command, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runsCompleted.WithLabelValues(command, status).Inc()
	m.runDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// API Metrics

// RecordAPICall records an archive service call with its duration.
func (m *Metrics) RecordAPICall(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.apiCalls.WithLabelValues(operation).Inc()
	m.apiDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAPIError records a failed archive service call.
func (m *Metrics) RecordAPIError(operation string) {
	if m == nil {
		return
	}
	m.apiErrors.WithLabelValues(operation).Inc()
}

// Copy Metrics

// RecordCopyQueued counts one package queued for a series copy.
func (m *Metrics) RecordCopyQueued() {
	if m == nil {
		return
	}
	m.copiesQueued.Inc()
}

// RecordCopyBatch records the outcome of one sync batch.
func (m *Metrics) RecordCopyBatch(outcome string) {
	if m == nil {
		return
	}
	m.copyBatches.WithLabelValues(outcome).Inc()
}

// RecordPromotion records the outcome of one promotion copy.
func (m *Metrics) RecordPromotion(outcome string) {
	if m == nil {
		return
	}
	m.promotions.WithLabelValues(outcome).Inc()
}

// RecordRejectionIgnored counts a rejection that was treated as a no-op.
func (m *Metrics) RecordRejectionIgnored(kind string) {
	if m == nil {
		return
	}
	m.rejectionsIgnored.WithLabelValues(kind).Inc()
}

// RecordError records an error by class.
func (m *Metrics) RecordError(errorClass string) {
	if m == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
}

// Wait Metrics

// RecordWaitPoll counts one build wait poll iteration.
func (m *Metrics) RecordWaitPoll() {
	if m == nil {
		return
	}
	m.waitPolls.Inc()
}

// RecordWaitOutcome records the final state of a build wait.
func (m *Metrics) RecordWaitOutcome(state string) {
	if m == nil {
		return
	}
	m.waitOutcomes.WithLabelValues(state).Inc()
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// WriteTextfile writes all metrics to the configured textfile, if any.
func (m *Metrics) WriteTextfile() error {
	if m == nil || m.config.Textfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(m.config.Textfile, m.registry); err != nil {
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
