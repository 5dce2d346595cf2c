package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aescanero/dago-rulekit/pkg/rulekit"
)

// Namespace prefixes every metric name.
const Namespace = "rulekit"

// Metrics tracks rule engine activity.
//
// Metrics:
//   - rulekit_rule_evaluations_total: condition checks by rule and result (matched, skipped, error)
//   - rulekit_rule_applications_total: Apply calls by rule and result (success, error)
//   - rulekit_passes_total: evaluation passes by status (ok, error)
//   - rulekit_pass_duration_seconds: duration of evaluation passes
//   - rulekit_rules_loaded: rules held by the current engine
//   - rulekit_rule_reloads_total: rule set reloads by status (ok, error)
type Metrics struct {
	registry *prometheus.Registry

	evaluationsTotal  *prometheus.CounterVec
	applicationsTotal *prometheus.CounterVec
	passesTotal       *prometheus.CounterVec
	passDuration      prometheus.Histogram
	rulesLoaded       prometheus.Gauge
	reloadsTotal      *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics. A nil registry gets a fresh one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,

		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "rule_evaluations_total",
				Help:      "Total number of rule condition evaluations",
			},
			[]string{"rule", "result"},
		),

		applicationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "rule_applications_total",
				Help:      "Total number of rule applications",
			},
			[]string{"rule", "result"},
		),

		passesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "passes_total",
				Help:      "Total number of evaluation passes",
			},
			[]string{"status"},
		),

		passDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "pass_duration_seconds",
				Help:      "Duration of evaluation passes in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
			},
		),

		rulesLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "rules_loaded",
				Help:      "Number of rules held by the current engine",
			},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "rule_reloads_total",
				Help:      "Total number of rule set reloads",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.evaluationsTotal,
		m.applicationsTotal,
		m.passesTotal,
		m.passDuration,
		m.rulesLoaded,
		m.reloadsTotal,
	)

	return m
}

// Registry returns the registry the metrics are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// RecordEvaluation records one condition check
func (m *Metrics) RecordEvaluation(rule string, matched bool, err error) {
	result := "skipped"
	switch {
	case err != nil:
		result = "error"
	case matched:
		result = "matched"
	}
	m.evaluationsTotal.WithLabelValues(rule, result).Inc()
}

// RecordApplication records one Apply call
func (m *Metrics) RecordApplication(rule string, err error) {
	m.applicationsTotal.WithLabelValues(rule, statusOf(err, "success")).Inc()
}

// RecordPass records a completed evaluation pass
func (m *Metrics) RecordPass(elapsed time.Duration, err error) {
	m.passesTotal.WithLabelValues(statusOf(err, "ok")).Inc()
	m.passDuration.Observe(elapsed.Seconds())
}

// RecordReload records a rule set reload and, on success, the new rule count
func (m *Metrics) RecordReload(rules int, err error) {
	m.reloadsTotal.WithLabelValues(statusOf(err, "ok")).Inc()
	if err == nil {
		m.rulesLoaded.Set(float64(rules))
	}
}

func statusOf(err error, ok string) string {
	if err != nil {
		return "error"
	}
	return ok
}

// observer adapts Metrics to rulekit.Observer
type observer[T any] struct {
	metrics *Metrics
}

// NewObserver returns an engine observer that feeds m
func NewObserver[T any](m *Metrics) rulekit.Observer[T] {
	return &observer[T]{metrics: m}
}

func (o *observer[T]) RuleEvaluated(rule rulekit.Rule[T], matched bool, err error) {
	o.metrics.RecordEvaluation(rule.Name(), matched, err)
}

func (o *observer[T]) RuleApplied(rule rulekit.Rule[T], err error) {
	o.metrics.RecordApplication(rule.Name(), err)
}

func (o *observer[T]) PassCompleted(_ int, elapsed time.Duration, err error) {
	o.metrics.RecordPass(elapsed, err)
}
