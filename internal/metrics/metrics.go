// Package metrics exposes Prometheus collectors for scraper runs.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "show_scraper"

// Rule outcomes recorded by RuleFinished.
const (
	OutcomeOK      = "ok"
	OutcomeRescued = "rescued"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Metrics groups the collectors of one process on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ruleRuns     *prometheus.CounterVec
	ruleEvents   *prometheus.CounterVec
	parseErrors  *prometheus.CounterVec
	ruleDuration *prometheus.HistogramVec
	navigations  *prometheus.CounterVec
	published    *prometheus.CounterVec
	lastRun      prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ruleRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_runs_total",
			Help:      "Extraction rule invocations by outcome.",
		}, []string{"rule", "outcome"}),
		ruleEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_events_total",
			Help:      "Normalized events produced per rule.",
		}, []string{"rule"}),
		parseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_parse_errors_total",
			Help:      "Events skipped because they failed to parse or normalize.",
		}, []string{"rule"}),
		ruleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rule_duration_seconds",
			Help:      "Wall time of one extraction rule run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{"rule"}),
		navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigations_total",
			Help:      "Page loads issued by browser sessions.",
		}, []string{"backend"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_objects_total",
			Help:      "Objects or rows written by publishers.",
		}, []string{"publisher"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run completed.",
		}),
	}
	m.registry.MustRegister(
		m.ruleRuns, m.ruleEvents, m.parseErrors, m.ruleDuration,
		m.navigations, m.published, m.lastRun,
	)
	return m
}

// RuleFinished records the result of one rule run.
func (m *Metrics) RuleFinished(rule, outcome string, events, parseErrors int, took time.Duration) {
	if m == nil {
		return
	}
	m.ruleRuns.WithLabelValues(rule, outcome).Inc()
	m.ruleEvents.WithLabelValues(rule).Add(float64(events))
	m.parseErrors.WithLabelValues(rule).Add(float64(parseErrors))
	m.ruleDuration.WithLabelValues(rule).Observe(took.Seconds())
}

// Navigated counts one page load on the named backend.
func (m *Metrics) Navigated(backend string) {
	if m == nil {
		return
	}
	m.navigations.WithLabelValues(backend).Inc()
}

// Published counts n objects written by the named publisher.
func (m *Metrics) Published(publisher string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.published.WithLabelValues(publisher).Add(float64(n))
}

// RunCompleted stamps the completion time of a run.
func (m *Metrics) RunCompleted(at time.Time) {
	if m == nil {
		return
	}
	m.lastRun.Set(float64(at.Unix()))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the collectors to path for the node exporter
// textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
