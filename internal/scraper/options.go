package scraper

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/metrics"
)

// RunPolicy decides what a rule failure does to the batch.
type RunPolicy int

const (
	// Rescue records the failure in the rule's entry and carries on.
	Rescue RunPolicy = iota
	// FailFast cancels the batch on the first failure.
	FailFast
)

func (p RunPolicy) String() string {
	switch p {
	case Rescue:
		return "rescue"
	case FailFast:
		return "fail-fast"
	}
	return fmt.Sprintf("RunPolicy(%d)", int(p))
}

// ParsePolicy parses "rescue" or "fail-fast".
func ParsePolicy(s string) (RunPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rescue", "":
		return Rescue, nil
	case "fail-fast", "failfast", "strict":
		return FailFast, nil
	}
	return Rescue, fmt.Errorf("unknown run policy %q", s)
}

// EventSink receives every normalized event as it is produced.
type EventSink interface {
	OnEvent(ctx context.Context, ev event.Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, ev event.Event) error

func (f EventSinkFunc) OnEvent(ctx context.Context, ev event.Event) error { return f(ctx, ev) }

// ProgressFunc is told about every finished rule.
type ProgressFunc func(done, total int, entry *Entry)

// Option configures a Runner.
type Option func(*Runner)

// WithPolicy sets the failure policy. The default is Rescue.
func WithPolicy(p RunPolicy) Option {
	return func(r *Runner) { r.policy = p }
}

// WithLimit overrides every rule's events limit.
func WithLimit(n int) Option {
	return func(r *Runner) { r.limit = &n }
}

// WithEventSink streams normalized events to sink.
func WithEventSink(sink EventSink) Option {
	return func(r *Runner) { r.sink = sink }
}

// WithRuleTimeout bounds each rule run.
func WithRuleTimeout(d time.Duration) Option {
	return func(r *Runner) { r.ruleTimeout = d }
}

// WithWorkers runs rules on n sessions in parallel.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithPreview prints a one-line preview of each event to w.
func WithPreview(w io.Writer) Option {
	return func(r *Runner) { r.preview = w }
}

// WithMetrics records rule outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithProgress reports finished rules.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) { r.progress = fn }
}

// WithClock replaces time.Now for normalization.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}
