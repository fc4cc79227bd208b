package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/pfrederiksen/show-scraper/internal/browser"
	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/paginate"
)

// RunOptions bound a single rule run.
type RunOptions struct {
	// Limit caps the number of events.
	Limit int
	// OnEach is called synchronously for every event, before the next one
	// is produced. An error aborts the rule, unless it wraps
	// paginate.ErrRejected, which skips the event.
	OnEach func(event.RawEvent) error
}

// Output is what a rule produced: complete events in page order and the
// events it had to skip.
type Output struct {
	Events      []event.RawEvent
	ParseErrors []error
}

// Rule extracts the events of one venue.
type Rule interface {
	Name() string
	Run(ctx context.Context, s browser.Session, opts RunOptions) (Output, error)
}

type strategyRule struct {
	name     string
	strategy paginate.Strategy
}

// NewRule builds a Rule from a pagination strategy.
func NewRule(name string, strategy paginate.Strategy) Rule {
	return &strategyRule{name: name, strategy: strategy}
}

func (r *strategyRule) Name() string { return r.name }

func (r *strategyRule) Run(ctx context.Context, s browser.Session, opts RunOptions) (Output, error) {
	if opts.Limit <= 0 {
		return Output{Events: []event.RawEvent{}}, nil
	}
	c := paginate.NewCollector(opts.Limit, opts.OnEach)
	err := r.strategy.Collect(ctx, s, c)
	if errors.Is(err, paginate.ErrStop) {
		err = nil
	}
	out := Output{Events: c.Events(), ParseErrors: c.ParseErrors()}
	if err != nil {
		return out, fmt.Errorf("%s: %w", r.name, err)
	}
	return out, nil
}

// RuleError is the error of a rule that failed under FailFast.
type RuleError struct {
	Rule string
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s failed: %v", e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }
