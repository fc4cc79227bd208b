package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/show-scraper/internal/browser"
	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/logger"
	"github.com/pfrederiksen/show-scraper/internal/metrics"
	"github.com/pfrederiksen/show-scraper/internal/paginate"
	"github.com/pfrederiksen/show-scraper/internal/tracing"
)

// Runner executes rules from a registry.
type Runner struct {
	registry *Registry
	sessions browser.Factory

	policy      RunPolicy
	limit       *int
	sink        EventSink
	ruleTimeout time.Duration
	workers     int
	preview     io.Writer
	metrics     *metrics.Metrics
	progress    ProgressFunc
	now         func() time.Time

	mu   sync.Mutex
	done int
}

// NewRunner creates a Runner over registry. Each worker opens one session
// from sessions.
func NewRunner(registry *Registry, sessions browser.Factory, opts ...Option) *Runner {
	r := &Runner{
		registry: registry,
		sessions: sessions,
		policy:   Rescue,
		workers:  1,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run scrapes the named venues, or every enabled one when names is empty.
// The returned Result always holds an entry per selected venue, also when
// err is non-nil.
func (r *Runner) Run(ctx context.Context, names []string) (*Result, error) {
	regs, err := r.registry.Select(names)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	result := newResult(runID, regs)
	result.StartedAt = r.now()
	r.done = 0

	ctx, span := tracing.Start(ctx, "scraper.run", tracing.AttrRunID.String(runID))
	defer span.End()

	workers := r.workers
	if workers > len(regs) {
		workers = len(regs)
	}
	logger.Info("Starting scraper run", logger.Fields{
		"run_id":  runID,
		"rules":   len(regs),
		"workers": workers,
		"policy":  r.policy.String(),
	})

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		var subset []int
		for i := w; i < len(regs); i += workers {
			subset = append(subset, i)
		}
		g.Go(func() error {
			return r.work(gctx, w, runID, regs, subset, result)
		})
	}
	err = g.Wait()

	result.FinishedAt = r.now()
	r.metrics.RunCompleted(result.FinishedAt)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		tracing.RecordError(ctx, err)
	}

	logger.Info("Scraper run finished", logger.Fields{
		"run_id":   runID,
		"events":   result.TotalEvents(),
		"failed":   len(result.Failed()),
		"duration": result.FinishedAt.Sub(result.StartedAt).String(),
	})
	return result, err
}

// work runs the rules at indexes on one session. Each worker writes only the
// entries it owns.
func (r *Runner) work(ctx context.Context, worker int, runID string, regs []Registration, indexes []int, result *Result) error {
	session, err := r.sessions(ctx)
	if err != nil {
		err = fmt.Errorf("opening browser session: %w", err)
		for _, i := range indexes {
			entry := result.entries[i]
			r.metrics.RuleFinished(entry.Venue.Name, metrics.OutcomeFailed, 0, 0, 0)
			if ferr := r.fail(entry, err); ferr != nil {
				return ferr
			}
			r.finished(len(regs), entry)
		}
		return nil
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("Closing browser session failed", logger.Fields{"worker": worker, "error": cerr.Error()})
		}
	}()

	for _, i := range indexes {
		entry := result.entries[i]
		if ctx.Err() != nil {
			entry.Err = ctx.Err()
			r.metrics.RuleFinished(entry.Venue.Name, metrics.OutcomeSkipped, 0, 0, 0)
			continue
		}

		r.runOne(ctx, worker, runID, session, regs[i], entry)
		if entry.Err != nil {
			if err := r.fail(entry, entry.Err); err != nil {
				return err
			}
		}
		r.finished(len(regs), entry)
	}
	return nil
}

// fail applies the policy to a failed entry.
func (r *Runner) fail(entry *Entry, err error) error {
	entry.Err = err
	entry.Events = []event.Event{}
	if r.policy == FailFast {
		return &RuleError{Rule: entry.Venue.Name, Err: err}
	}
	return nil
}

func (r *Runner) finished(total int, entry *Entry) {
	if r.progress == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
	r.progress(r.done, total, entry)
}

func (r *Runner) limitFor(reg Registration) int {
	if r.limit != nil {
		return *r.limit
	}
	return reg.Venue.Settings.Limit()
}

// runOne runs a single rule and fills its entry. It never panics.
func (r *Runner) runOne(ctx context.Context, worker int, runID string, session browser.Session, reg Registration, entry *Entry) {
	name := reg.Venue.Name
	start := time.Now()

	ctx, span := tracing.Start(ctx, "scraper.rule",
		tracing.AttrRunID.String(runID),
		tracing.AttrRule.String(name),
		tracing.AttrWorker.Int(worker),
		tracing.AttrBackend.String(session.Backend()),
	)
	defer span.End()

	if r.ruleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.ruleTimeout)
		defer cancel()
	}

	var (
		events    []event.Event
		invalid   []error
		hookCalls int
	)
	accept := func(raw event.RawEvent) error {
		hookCalls++
		ev, err := event.NormalizeAt(raw, reg.Venue, r.now())
		if err != nil {
			return fmt.Errorf("%w: %w", paginate.ErrRejected, err)
		}
		if r.sink != nil {
			if err := r.sink.OnEvent(ctx, ev); err != nil {
				return fmt.Errorf("event sink: %w", err)
			}
		}
		if r.preview != nil {
			r.mu.Lock()
			fmt.Fprintln(r.preview, ev.Preview())
			r.mu.Unlock()
		}
		events = append(events, ev)
		return nil
	}

	out, err := r.safeRun(ctx, session, reg.Rule, RunOptions{Limit: r.limitFor(reg), OnEach: accept})
	if err == nil && hookCalls == 0 {
		// The rule ignored the hook; normalize its output after the fact.
		for i, raw := range out.Events {
			aerr := accept(raw)
			if errors.Is(aerr, paginate.ErrRejected) {
				invalid = append(invalid, &paginate.ParseError{Index: i, Err: aerr})
				continue
			}
			if aerr != nil {
				err = aerr
				break
			}
		}
	}

	entry.Duration = time.Since(start)
	entry.ParseErrors = append(out.ParseErrors, invalid...)
	for _, pe := range entry.ParseErrors {
		fields := logger.Fields{"rule": name, "run_id": runID, "error": pe.Error()}
		var perr *paginate.ParseError
		if errors.As(pe, &perr) && perr.HTML != "" {
			fields["html"] = perr.HTML
		}
		logger.Debug("Skipped event", fields)
	}

	outcome := metrics.OutcomeOK
	if err != nil {
		entry.Err = err
		outcome = metrics.OutcomeFailed
		if r.policy == Rescue {
			outcome = metrics.OutcomeRescued
		}
		span.SetAttributes(tracing.AttrRescued.Bool(r.policy == Rescue))
		tracing.RecordError(ctx, err)
		logger.Error("Rule failed", logger.Fields{
			"rule":     name,
			"run_id":   runID,
			"policy":   r.policy.String(),
			"duration": entry.Duration.String(),
		}, err)
	} else {
		entry.Events = events
		if entry.Events == nil {
			entry.Events = []event.Event{}
		}
		logger.Info("Rule finished", logger.Fields{
			"rule":     name,
			"run_id":   runID,
			"events":   len(entry.Events),
			"skipped":  len(entry.ParseErrors),
			"duration": entry.Duration.String(),
		})
	}
	span.SetAttributes(
		tracing.AttrEvents.Int(len(entry.Events)),
		tracing.AttrSkipped.Int(len(entry.ParseErrors)),
	)
	r.metrics.RuleFinished(name, outcome, len(entry.Events), len(entry.ParseErrors), entry.Duration)
}

// safeRun converts a panicking rule into an error.
func (r *Runner) safeRun(ctx context.Context, s browser.Session, rule Rule, opts RunOptions) (out Output, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Debug("Rule panicked", logger.Fields{"rule": rule.Name(), "stack": string(debug.Stack())})
			err = fmt.Errorf("%s: panic: %v", rule.Name(), rec)
		}
	}()
	return rule.Run(ctx, s, opts)
}
