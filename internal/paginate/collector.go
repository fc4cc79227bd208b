package paginate

import (
	"context"
	"errors"
	"fmt"

	"github.com/pfrederiksen/show-scraper/internal/browser"
	"github.com/pfrederiksen/show-scraper/internal/event"
)

// ErrStop ends pagination early without failing the rule.
var ErrStop = errors.New("stop pagination")

// ErrSkip marks an element that is not an event at all, like a spacer row.
// It is dropped without being recorded as a parse error.
var ErrSkip = errors.New("not an event")

// ErrRejected is returned by an OnEach hook that refuses an event. The event
// is recorded as a parse error and does not count toward the cap.
var ErrRejected = errors.New("event rejected")

// ParseError records an event that was skipped.
type ParseError struct {
	Index int
	Err   error
	// HTML is the element markup, kept for debug logging.
	HTML string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("event %d: %v", e.Index, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseFunc extracts one event from a listing element.
type ParseFunc func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error)

// ParseManyFunc extracts every event of an element that lists several, like
// a calendar cell.
type ParseManyFunc func(ctx context.Context, s browser.Session, el *browser.Element) ([]event.RawEvent, error)

// Collector accumulates the events of one rule run.
type Collector struct {
	limit  int
	onEach func(event.RawEvent) error

	events  []event.RawEvent
	skipped []error
	index   int
}

// NewCollector returns a collector capped at limit events. onEach, when set,
// runs synchronously for every accepted event.
func NewCollector(limit int, onEach func(event.RawEvent) error) *Collector {
	return &Collector{limit: limit, onEach: onEach}
}

// Full reports whether the cap is reached.
func (c *Collector) Full() bool {
	return len(c.events) >= c.limit
}

// Add accepts an event. Events past the cap are dropped.
func (c *Collector) Add(ev event.RawEvent) error {
	if c.Full() {
		return nil
	}
	index := c.index
	c.index++
	c.events = append(c.events, ev)
	if c.onEach != nil {
		if err := c.onEach(ev); err != nil {
			if errors.Is(err, ErrRejected) {
				c.events = c.events[:len(c.events)-1]
				c.skipped = append(c.skipped, &ParseError{Index: index, Err: err})
				return nil
			}
			return fmt.Errorf("event hook: %w", err)
		}
	}
	return nil
}

// Skip records an element that could not be parsed.
func (c *Collector) Skip(err error, html string) {
	c.skipped = append(c.skipped, &ParseError{Index: c.index, Err: err, HTML: html})
	c.index++
}

// Events returns the accepted events in encounter order.
func (c *Collector) Events() []event.RawEvent {
	if c.events == nil {
		return []event.RawEvent{}
	}
	return c.events
}

// ParseErrors returns the skipped events.
func (c *Collector) ParseErrors() []error {
	return c.skipped
}

// Each parses els in order until the collector is full.
func (c *Collector) Each(ctx context.Context, s browser.Session, els browser.Elements, parse ParseFunc) error {
	return c.EachMany(ctx, s, els, func(ctx context.Context, s browser.Session, el *browser.Element) ([]event.RawEvent, error) {
		ev, err := parse(ctx, s, el)
		if err != nil {
			return nil, err
		}
		return []event.RawEvent{ev}, nil
	})
}

// EachMany is Each for elements yielding several events.
func (c *Collector) EachMany(ctx context.Context, s browser.Session, els browser.Elements, parse ParseManyFunc) error {
	for _, el := range els {
		if c.Full() {
			return nil
		}
		evs, err := parse(ctx, s, el)
		if err != nil {
			if fatal(ctx, err) {
				return err
			}
			if !errors.Is(err, ErrSkip) {
				c.Skip(err, el.HTML())
			}
			continue
		}
		for _, ev := range evs {
			if err := c.Add(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// fatal separates errors that end the rule from those that skip one event.
func fatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, ErrStop) ||
		errors.Is(err, browser.ErrSessionClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
