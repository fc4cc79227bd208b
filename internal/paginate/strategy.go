package paginate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/show-scraper/internal/browser"
)

// Strategy walks a venue's listing and feeds the collector.
type Strategy interface {
	Collect(ctx context.Context, s browser.Session, c *Collector) error
}

// Func adapts a function to Strategy, for flows that fit no other shape.
type Func func(ctx context.Context, s browser.Session, c *Collector) error

func (f Func) Collect(ctx context.Context, s browser.Session, c *Collector) error {
	return f(ctx, s, c)
}

// PageCollector turns the current document into events and reports how
// many listing items it saw.
type PageCollector interface {
	CollectPage(ctx context.Context, s browser.Session, c *Collector) (int, error)
}

// PageFunc adapts a function to PageCollector.
type PageFunc func(ctx context.Context, s browser.Session, c *Collector) (int, error)

func (f PageFunc) CollectPage(ctx context.Context, s browser.Session, c *Collector) (int, error) {
	return f(ctx, s, c)
}

// Items is the common page shape: a selector for listing items and a parse
// function for each of them.
type Items struct {
	Selector  string
	Parse     ParseFunc
	ParseMany ParseManyFunc

	// Prepare runs before the query, e.g. to dismiss a banner.
	Prepare func(ctx context.Context, s browser.Session) error
	// LoadTime is the minimum wait before querying. With WaitFor set it is
	// instead the longest wait for the selector to appear.
	LoadTime time.Duration
	WaitFor  bool
}

func (it Items) CollectPage(ctx context.Context, s browser.Session, c *Collector) (int, error) {
	if it.Prepare != nil {
		if err := it.Prepare(ctx, s); err != nil {
			return 0, fmt.Errorf("preparing page: %w", err)
		}
	}

	var (
		els browser.Elements
		err error
	)
	switch {
	case it.WaitFor:
		timeout := it.LoadTime
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		els, err = browser.WaitFor(ctx, s, it.Selector, timeout)
		if errors.Is(err, browser.ErrWaitTimeout) {
			return 0, nil
		}
	default:
		if err := browser.Pause(ctx, it.LoadTime); err != nil {
			return 0, err
		}
		els, err = s.Query(ctx, it.Selector)
	}
	if err != nil {
		return 0, err
	}

	if it.ParseMany != nil {
		return len(els), c.EachMany(ctx, s, els, it.ParseMany)
	}
	return len(els), c.Each(ctx, s, els, it.Parse)
}

func navigate(ctx context.Context, s browser.Session, url string) error {
	if url == "" {
		return nil
	}
	return s.Navigate(ctx, url)
}

// Static loads one page and collects it.
type Static struct {
	// URL is loaded first; empty means the current document.
	URL  string
	Page PageCollector
}

func (st Static) Collect(ctx context.Context, s browser.Session, c *Collector) error {
	if c.Full() {
		return nil
	}
	if err := navigate(ctx, s, st.URL); err != nil {
		return err
	}
	_, err := st.Page.CollectPage(ctx, s, c)
	return err
}

// Numbered pages through URLs carrying a page index.
type Numbered struct {
	URL   func(page int) string
	Page  PageCollector
	Start int
	// Limit caps the number of pages; zero means no cap.
	Limit int
	// Exhausted reports the end of the listing from the loaded page.
	Exhausted func(ctx context.Context, s browser.Session) (bool, error)
}

func (n Numbered) Collect(ctx context.Context, s browser.Session, c *Collector) error {
	for i := 0; n.Limit <= 0 || i < n.Limit; i++ {
		if c.Full() {
			return nil
		}
		err := s.Navigate(ctx, n.URL(n.Start+i))
		if browser.IsNotFound(err) && i > 0 {
			return nil
		}
		if err != nil {
			return err
		}
		if n.Exhausted != nil {
			done, err := n.Exhausted(ctx, s)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
		found, err := n.Page.CollectPage(ctx, s, c)
		if err != nil {
			return err
		}
		if found == 0 {
			return nil
		}
	}
	return nil
}

// NextControl collects a page, then clicks a "next" control until it is
// missing or disabled.
type NextControl struct {
	URL  string
	Page PageCollector
	Next string
	// Disabled reports a present but inactive control.
	Disabled func(el *browser.Element) bool
	Limit    int
	// Settle is waited after each click.
	Settle time.Duration
}

func (n NextControl) Collect(ctx context.Context, s browser.Session, c *Collector) error {
	if err := navigate(ctx, s, n.URL); err != nil {
		return err
	}
	for i := 0; ; i++ {
		if _, err := n.Page.CollectPage(ctx, s, c); err != nil {
			return err
		}
		if c.Full() || (n.Limit > 0 && i+1 >= n.Limit) {
			return nil
		}
		clicked, err := clickControl(ctx, s, n.Next, 0, n.Disabled)
		if err != nil || !clicked {
			return err
		}
		if err := browser.Pause(ctx, n.Settle); err != nil {
			return err
		}
	}
}

// LoadMore clicks a "load more" button until it is gone, then collects the
// grown page once.
type LoadMore struct {
	URL       string
	Page      PageCollector
	Button    string
	Disabled  func(el *browser.Element) bool
	MaxClicks int
	Settle    time.Duration
}

func (l LoadMore) Collect(ctx context.Context, s browser.Session, c *Collector) error {
	if err := navigate(ctx, s, l.URL); err != nil {
		return err
	}
	for i := 0; l.MaxClicks <= 0 || i < l.MaxClicks; i++ {
		clicked, err := clickControl(ctx, s, l.Button, 0, l.Disabled)
		if err != nil {
			return err
		}
		if !clicked {
			break
		}
		if err := browser.Pause(ctx, l.Settle); err != nil {
			return err
		}
	}
	_, err := l.Page.CollectPage(ctx, s, c)
	return err
}

// Months walks a month calendar: collect the shown month, then click
// "next month", Limit-1 times at most.
type Months struct {
	URL  string
	Page PageCollector
	Next string
	// NextIndex picks among several matches of Next.
	NextIndex int
	Limit     int
	Settle    time.Duration
}

func (m Months) Collect(ctx context.Context, s browser.Session, c *Collector) error {
	if err := navigate(ctx, s, m.URL); err != nil {
		return err
	}
	limit := m.Limit
	if limit <= 0 {
		limit = 1
	}
	for i := 0; i < limit; i++ {
		if i > 0 {
			clicked, err := clickControl(ctx, s, m.Next, m.NextIndex, nil)
			if err != nil || !clicked {
				return err
			}
			if err := browser.Pause(ctx, m.Settle); err != nil {
				return err
			}
		}
		if _, err := m.Page.CollectPage(ctx, s, c); err != nil {
			return err
		}
		if c.Full() {
			return nil
		}
	}
	return nil
}

// Framed runs Inner inside the iframe matched by Frame on URL.
type Framed struct {
	URL   string
	Frame string
	// LoadTime bounds the wait for the frame element.
	LoadTime time.Duration
	Inner    Strategy
}

func (f Framed) Collect(ctx context.Context, s browser.Session, c *Collector) error {
	if err := navigate(ctx, s, f.URL); err != nil {
		return err
	}
	if f.LoadTime > 0 {
		if _, err := browser.WaitFor(ctx, s, f.Frame, f.LoadTime); err != nil {
			return err
		}
	}
	return browser.InFrame(ctx, s, f.Frame, func(ctx context.Context, s browser.Session) error {
		return f.Inner.Collect(ctx, s, c)
	})
}

// clickControl clicks the index-th element matching selector. It reports
// false when the control is absent or disabled, the normal end of
// pagination.
func clickControl(ctx context.Context, s browser.Session, selector string, index int, disabled func(*browser.Element) bool) (bool, error) {
	found, err := s.Query(ctx, selector)
	if err != nil {
		return false, err
	}
	if len(found) <= index {
		return false, nil
	}
	control := found[index]
	if isDisabled(control) || (disabled != nil && disabled(control)) {
		return false, nil
	}
	if err := control.Click(ctx); err != nil {
		return false, fmt.Errorf("clicking %s: %w", selector, err)
	}
	return true, nil
}

func isDisabled(el *browser.Element) bool {
	return el.HasAttr("disabled") || el.Attr("aria-disabled") == "true"
}
