package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/pfrederiksen/show-scraper/internal/metrics"
)

// ChromeOptions configures a Chrome session.
type ChromeOptions struct {
	Headless  bool
	UserAgent string
	Width     int
	Height    int
	// ExecPath points at a Chrome binary; empty means look it up.
	ExecPath    string
	MinInterval time.Duration
	Metrics     *metrics.Metrics
}

type chromeTab struct {
	ctx    context.Context
	cancel context.CancelFunc
	// gen changes on every navigation, invalidating older handles.
	gen int
}

// Chrome is a Session driving headless Chromium through chromedp.
type Chrome struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	limiter     *rate.Limiter
	metrics     *metrics.Metrics

	tabs   []*chromeTab
	active int
	closed bool
}

// NewChrome starts a browser. The browser lives until Close, independent of
// ctx cancellation after startup.
func NewChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = 1400, 1000
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()
	select {
	case err := <-started:
		if err != nil {
			cancelBrowser()
			cancelAlloc()
			return nil, fmt.Errorf("starting chrome: %w", err)
		}
	case <-ctx.Done():
		cancelBrowser()
		cancelAlloc()
		return nil, ctx.Err()
	}

	return &Chrome{
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		limiter:     newLimiter(opts.MinInterval),
		metrics:     opts.Metrics,
		tabs:        []*chromeTab{{ctx: browserCtx, cancel: cancelBrowser}},
	}, nil
}

func (c *Chrome) Backend() string { return "chrome" }

func (c *Chrome) tab() (*chromeTab, error) {
	if c.closed {
		return nil, ErrSessionClosed
	}
	return c.tabs[c.active], nil
}

// run executes actions on the active tab, bounded by ctx without tying the
// tab's lifetime to it.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	t, err := c.tab()
	if err != nil {
		return err
	}
	return runOn(ctx, t, func(runCtx context.Context) error {
		return chromedp.Run(runCtx, actions...)
	})
}

func runOn(ctx context.Context, t *chromeTab, fn func(context.Context) error) error {
	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := fn(runCtx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	t, err := c.tab()
	if err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	c.metrics.Navigated(c.Backend())
	t.gen++

	return runOn(ctx, t, func(runCtx context.Context) error {
		resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
		if err != nil {
			return fmt.Errorf("loading %s: %w", url, err)
		}
		if resp != nil && resp.Status >= 400 {
			return &StatusError{URL: url, Code: int(resp.Status)}
		}
		if err := chromedp.Run(runCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
			return fmt.Errorf("waiting for %s: %w", url, err)
		}
		return nil
	})
}

func (c *Chrome) Query(ctx context.Context, selector string) (Elements, error) {
	t, err := c.tab()
	if err != nil {
		return nil, err
	}
	var matches []serialMatch
	if err := c.run(ctx, chromedp.Evaluate(call(queryScript, selector), &matches)); err != nil {
		return nil, fmt.Errorf("querying %s: %w", selector, err)
	}

	out := make(Elements, 0, len(matches))
	for _, m := range matches {
		out = append(out, &Element{
			sel:  m.Tree.selection(),
			live: &chromeHandle{session: c, tab: t, gen: t.gen, id: m.ID},
		})
	}
	return out, nil
}

func (c *Chrome) Execute(ctx context.Context, script string, out any) error {
	return c.run(ctx, chromedp.Evaluate(script, out))
}

func (c *Chrome) OpenTab(ctx context.Context) error {
	if c.closed {
		return ErrSessionClosed
	}
	tabCtx, cancel := chromedp.NewContext(c.tabs[0].ctx)
	created := make(chan error, 1)
	go func() { created <- chromedp.Run(tabCtx) }()
	select {
	case err := <-created:
		if err != nil {
			cancel()
			return fmt.Errorf("creating tab: %w", err)
		}
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
	c.tabs = append(c.tabs, &chromeTab{ctx: tabCtx, cancel: cancel})
	c.active = len(c.tabs) - 1
	return nil
}

// CloseTab closes the active tab. The first tab owns the browser and cannot
// be closed.
func (c *Chrome) CloseTab(context.Context) error {
	if c.closed {
		return ErrSessionClosed
	}
	if c.active == 0 {
		return ErrLastTab
	}
	c.tabs[c.active].cancel()
	c.tabs = append(c.tabs[:c.active], c.tabs[c.active+1:]...)
	if c.active >= len(c.tabs) {
		c.active = len(c.tabs) - 1
	}
	return nil
}

func (c *Chrome) ActiveTab() int { return c.active }

func (c *Chrome) SwitchTab(_ context.Context, index int) error {
	if c.closed {
		return ErrSessionClosed
	}
	if index < 0 || index >= len(c.tabs) {
		return fmt.Errorf("%w: %d", ErrNoTab, index)
	}
	c.active = index
	return nil
}

func (c *Chrome) Resize(ctx context.Context, width, height int) error {
	return c.run(ctx, chromedp.EmulateViewport(int64(width), int64(height)))
}

func (c *Chrome) EnterFrame(ctx context.Context, selector string) error {
	var status string
	if err := c.run(ctx, chromedp.Evaluate(call(enterFrameScript, selector), &status)); err != nil {
		return fmt.Errorf("entering frame %s: %w", selector, err)
	}
	switch status {
	case "ok":
		return nil
	case "missing":
		return NotFoundError(selector)
	case "cross-origin":
		return ErrCrossOriginFrame
	}
	return fmt.Errorf("entering frame %s: unexpected status %q", selector, status)
}

func (c *Chrome) ExitFrame(ctx context.Context) error {
	var left bool
	if err := c.run(ctx, chromedp.Evaluate(exitFrameScript, &left)); err != nil {
		return fmt.Errorf("leaving frame: %w", err)
	}
	if !left {
		return ErrNoFrame
	}
	return nil
}

func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var u string
	err := c.run(ctx, chromedp.Location(&u))
	return u, err
}

func (c *Chrome) Title(ctx context.Context) (string, error) {
	var title string
	err := c.run(ctx, chromedp.Title(&title))
	return title, err
}

func (c *Chrome) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	for _, t := range c.tabs[1:] {
		t.cancel()
	}
	err := chromedp.Cancel(c.tabs[0].ctx)
	c.cancelAlloc()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

type chromeHandle struct {
	session *Chrome
	tab     *chromeTab
	gen     int
	id      int
	path    []pathStep
}

type pathStep struct {
	Selector string
	Index    int
}

func (p pathStep) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Selector, p.Index})
}

func (h *chromeHandle) click(ctx context.Context) error {
	if h.session.closed {
		return ErrSessionClosed
	}
	if h.tab.gen != h.gen {
		return ErrStaleElement
	}
	var status string
	err := runOn(ctx, h.tab, func(runCtx context.Context) error {
		return chromedp.Run(runCtx, chromedp.Evaluate(call(clickScript, h.id, h.path), &status))
	})
	if err != nil {
		return fmt.Errorf("clicking element: %w", err)
	}
	switch status {
	case "ok":
		return nil
	case "stale":
		return ErrStaleElement
	case "missing":
		return ErrElementNotFound
	}
	return fmt.Errorf("clicking element: unexpected status %q", status)
}

func (h *chromeHandle) child(selector string, index int, _ *html.Node) handle {
	path := make([]pathStep, len(h.path), len(h.path)+1)
	copy(path, h.path)
	return &chromeHandle{
		session: h.session,
		tab:     h.tab,
		gen:     h.gen,
		id:      h.id,
		path:    append(path, pathStep{Selector: selector, Index: index}),
	}
}
