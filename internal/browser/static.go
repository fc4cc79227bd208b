package browser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/pfrederiksen/show-scraper/internal/metrics"
)

// StaticOptions configures a Static session.
type StaticOptions struct {
	UserAgent string
	Timeout   time.Duration
	// MinInterval is the minimum time between two navigations.
	MinInterval time.Duration
	// Client overrides the HTTP client, mostly for tests.
	Client  *resty.Client
	Metrics *metrics.Metrics
}

type staticFrame struct {
	url string
	doc *goquery.Document
}

type staticTab struct {
	url    string
	title  string
	doc    *goquery.Document
	frames []staticFrame
}

// Static is a Session over plain HTTP. It never runs JavaScript.
type Static struct {
	client  *resty.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics

	tabs   []*staticTab
	active int
	closed bool
}

// NewStatic creates a Static session with one empty tab.
func NewStatic(opts StaticOptions) *Static {
	client := opts.Client
	if client == nil {
		client = NewHTTPClient(opts.UserAgent, opts.Timeout)
	}
	return &Static{
		client:  client,
		limiter: newLimiter(opts.MinInterval),
		metrics: opts.Metrics,
		tabs:    []*staticTab{{doc: emptyDocument()}},
	}
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

func emptyDocument() *goquery.Document {
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader("<html><head></head><body></body></html>"))
	return doc
}

func (s *Static) Backend() string { return "static" }

func (s *Static) tab() (*staticTab, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.tabs[s.active], nil
}

func (s *Static) fetch(ctx context.Context, target string) (*goquery.Document, string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}
	s.metrics.Navigated(s.Backend())

	resp, err := s.client.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, "", fmt.Errorf("loading %s: %w", target, err)
	}
	if resp.StatusCode() >= 400 {
		return nil, "", &StatusError{URL: target, Code: resp.StatusCode()}
	}
	final := target
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		final = raw.Request.URL.String()
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, "", fmt.Errorf("parsing %s: %w", target, err)
	}
	doc.Url, _ = url.Parse(final)
	return doc, final, nil
}

func (s *Static) Navigate(ctx context.Context, target string) error {
	t, err := s.tab()
	if err != nil {
		return err
	}
	target, err = s.resolve(t, target)
	if err != nil {
		return err
	}
	doc, final, err := s.fetch(ctx, target)
	if err != nil {
		return err
	}
	t.url = final
	t.doc = doc
	t.title = strings.TrimSpace(doc.Find("title").First().Text())
	t.frames = nil
	return nil
}

func (s *Static) resolve(t *staticTab, ref string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", ref, err)
	}
	base := t.url
	if n := len(t.frames); n > 0 {
		base = t.frames[n-1].url
	}
	if u.IsAbs() || base == "" {
		return u.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return u.String(), nil
	}
	return b.ResolveReference(u).String(), nil
}

func (s *Static) current(t *staticTab) *goquery.Document {
	if n := len(t.frames); n > 0 {
		return t.frames[n-1].doc
	}
	return t.doc
}

func (s *Static) Query(_ context.Context, selector string) (Elements, error) {
	t, err := s.tab()
	if err != nil {
		return nil, err
	}
	found := s.current(t).Find(selector)
	return newElements(found, func(_ int, node *html.Node) handle {
		return &staticHandle{session: s, tab: t, node: node}
	}), nil
}

func (s *Static) Execute(context.Context, string, any) error {
	if s.closed {
		return ErrSessionClosed
	}
	return ErrUnsupported
}

func (s *Static) OpenTab(context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.tabs = append(s.tabs, &staticTab{doc: emptyDocument()})
	s.active = len(s.tabs) - 1
	return nil
}

func (s *Static) CloseTab(context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	if len(s.tabs) == 1 {
		return ErrLastTab
	}
	s.tabs = append(s.tabs[:s.active], s.tabs[s.active+1:]...)
	if s.active >= len(s.tabs) {
		s.active = len(s.tabs) - 1
	}
	return nil
}

func (s *Static) ActiveTab() int { return s.active }

func (s *Static) SwitchTab(_ context.Context, index int) error {
	if s.closed {
		return ErrSessionClosed
	}
	if index < 0 || index >= len(s.tabs) {
		return fmt.Errorf("%w: %d", ErrNoTab, index)
	}
	s.active = index
	return nil
}

// Resize is a no-op: static documents have no viewport.
func (s *Static) Resize(context.Context, int, int) error {
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

func (s *Static) EnterFrame(ctx context.Context, selector string) error {
	t, err := s.tab()
	if err != nil {
		return err
	}
	frame := s.current(t).Find(selector).First()
	if frame.Length() == 0 {
		return NotFoundError(selector)
	}
	src := frame.AttrOr("src", "")
	if src == "" {
		return fmt.Errorf("frame %s has no src: %w", selector, ErrNoFrame)
	}
	target, err := s.resolve(t, src)
	if err != nil {
		return err
	}
	doc, final, err := s.fetch(ctx, target)
	if err != nil {
		return err
	}
	t.frames = append(t.frames, staticFrame{url: final, doc: doc})
	return nil
}

func (s *Static) ExitFrame(context.Context) error {
	t, err := s.tab()
	if err != nil {
		return err
	}
	if len(t.frames) == 0 {
		return ErrNoFrame
	}
	t.frames = t.frames[:len(t.frames)-1]
	return nil
}

func (s *Static) CurrentURL(context.Context) (string, error) {
	t, err := s.tab()
	if err != nil {
		return "", err
	}
	return t.url, nil
}

func (s *Static) Title(context.Context) (string, error) {
	t, err := s.tab()
	if err != nil {
		return "", err
	}
	return t.title, nil
}

func (s *Static) Close() error {
	s.closed = true
	s.tabs = []*staticTab{{doc: emptyDocument()}}
	s.active = 0
	return nil
}

// staticHandle clicks by following the element's link.
type staticHandle struct {
	session *Static
	tab     *staticTab
	node    *html.Node
}

func (h *staticHandle) click(ctx context.Context) error {
	if h.session.closed {
		return ErrSessionClosed
	}
	if h.session.tabs[h.session.active] != h.tab {
		return ErrStaleElement
	}
	sel := goquery.NewDocumentFromNode(h.node).Selection
	for _, attr := range []string{"href", "data-href"} {
		if ref, ok := sel.Attr(attr); ok && ref != "" && !strings.HasPrefix(ref, "#") && !strings.HasPrefix(ref, "javascript:") {
			return h.session.Navigate(ctx, ref)
		}
	}
	// A control wrapping a link, like <li class="next"><a href>.
	if ref, ok := sel.Find("a[href]").First().Attr("href"); ok && ref != "" && !strings.HasPrefix(ref, "#") {
		return h.session.Navigate(ctx, ref)
	}
	return fmt.Errorf("click without a link: %w", ErrUnsupported)
}

func (h *staticHandle) child(_ string, _ int, node *html.Node) handle {
	return &staticHandle{session: h.session, tab: h.tab, node: node}
}
