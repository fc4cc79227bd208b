package paginate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/pfrederiksen/show-scraper/internal/browser"
	"github.com/pfrederiksen/show-scraper/internal/event"
)

// site serves numbered listing pages and counts requests per path.
type site struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func newSite(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *site {
	t.Helper()
	s := &site{hits: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.RequestURI()]++
		s.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *site) count(uri string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[uri]
}

func listing(titles ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, title := range titles {
		fmt.Fprintf(&b, `<div class="show"><h2>%s</h2><span class="date">Oct 3 2025</span></div>`, title)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func parseShow(_ context.Context, _ browser.Session, el *browser.Element) (event.RawEvent, error) {
	title, err := el.TextOf("h2")
	if err != nil {
		return event.RawEvent{}, err
	}
	date, err := el.TextOf(".date")
	if err != nil {
		return event.RawEvent{}, err
	}
	return event.RawEvent{Title: title, DateText: date}, nil
}

func titles(evs []event.RawEvent) string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Title
	}
	return strings.Join(out, ",")
}

func pagedSite(t *testing.T, pages map[int][]string) *site {
	return newSite(t, func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("page"))
		items, ok := pages[n]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, listing(items...))
	})
}

func numbered(srv *site, limit int) Numbered {
	return Numbered{
		URL:   func(p int) string { return fmt.Sprintf("%s/list?page=%d", srv.URL, p) },
		Start: 1,
		Limit: limit,
		Page:  Items{Selector: ".show", Parse: parseShow},
	}
}

func TestNumberedCapStopsBeforeNextPage(t *testing.T) {
	srv := pagedSite(t, map[int][]string{1: {"a", "b"}, 2: {"c"}})
	c := NewCollector(2, nil)

	if err := numbered(srv, 0).Collect(context.Background(), browser.NewStatic(browser.StaticOptions{}), c); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got := titles(c.Events()); got != "a,b" {
		t.Errorf("events = %q, want a,b", got)
	}
	if n := srv.count("/list?page=2"); n != 0 {
		t.Errorf("page 2 requested %d times, want 0", n)
	}
}

func TestNumberedCapMidPage(t *testing.T) {
	srv := pagedSite(t, map[int][]string{1: {"a", "b", "c"}})
	c := NewCollector(1, nil)
	if err := numbered(srv, 0).Collect(context.Background(), browser.NewStatic(browser.StaticOptions{}), c); err != nil {
		t.Fatal(err)
	}
	if got := titles(c.Events()); got != "a" {
		t.Errorf("events = %q", got)
	}
}

func TestNumberedTermination(t *testing.T) {
	tests := []struct {
		name  string
		pages map[int][]string
		limit int
		want  string
	}{
		{"stops on 404", map[int][]string{1: {"a"}, 2: {"b"}}, 0, "a,b"},
		{"stops on empty page", map[int][]string{1: {"a"}, 2: {}, 3: {"c"}}, 0, "a"},
		{"stops at page limit", map[int][]string{1: {"a"}, 2: {"b"}, 3: {"c"}}, 2, "a,b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := pagedSite(t, tt.pages)
			c := NewCollector(100, nil)
			if err := numbered(srv, tt.limit).Collect(context.Background(), browser.NewStatic(browser.StaticOptions{}), c); err != nil {
				t.Fatalf("Collect: %v", err)
			}
			if got := titles(c.Events()); got != tt.want {
				t.Errorf("events = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNumberedFirstPageMissingFails(t *testing.T) {
	srv := pagedSite(t, map[int][]string{})
	err := numbered(srv, 0).Collect(context.Background(), browser.NewStatic(browser.StaticOptions{}), NewCollector(10, nil))
	if !browser.IsNotFound(err) {
		t.Errorf("expected a 404 error, got %v", err)
	}
}

func TestNumberedExhausted(t *testing.T) {
	srv := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, "<html><body>404 Not Found</body></html>")
			return
		}
		fmt.Fprint(w, listing("a"))
	})
	n := numbered(srv, 5)
	n.Exhausted = func(ctx context.Context, s browser.Session) (bool, error) {
		body, err := browser.QueryOne(ctx, s, "body")
		if err != nil {
			return false, err
		}
		return strings.HasPrefix(body.Text(), "404 Not Found"), nil
	}
	c := NewCollector(10, nil)
	if err := n.Collect(context.Background(), browser.NewStatic(browser.StaticOptions{}), c); err != nil {
		t.Fatal(err)
	}
	if got := titles(c.Events()); got != "a" {
		t.Errorf("events = %q", got)
	}
	if srv.count("/list?page=3") != 0 {
		t.Error("paged past the exhausted page")
	}
}

func TestSkipAndContinue(t *testing.T) {
	srv := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<div class="show"><h2>a</h2><span class="date">Oct 3</span></div>
			<div class="show"><span class="date">Oct 4</span></div>
			<div class="show"><h2>c</h2><span class="date">Oct 5</span></div>
		</body></html>`)
	})
	c := NewCollector(10, nil)
	st := Static{URL: srv.URL + "/", Page: Items{Selector: ".show", Parse: parseShow}}
	if err := st.Collect(context.Background(), browser.NewStatic(browser.StaticOptions{}), c); err != nil {
		t.Fatal(err)
	}
	if got := titles(c.Events()); got != "a,c" {
		t.Errorf("events = %q", got)
	}
	if len(c.ParseErrors()) != 1 {
		t.Fatalf("expected 1 parse error, got %d", len(c.ParseErrors()))
	}
	var pe *ParseError
	if !errors.As(c.ParseErrors()[0], &pe) || pe.Index != 1 {
		t.Errorf("parse error = %v", c.ParseErrors()[0])
	}
	if !errors.Is(pe, browser.ErrElementNotFound) {
		t.Errorf("parse error should wrap ErrElementNotFound: %v", pe)
	}
	if !strings.Contains(pe.HTML, "Oct 4") {
		t.Errorf("parse error should keep the element html, got %q", pe.HTML)
	}
}

func TestSkipIsNotAParseError(t *testing.T) {
	srv := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<div class="show"><h2>a</h2><span class="date">Oct 3</span></div>
			<div class="show spacer"></div>
			<div class="show"><h2>c</h2><span class="date">Oct 5</span></div>
		</body></html>`)
	})
	parse := func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		if el.Is(".spacer") {
			return event.RawEvent{}, fmt.Errorf("spacer row: %w", ErrSkip)
		}
		return parseShow(ctx, s, el)
	}
	c := NewCollector(10, nil)
	st := Static{URL: srv.URL + "/", Page: Items{Selector: ".show", Parse: parse}}
	if err := st.Collect(context.Background(), browser.NewStatic(browser.StaticOptions{}), c); err != nil {
		t.Fatal(err)
	}
	if got := titles(c.Events()); got != "a,c" {
		t.Errorf("events = %q", got)
	}
	if len(c.ParseErrors()) != 0 {
		t.Errorf("skipped rows should not be parse errors: %v", c.ParseErrors())
	}
}

func TestOnEachErrorAborts(t *testing.T) {
	srv := pagedSite(t, map[int][]string{1: {"a", "b", "c"}})
	boom := errors.New("sink down")
	var seen []string
	c := NewCollector(10, func(ev event.RawEvent) error {
		seen = append(seen, ev.Title)
		if ev.Title == "b" {
			return boom
		}
		return nil
	})
	err := numbered(srv, 0).Collect(context.Background(), browser.NewStatic(browser.StaticOptions{}), c)
	if !errors.Is(err, boom) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if strings.Join(seen, ",") != "a,b" {
		t.Errorf("hook saw %v", seen)
	}
}

func TestRejectedEventsFreeTheirSlot(t *testing.T) {
	srv := pagedSite(t, map[int][]string{1: {"tba", "a", "b", "c"}})
	c := NewCollector(2, func(ev event.RawEvent) error {
		if ev.Title == "tba" {
			return fmt.Errorf("%w: no date yet", ErrRejected)
		}
		return nil
	})
	if err := numbered(srv, 0).Collect(context.Background(), browser.NewStatic(browser.StaticOptions{}), c); err != nil {
		t.Fatal(err)
	}
	if got := titles(c.Events()); got != "a,b" {
		t.Errorf("events = %q, want a,b", got)
	}
	if len(c.ParseErrors()) != 1 || !errors.Is(c.ParseErrors()[0], ErrRejected) {
		t.Errorf("rejection should be recorded, got %v", c.ParseErrors())
	}
}

func TestErrStopEndsLoop(t *testing.T) {
	srv := pagedSite(t, map[int][]string{1: {"a", "stop", "c"}, 2: {"d"}})
	n := numbered(srv, 0)
	n.Page = Items{Selector: ".show", Parse: func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		ev, err := parseShow(ctx, s, el)
		if ev.Title == "stop" {
			return ev, fmt.Errorf("past the listing: %w", ErrStop)
		}
		return ev, err
	}}
	c := NewCollector(10, nil)
	err := n.Collect(context.Background(), browser.NewStatic(browser.StaticOptions{}), c)
	if !errors.Is(err, ErrStop) {
		t.Fatalf("expected ErrStop, got %v", err)
	}
	if got := titles(c.Events()); got != "a" {
		t.Errorf("events = %q", got)
	}
}

// monthSite serves /m/N pages linking to /m/N+1.
func monthSite(t *testing.T) *site {
	return newSite(t, func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/m/"))
		fmt.Fprintf(w, `<html><body>
			<div class="show"><h2>month %d</h2><span class="date">Oct 3</span></div>
			<a class="next" href="/m/%d">next</a>
		</body></html>`, n, n+1)
	})
}

func TestMonthsClicksLimitMinusOne(t *testing.T) {
	srv := monthSite(t)
	m := Months{
		URL:   srv.URL + "/m/1",
		Page:  Items{Selector: ".show", Parse: parseShow},
		Next:  "a.next",
		Limit: 2,
	}
	c := NewCollector(100, nil)
	if err := m.Collect(context.Background(), browser.NewStatic(browser.StaticOptions{}), c); err != nil {
		t.Fatal(err)
	}
	if srv.count("/m/2") != 1 {
		t.Errorf("next clicked %d times, want 1", srv.count("/m/2"))
	}
	if srv.count("/m/3") != 0 {
		t.Error("went past the month limit")
	}
	if got := titles(c.Events()); got != "month 1,month 2" {
		t.Errorf("events = %q", got)
	}
}

func TestMonthsCapSkipsNext(t *testing.T) {
	srv := monthSite(t)
	m := Months{URL: srv.URL + "/m/1", Page: Items{Selector: ".show", Parse: parseShow}, Next: "a.next", Limit: 3}
	c := NewCollector(1, nil)
	if err := m.Collect(context.Background(), browser.NewStatic(browser.StaticOptions{}), c); err != nil {
		t.Fatal(err)
	}
	if srv.count("/m/2") != 0 {
		t.Error("a full collector should not click next")
	}
}

func TestNextControl(t *testing.T) {
	srv := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("p"))
		next := fmt.Sprintf(`<a class="next" href="/?p=%d">next</a>`, n+1)
		if n == 2 {
			next = `<a class="next disabled" href="/?p=3">next</a>`
		}
		fmt.Fprintf(w, `<html><body><div class="show"><h2>p%d</h2><span class="date">Oct 3</span></div>%s</body></html>`, n, next)
	})
	nc := NextControl{
		URL:      srv.URL + "/?p=1",
		Page:     Items{Selector: ".show", Parse: parseShow},
		Next:     "a.next",
		Disabled: func(el *browser.Element) bool { return el.Is(".disabled") },
	}
	c := NewCollector(100, nil)
	if err := nc.Collect(context.Background(), browser.NewStatic(browser.StaticOptions{}), c); err != nil {
		t.Fatal(err)
	}
	if got := titles(c.Events()); got != "p1,p2" {
		t.Errorf("events = %q", got)
	}
}

func TestLoadMore(t *testing.T) {
	srv := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("n"))
		if n == 0 {
			n = 1
		}
		var items []string
		for i := 1; i <= n; i++ {
			items = append(items, fmt.Sprintf(`<div class="show"><h2>s%d</h2><span class="date">Oct 3</span></div>`, i))
		}
		more := ""
		if n < 3 {
			more = fmt.Sprintf(`<a class="more" href="/?n=%d">Load more</a>`, n+1)
		}
		fmt.Fprintf(w, "<html><body>%s%s</body></html>", strings.Join(items, ""), more)
	})

	tests := []struct {
		name      string
		maxClicks int
		want      string
	}{
		{"until absent", 0, "s1,s2,s3"},
		{"max clicks", 1, "s1,s2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := LoadMore{URL: srv.URL + "/", Page: Items{Selector: ".show", Parse: parseShow}, Button: "a.more", MaxClicks: tt.maxClicks}
			c := NewCollector(100, nil)
			if err := l.Collect(context.Background(), browser.NewStatic(browser.StaticOptions{}), c); err != nil {
				t.Fatal(err)
			}
			if got := titles(c.Events()); got != tt.want {
				t.Errorf("events = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHydrateAndFramed(t *testing.T) {
	srv := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, `<html><body><iframe id="cal" src="/cal"></iframe></body></html>`)
		case "/cal":
			fmt.Fprint(w, `<html><body>
				<div class="show"><a href="/e/1">one</a></div>
				<div class="show"><a href="/e/missing">two</a></div>
			</body></html>`)
		case "/e/1":
			fmt.Fprint(w, `<html><body><h1>Band One</h1><time>Nov 1 2025</time></body></html>`)
		default:
			http.NotFound(w, r)
		}
	})

	detail := func(_ context.Context, _ browser.Session, item, page *browser.Element) (event.RawEvent, error) {
		title, err := page.TextOf("h1")
		if err != nil {
			return event.RawEvent{}, err
		}
		return event.RawEvent{Title: title, DateText: page.OptTextOf("time"), Details: item.Text()}, nil
	}
	f := Framed{
		URL:   srv.URL + "/",
		Frame: "#cal",
		Inner: Static{Page: Items{Selector: ".show", Parse: Hydrate(LinkAttr("a"), detail)}},
	}

	s := browser.NewStatic(browser.StaticOptions{})
	c := NewCollector(10, nil)
	if err := f.Collect(context.Background(), s, c); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	evs := c.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	if evs[0].Title != "Band One" || evs[0].URL != srv.URL+"/e/1" || evs[0].Details != "one" {
		t.Errorf("event = %+v", evs[0])
	}
	if len(c.ParseErrors()) != 1 {
		t.Errorf("the 404 detail page should be skipped, got %v", c.ParseErrors())
	}
	if s.ActiveTab() != 0 {
		t.Errorf("active tab = %d after hydration", s.ActiveTab())
	}
}
