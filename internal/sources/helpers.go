package sources

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pfrederiksen/show-scraper/internal/browser"
	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/paginate"
	"github.com/pfrederiksen/show-scraper/internal/scraper"
	"github.com/pfrederiksen/show-scraper/internal/venue"
)

const defaultSettle = time.Second

var cssURLRe = regexp.MustCompile(`url\(\s*["']?([^"')]+)["']?\s*\)`)

// cssURL extracts the first url(...) of an inline style.
func cssURL(style string) (string, error) {
	m := cssURLRe.FindStringSubmatch(style)
	if m == nil {
		return "", fmt.Errorf("no url in style %q: %w", style, browser.ErrElementNotFound)
	}
	return m[1], nil
}

// styleImage reads a background image from the style of selector.
func styleImage(el *browser.Element, selector string) (string, error) {
	style, err := el.AttrOf(selector, "style")
	if err != nil {
		return "", err
	}
	return cssURL(style)
}

// join concatenates the non-empty parts.
func join(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// lines turns newline-separated text into a single comma-separated line.
func lines(s string) string {
	return join(", ", strings.Split(s, "\n")...)
}

// script runs best-effort page cleanup. Sessions without JavaScript have no
// popups to remove, so ErrUnsupported is ignored.
func script(ctx context.Context, s browser.Session, js string) error {
	err := s.Execute(ctx, js, nil)
	if errors.Is(err, browser.ErrUnsupported) {
		return nil
	}
	return err
}

// removeAll returns a Prepare hook deleting every element matching the
// selectors.
func removeAll(selectors ...string) func(context.Context, browser.Session) error {
	return func(ctx context.Context, s browser.Session) error {
		for _, sel := range selectors {
			js := fmt.Sprintf("document.querySelectorAll(%q).forEach((el) => el.remove())", sel)
			if err := script(ctx, s, js); err != nil {
				return err
			}
		}
		return nil
	}
}

// scrollToBottom triggers lazy loading.
func scrollToBottom(times int) func(context.Context, browser.Session) error {
	return func(ctx context.Context, s browser.Session) error {
		for i := 0; i < times; i++ {
			if err := script(ctx, s, "window.scrollBy(0, document.body.scrollHeight)"); err != nil {
				return err
			}
		}
		return nil
	}
}

// chain runs Prepare hooks in order.
func chain(hooks ...func(context.Context, browser.Session) error) func(context.Context, browser.Session) error {
	return func(ctx context.Context, s browser.Session) error {
		for _, h := range hooks {
			if err := h(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}
}

// listing is the most common rule shape: one page, one selector, one parse
// function per item.
func listing(v venue.Venue, selector string, parse paginate.ParseFunc) scraper.Rule {
	return scraper.NewRule(v.Name, paginate.Static{
		URL:  v.Settings.MainURL,
		Page: paginate.Items{Selector: selector, Parse: parse, LoadTime: v.Settings.LoadTime},
	})
}

// pageTitle reads the first match of selectors on a detail page, falling
// back to the document title.
func pageTitle(ctx context.Context, s browser.Session, page *browser.Element, selectors ...string) string {
	for _, sel := range selectors {
		if t := page.OptTextOf(sel); t != "" {
			return t
		}
	}
	title, _ := s.Title(ctx)
	return strings.TrimSpace(title)
}

// currentURL returns the session URL, or fallback when unknown.
func currentURL(ctx context.Context, s browser.Session, fallback string) string {
	u, err := s.CurrentURL(ctx)
	if err != nil || u == "" {
		return fallback
	}
	return u
}

// absolute resolves ref against the page the session is on.
func absolute(ctx context.Context, s browser.Session, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := paginate.Absolute(ctx, s, ref)
	if err != nil {
		return ref
	}
	return u
}

// required fails with ErrElementNotFound when value is empty.
func required(what, value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%s is empty: %w", what, browser.ErrElementNotFound)
	}
	return value, nil
}

// skip marks an element that is not an event, like a "bar closed" placeholder.
func skip(reason string) (event.RawEvent, error) {
	return event.RawEvent{}, fmt.Errorf("%w: %s", paginate.ErrSkip, reason)
}
