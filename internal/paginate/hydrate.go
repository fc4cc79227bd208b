package paginate

import (
	"context"
	"fmt"
	"strings"

	"github.com/pfrederiksen/show-scraper/internal/browser"
	"github.com/pfrederiksen/show-scraper/internal/event"
)

// DetailFunc parses a detail page given the listing element that led to it.
type DetailFunc func(ctx context.Context, s browser.Session, item, page *browser.Element) (event.RawEvent, error)

// Hydrate returns a ParseFunc that opens the item's link in a scoped tab and
// parses the detail page there. link extracts the URL from the item.
func Hydrate(link func(item *browser.Element) (string, error), detail DetailFunc) ParseFunc {
	return func(ctx context.Context, s browser.Session, item *browser.Element) (event.RawEvent, error) {
		href, err := link(item)
		if err != nil {
			return event.RawEvent{}, err
		}
		href = strings.TrimSpace(href)
		if href == "" {
			return event.RawEvent{}, fmt.Errorf("item has no detail link: %w", browser.ErrElementNotFound)
		}
		href, err = Absolute(ctx, s, href)
		if err != nil {
			return event.RawEvent{}, err
		}
		ev, err := browser.InScopedTab(ctx, s, href, func(ctx context.Context, s browser.Session) (event.RawEvent, error) {
			page, err := browser.Document(ctx, s)
			if err != nil {
				return event.RawEvent{}, err
			}
			return detail(ctx, s, item, page)
		})
		if err != nil {
			return event.RawEvent{}, err
		}
		if ev.URL == "" {
			ev.URL = href
		}
		return ev, nil
	}
}

// LinkAttr extracts the href of the first match of selector, or of the item
// itself when selector is empty.
func LinkAttr(selector string) func(*browser.Element) (string, error) {
	return func(item *browser.Element) (string, error) {
		if selector == "" {
			return item.Attr("href"), nil
		}
		return item.AttrOf(selector, "href")
	}
}
