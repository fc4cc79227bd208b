package sources

import (
	"context"
	"strings"

	"github.com/pfrederiksen/show-scraper/internal/browser"
	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/paginate"
	"github.com/pfrederiksen/show-scraper/internal/scraper"
	"github.com/pfrederiksen/show-scraper/internal/venue"
)

// Eventbrite organizer pages.

const (
	ebTitle    = ".eds-event-card__formatted-name--is-clamped"
	ebSubtitle = ".eds-event-card-content__sub-title"
	ebLink     = ".eds-event-card-content__action-link"
	ebImage    = ".eds-event-card-content__image"
)

func HotelUtah(v venue.Venue) scraper.Rule {
	return listing(v, ".eds-card", func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		date, err := el.TextOf(ebSubtitle)
		if err != nil {
			return event.RawEvent{}, err
		}
		title, err := el.TextOf(ebTitle)
		if err != nil {
			return event.RawEvent{}, err
		}
		url, err := el.AttrOf(ebLink, "href")
		if err != nil {
			return event.RawEvent{}, err
		}
		return event.RawEvent{
			DateText: eventbriteDate(date),
			Title:    title,
			URL:      absolute(ctx, s, url),
			ImageURL: absolute(ctx, s, el.OptAttrOf(ebImage, "src")),
		}, nil
	})
}

// MilkBar repeats recurring events in several sections of the organizer
// page; the first card per day and title wins.
func MilkBar(v venue.Venue) scraper.Rule {
	return scraper.NewRule(v.Name, paginate.Func(func(ctx context.Context, s browser.Session, c *paginate.Collector) error {
		seen := map[string]bool{}
		return paginate.Static{
			URL: v.Settings.MainURL,
			Page: paginate.Items{
				Selector: ".eds-event-card-content",
				ParseMany: func(ctx context.Context, s browser.Session, el *browser.Element) ([]event.RawEvent, error) {
					title := el.OptTextOf(ebTitle)
					if title == "" {
						return nil, nil
					}
					date, err := el.TextOf(ebSubtitle)
					if err != nil {
						return nil, err
					}
					date = eventbriteDate(date)
					key := strings.ToLower(date + "|" + title)
					if seen[key] {
						return nil, nil
					}
					seen[key] = true
					return []event.RawEvent{{
						DateText: date,
						Title:    title,
						URL:      absolute(ctx, s, el.OptAttrOf(ebLink, "href")),
						ImageURL: absolute(ctx, s, el.OptAttrOf(ebImage, "data-src")),
					}}, nil
				},
				LoadTime: v.Settings.LoadTime,
			},
		}.Collect(ctx, s, c)
	}))
}

// eventbriteDate reduces "Sat, Mar 14, 8:00 PM + 2 more events" to the
// date, keeping the relative words ParseDate understands.
func eventbriteDate(text string) string {
	switch {
	case strings.Contains(text, "Today"):
		return "today"
	case strings.Contains(text, "Tomorrow"):
		return "tomorrow"
	}
	text, _, _ = strings.Cut(text, "+")
	return strings.TrimSpace(text)
}
