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

// SeeTickets calendars show several months at once; the useful data lives
// on the ticket pages behind #event_tickets.

// GreatAmericanMusicHall lists bare ticket links on its calendar.
func GreatAmericanMusicHall(v venue.Venue) scraper.Rule {
	return listing(v, "#event_tickets", paginate.Hydrate(paginate.LinkAttr(""), func(ctx context.Context, s browser.Session, _, page *browser.Element) (event.RawEvent, error) {
		date, err := page.TextOf("[itemprop='startDate']")
		if err != nil {
			return event.RawEvent{}, err
		}
		title, err := page.TextOf(".event-h2")
		if err != nil {
			return event.RawEvent{}, err
		}
		return event.RawEvent{
			DateText: date,
			Title:    join(", ", title, page.OptTextOf(".event-bar-left > div:nth-child(2) > h3:nth-child(4)")),
			URL:      currentURL(ctx, s, ""),
			ImageURL: absolute(ctx, s, page.OptAttrOf("[itemprop='image']", "src")),
			Details:  page.OptTextOf(".event-details"),
		}, nil
	}))
}

// TheChapel publishes "Fri 3.13" on the calendar and no year.
func TheChapel(v venue.Venue) scraper.Rule {
	return listing(v, ".calendar-day:has(#event_tickets)", func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		text, err := el.TextOf(".date")
		if err != nil {
			return event.RawEvent{}, err
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return event.RawEvent{}, event.ErrInvalidDate
		}
		date := strings.ReplaceAll(fields[1], ".", "/")
		detail := paginate.Hydrate(paginate.LinkAttr("#event_tickets"), func(ctx context.Context, s browser.Session, _, page *browser.Element) (event.RawEvent, error) {
			img := page.OptAttrOf("[itemprop='image']", "src")
			if img == "" {
				img = page.OptAttrOf("img.listing-hero-image.listing-image--main", "src")
			}
			return event.RawEvent{
				DateText: date,
				Title:    pageTitle(ctx, s, page, "[itemprop='name']", "[data-automation='listing-event-description']"),
				URL:      currentURL(ctx, s, ""),
				ImageURL: absolute(ctx, s, img),
				Details:  page.OptTextOf(".event-details"),
			}, nil
		})
		return detail(ctx, s, el)
	})
}

// RickshawStop links out to several ticket hosts. Eventbrite and SeeTickets
// pages are parsed; anything else gets the calendar's own data.
func RickshawStop(v venue.Venue) scraper.Rule {
	return listing(v, ".calendar-day-event:has(#event_tickets)", func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		fallback := event.RawEvent{DateText: el.OptTextOf(".value-title")}
		if img, err := browser.QueryOne(ctx, s, ".detail_seetickets_image img"); err == nil {
			fallback.ImageURL = absolute(ctx, s, img.Attr("src"))
		}
		detail := paginate.Hydrate(paginate.LinkAttr("#event_tickets"), func(ctx context.Context, s browser.Session, _, page *browser.Element) (event.RawEvent, error) {
			here := currentURL(ctx, s, "")
			switch {
			case strings.Contains(here, "eventbrite"):
				date, err := page.AttrOf(".event-details__data meta", "content")
				if err != nil {
					return event.RawEvent{}, err
				}
				return event.RawEvent{
					DateText: date,
					Title:    pageTitle(ctx, s, page),
					URL:      here,
					ImageURL: absolute(ctx, s, page.OptAttrOf(".listing-hero-image", "src")),
					Details:  page.OptTextOf("[data-automation='about-this-event-sc']"),
				}, nil
			case strings.Contains(here, "wl.seetickets.us"):
				title, err := page.TextOf("[itemprop='name']")
				if err != nil {
					return event.RawEvent{}, err
				}
				if title == "PRIVATE EVENT" {
					return skip("private event")
				}
				date, err := page.AttrOf("[itemprop='startDate']", "datetime")
				if err != nil {
					return event.RawEvent{}, err
				}
				return event.RawEvent{
					DateText: date,
					Title:    title,
					URL:      here,
					ImageURL: absolute(ctx, s, page.OptAttrOf("[itemprop='image']", "src")),
					Details:  page.OptTextOf(".event-details"),
				}, nil
			default:
				ev := fallback
				ev.Title = pageTitle(ctx, s, page)
				ev.URL = here
				return ev, nil
			}
		})
		return detail(ctx, s, el)
	})
}
