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

// Venues running the TicketWeb WordPress plugin share the .tw-section
// markup.

const twSection = ".tw-section"

func twImageLink(ctx context.Context, s browser.Session, el *browser.Element) (img, url string, err error) {
	img, err = el.AttrOf(".tw-image img", "src")
	if err != nil {
		return "", "", err
	}
	url, err = el.AttrOf(".tw-image a", "href")
	if err != nil {
		return "", "", err
	}
	return absolute(ctx, s, img), absolute(ctx, s, url), nil
}

// AugustHall pages through its calendar with a "next" link.
func AugustHall(v venue.Venue) scraper.Rule {
	return scraper.NewRule(v.Name, paginate.NextControl{
		URL: v.Settings.MainURL,
		Page: paginate.Items{
			Selector: twSection,
			Prepare:  removeAll("#cookie-law-info-bar"),
			Parse:    parseAugustHall,
			LoadTime: v.Settings.LoadTime,
		},
		Next:   ".next a",
		Limit:  v.Settings.Pages(5),
		Settle: defaultSettle,
	})
}

func parseAugustHall(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
	url, err := el.AttrOf(".tw-name a", "href")
	if err != nil {
		return event.RawEvent{}, err
	}
	img, err := styleImage(el, ".background-wrapper")
	if err != nil {
		return event.RawEvent{}, err
	}
	date, err := el.TextOf(".tw-event-date")
	if err != nil {
		return event.RawEvent{}, err
	}
	title, err := el.TextOf(".tw-name")
	if err != nil {
		return event.RawEvent{}, err
	}
	return event.RawEvent{
		DateText: date,
		Title:    title,
		URL:      absolute(ctx, s, url),
		ImageURL: absolute(ctx, s, img),
	}, nil
}

// Bimbos lists every show on one page. Dates carry no year.
func Bimbos(v venue.Venue) scraper.Rule {
	return listing(v, twSection, func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		month, err := el.TextOf(".tm-event-month")
		if err != nil {
			return event.RawEvent{}, err
		}
		day, err := el.TextOf(".tm-event-date")
		if err != nil {
			return event.RawEvent{}, err
		}
		name, err := el.TextOf(".tw-name")
		if err != nil {
			return event.RawEvent{}, err
		}
		img, url, err := twImageLink(ctx, s, el)
		if err != nil {
			return event.RawEvent{}, err
		}
		return event.RawEvent{
			DateText: month + " " + day,
			Title:    join(", ", name, el.OptTextOf(".tw-artist")),
			URL:      url,
			ImageURL: img,
		}, nil
	})
}

// BrickAndMortar dates look like "10.3".
func BrickAndMortar(v venue.Venue) scraper.Rule {
	return listing(v, twSection, func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		date, err := el.TextOf(".tw-event-date")
		if err != nil {
			return event.RawEvent{}, err
		}
		title, err := el.TextOf(".tw-name")
		if err != nil {
			return event.RawEvent{}, err
		}
		img, url, err := twImageLink(ctx, s, el)
		if err != nil {
			return event.RawEvent{}, err
		}
		return event.RawEvent{
			DateText: strings.ReplaceAll(date, ".", "/"),
			Title:    title,
			URL:      url,
			ImageURL: img,
		}, nil
	})
}

func Crybaby(v venue.Venue) scraper.Rule {
	return listing(v, twSection, func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		date, err := el.TextOf(".tw-event-date")
		if err != nil {
			return event.RawEvent{}, err
		}
		title, err := el.TextOf(".tw-name")
		if err != nil {
			return event.RawEvent{}, err
		}
		img, url, err := twImageLink(ctx, s, el)
		if err != nil {
			return event.RawEvent{}, err
		}
		return event.RawEvent{DateText: date, Title: title, URL: url, ImageURL: img}, nil
	})
}
