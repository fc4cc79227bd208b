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

// GreyArea features non-event pages too; those redirect away from /event/.
func GreyArea(v venue.Venue) scraper.Rule {
	return listing(v, ".featured-items .item-link", paginate.Hydrate(paginate.LinkAttr(""), func(ctx context.Context, s browser.Session, _, page *browser.Element) (event.RawEvent, error) {
		here := currentURL(ctx, s, "")
		if !strings.Contains(here, "/event/") {
			return skip("featured item is not an event")
		}
		date, err := page.TextOf(".meta-date")
		if err != nil {
			return event.RawEvent{}, err
		}
		img, _ := styleImage(page, ".full-width-image .image")
		return event.RawEvent{
			DateText: date,
			Title:    pageTitle(ctx, s, page, "h2.heading"),
			URL:      here,
			ImageURL: absolute(ctx, s, img),
			Details:  strings.Join(page.Find(".body-text").Texts(), "\n"),
		}, nil
	}))
}

// UcBerkeleyTheater pairs every listing with a "MORE INFO" link.
func UcBerkeleyTheater(v venue.Venue) scraper.Rule {
	detail := paginate.Hydrate(paginate.LinkAttr(""), func(ctx context.Context, s browser.Session, _, page *browser.Element) (event.RawEvent, error) {
		date, err := page.TextOf(".ed-title .date")
		if err != nil {
			return event.RawEvent{}, err
		}
		title, err := page.TextOf(".eventName2")
		if err != nil {
			return event.RawEvent{}, err
		}
		return event.RawEvent{
			DateText: date,
			Title:    title,
			URL:      currentURL(ctx, s, ""),
			ImageURL: absolute(ctx, s, page.OptAttrOf(".ed-img", "src")),
			Details:  page.OptTextOf("#ed-desc"),
		}, nil
	})
	return listing(v, ".eventListings li a", func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		if el.Text() != "MORE INFO" {
			return skip("not a detail link")
		}
		return detail(ctx, s, el)
	})
}

// framed collects a listing rendered inside the page's first iframe.
func framed(v venue.Venue, page paginate.Items) scraper.Rule {
	return scraper.NewRule(v.Name, paginate.Framed{
		URL:      v.Settings.MainURL,
		Frame:    "iframe",
		LoadTime: v.Settings.LoadTime,
		Inner:    paginate.Static{Page: page},
	})
}

func GreatNorthern(v venue.Venue) scraper.Rule {
	return framed(v, paginate.Items{
		Selector: ".event.row",
		Parse: func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
			date, err := el.TextOf(".date")
			if err != nil {
				return event.RawEvent{}, err
			}
			title, err := el.TextOf(".title")
			if err != nil {
				return event.RawEvent{}, err
			}
			return event.RawEvent{
				DateText: date,
				Title:    title,
				URL:      absolute(ctx, s, el.OptAttrOf(".title a", "href")),
				ImageURL: absolute(ctx, s, el.OptAttrOf(".logo img", "src")),
			}, nil
		},
		LoadTime: v.Settings.LoadTime,
	})
}

func WyldflowrArts(v venue.Venue) scraper.Rule {
	return framed(v, paginate.Items{
		Selector: ".legacy-card",
		Parse: func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
			date, err := el.TextOf(".legacy-date span")
			if err != nil {
				return event.RawEvent{}, err
			}
			title, err := el.TextOf(".info h1")
			if err != nil {
				return event.RawEvent{}, err
			}
			return event.RawEvent{
				DateText: date,
				Title:    title,
				URL:      absolute(ctx, s, el.OptAttrOf(".info a", "href")),
				ImageURL: absolute(ctx, s, el.OptAttrOf("img", "src")),
			}, nil
		},
	})
}
