package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/show-scraper/internal/browser"
	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/paginate"
	"github.com/pfrederiksen/show-scraper/internal/scraper"
	"github.com/pfrederiksen/show-scraper/internal/venue"
)

// Sites here grow a single page through a "load more" button.

// ElRio is the Tockify agenda embedded on the venue site.
func ElRio(v venue.Venue) scraper.Rule {
	return scraper.NewRule(v.Name, paginate.LoadMore{
		URL: v.Settings.MainURL,
		Page: paginate.Items{
			Selector: ".agendaItem",
			Parse: func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
				date, err := el.TextOf(".d-when")
				if err != nil {
					return event.RawEvent{}, err
				}
				title, err := el.TextOf(".d-title")
				if err != nil {
					return event.RawEvent{}, err
				}
				return event.RawEvent{
					DateText: date,
					Title:    title,
					URL:      absolute(ctx, s, el.OptAttrOf(".d-title a", "href")),
					ImageURL: absolute(ctx, s, el.OptAttrOf(".agendaItem__image__img", "src")),
				}, nil
			},
		},
		Button:    ".btn-loadMore",
		MaxClicks: 4,
		Settle:    2 * time.Second,
	})
}

func ElboRoom(v venue.Venue) scraper.Rule {
	return scraper.NewRule(v.Name, paginate.LoadMore{
		URL: v.Settings.MainURL,
		Page: paginate.Items{
			Selector: "[data-hook='events-card']",
			Parse: func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
				date := el.OptTextOf("[data-hook='short-date']")
				if date == "" {
					return skip("card has no date")
				}
				title, err := el.TextOf("[data-hook='title']")
				if err != nil {
					return event.RawEvent{}, err
				}
				return event.RawEvent{
					DateText: date,
					Title:    title,
					URL:      absolute(ctx, s, el.OptAttrOf("[data-hook='ev-rsvp-button']", "href")),
					ImageURL: absolute(ctx, s, el.OptAttrOf("[data-hook='image']", "src")),
				}, nil
			},
		},
		Button:    "[data-hook='load-more-button']",
		MaxClicks: 4,
		Settle:    2 * time.Second,
	})
}

// Fillmore is a Live Nation page. Third-party frames and ads are removed
// before the button is pressed.
func Fillmore(v venue.Venue) scraper.Rule {
	return scraper.NewRule(v.Name, paginate.Func(func(ctx context.Context, s browser.Session, c *paginate.Collector) error {
		if err := s.Navigate(ctx, v.Settings.MainURL); err != nil {
			return err
		}
		if err := removeAll("iframe", "#adhesion-ad")(ctx, s); err != nil {
			return err
		}
		return paginate.LoadMore{
			Page: paginate.Items{
				Selector: ".listing__item__link",
				Prepare:  scrollToBottom(1),
				Parse: func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
					date, err := el.AttrOf("time", "datetime")
					if err != nil {
						return event.RawEvent{}, err
					}
					title, err := el.TextOf("header h3")
					if err != nil {
						return event.RawEvent{}, err
					}
					return event.RawEvent{
						DateText: date,
						Title:    title,
						URL:      absolute(ctx, s, el.Attr("href")),
						ImageURL: absolute(ctx, s, lazyImage(el)),
					}, nil
				},
				LoadTime: v.Settings.LoadTime,
			},
			Button:    ".show-more",
			MaxClicks: v.Settings.Pages(5),
			Settle:    defaultSettle,
		}.Collect(ctx, s, c)
	}))
}

// Masonic is a Live Nation page too, rendered with Chakra. Only groups with
// a time element are events.
func Masonic(v venue.Venue) scraper.Rule {
	return scraper.NewRule(v.Name, paginate.LoadMore{
		URL: v.Settings.MainURL,
		Page: paginate.Items{
			Selector: "div[role='group']",
			Parse: func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
				if !el.Has("time") {
					return skip("group has no time")
				}
				date, err := el.AttrOf("time", "datetime")
				if err != nil {
					return event.RawEvent{}, err
				}
				title, err := el.TextOf(".chakra-heading")
				if err != nil {
					return event.RawEvent{}, err
				}
				return event.RawEvent{
					DateText: date,
					Title:    title,
					URL:      absolute(ctx, s, el.OptAttrOf("a", "href")),
					ImageURL: absolute(ctx, s, lazyImage(el)),
				}, nil
			},
			LoadTime: v.Settings.LoadTime,
		},
		Button:    ".show-more",
		MaxClicks: v.Settings.Pages(5),
		Settle:    defaultSettle,
	})
}

// lazyImage reads the first img of el. Images not yet scrolled into view
// carry a data: placeholder in src; the srcset candidates are real.
func lazyImage(el *browser.Element) string {
	img, err := el.First("img")
	if err != nil {
		return ""
	}
	src := img.Attr("src")
	if !strings.HasPrefix(src, "data:") {
		return src
	}
	candidates := strings.Split(img.Attr("srcset"), ",")
	for i := len(candidates) - 1; i >= 0; i-- {
		if fields := strings.Fields(candidates[i]); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

// Paramount has to be switched to its list view first. The button is
// disabled once everything is loaded.
func Paramount(v venue.Venue) scraper.Rule {
	return scraper.NewRule(v.Name, paginate.Func(func(ctx context.Context, s browser.Session, c *paginate.Collector) error {
		if err := s.Navigate(ctx, v.Settings.MainURL); err != nil {
			return err
		}
		if err := browser.Pause(ctx, v.Settings.LoadTime); err != nil {
			return err
		}
		toggle, err := browser.QueryOne(ctx, s, "[aria-label='Toggle to List View']")
		if err != nil {
			return err
		}
		if err := toggle.Click(ctx); err != nil {
			return fmt.Errorf("switching to list view: %w", err)
		}
		return paginate.LoadMore{
			Page: paginate.Items{
				Selector: ".eventItem",
				Parse:    parseParamount,
			},
			Button: "#loadMoreEvents",
			Settle: defaultSettle,
		}.Collect(ctx, s, c)
	}))
}

func parseParamount(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
	month, err := el.TextOf(".m-date__month")
	if err != nil {
		return event.RawEvent{}, err
	}
	day, err := el.TextOf(".m-date__day")
	if err != nil {
		return event.RawEvent{}, err
	}
	year, err := el.TextOf(".m-date__year")
	if err != nil {
		return event.RawEvent{}, err
	}
	title, err := el.TextOf(".title")
	if err != nil {
		return event.RawEvent{}, err
	}
	return event.RawEvent{
		DateText: fmt.Sprintf("%s %s, %s", month, day, year),
		Title:    title,
		URL:      absolute(ctx, s, el.OptAttrOf(".title a", "href")),
		ImageURL: absolute(ctx, s, el.OptAttrOf(".thumb img", "src")),
	}, nil
}

// Warfield shows "TBD" for unscheduled entries.
func Warfield(v venue.Venue) scraper.Rule {
	return scraper.NewRule(v.Name, paginate.LoadMore{
		URL: v.Settings.MainURL,
		Page: paginate.Items{
			Selector: "#eventsList .entry",
			Parse: func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
				date, err := el.TextOf(".date")
				if err != nil {
					return event.RawEvent{}, err
				}
				if strings.Contains(date, "TBD") {
					return skip("date to be determined")
				}
				title, err := el.TextOf(".title")
				if err != nil {
					return event.RawEvent{}, err
				}
				url, err := el.AttrOf(".thumb a", "href")
				if err != nil {
					return event.RawEvent{}, err
				}
				return event.RawEvent{
					DateText: date,
					Title:    title,
					URL:      absolute(ctx, s, url),
					ImageURL: absolute(ctx, s, el.OptAttrOf(".thumb img", "src")),
				}, nil
			},
			LoadTime: v.Settings.LoadTime,
		},
		Button:    "#loadMoreEvents",
		MaxClicks: v.Settings.Pages(5),
		Settle:    defaultSettle,
	})
}
