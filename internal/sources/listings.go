package sources

import (
	"context"
	"regexp"
	"strings"

	"github.com/pfrederiksen/show-scraper/internal/browser"
	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/paginate"
	"github.com/pfrederiksen/show-scraper/internal/scraper"
	"github.com/pfrederiksen/show-scraper/internal/venue"
)

// Amados links every event to the home page.
func Amados(v venue.Venue) scraper.Rule {
	return scraper.NewRule(v.Name, paginate.Static{
		URL: v.Settings.MainURL,
		Page: paginate.Items{
			Selector: "[data-aid='CALENDAR_SMALLER_SCREEN_CONTAINER']",
			Prepare: func(ctx context.Context, s browser.Session) error {
				return script(ctx, s, "window.scrollBy(0, 500)")
			},
			Parse: func(_ context.Context, _ browser.Session, el *browser.Element) (event.RawEvent, error) {
				date, err := el.TextOf("[data-aid='CALENDAR_EVENT_DATE']")
				if err != nil {
					return event.RawEvent{}, err
				}
				title, err := el.TextOf("[data-aid='CALENDAR_EVENT_TITLE']")
				if err != nil {
					return event.RawEvent{}, err
				}
				return event.RawEvent{DateText: date, Title: title, URL: v.Website}, nil
			},
			LoadTime: v.Settings.LoadTime,
		},
	})
}

var (
	bandcampDateRe  = regexp.MustCompile(`\((.*?)\)`)
	bandcampTitleRe = regexp.MustCompile(`\) (.*)`)
)

// BandcampOakland is a link page whose entries read "(3/14) Artist".
func BandcampOakland(v venue.Venue) scraper.Rule {
	return listing(v, "[data-testid='StyledContainer']", func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		text := el.Text()
		date := bandcampDateRe.FindStringSubmatch(text)
		title := bandcampTitleRe.FindStringSubmatch(text)
		if date == nil || title == nil {
			return skip("link is not a dated event")
		}
		url, err := el.AttrOf("a", "href")
		if err != nil {
			return event.RawEvent{}, err
		}
		return event.RawEvent{DateText: date[1], Title: title[1], URL: absolute(ctx, s, url)}, nil
	})
}

var (
	bothLinkRe  = regexp.MustCompile(`bottomofthehill\.com/\d+\.html`)
	bothImageRe = regexp.MustCompile(`bottomofthehill\.com/f/\d+fs\.jpg`)
)

// BottomOfTheHill mixes events with spacer rows in one table.
func BottomOfTheHill(v venue.Venue) scraper.Rule {
	return listing(v, "#listings tr", func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		if !el.Has(".date") {
			return skip("row has no date")
		}
		title := join(", ", el.Find(".band").Texts()...)
		if title == "" {
			return skip("row has no bands")
		}
		var date string
		for _, d := range el.Find(".date").Texts() {
			if d != "" {
				date = d
				break
			}
		}
		return event.RawEvent{
			DateText: date,
			Title:    title,
			URL:      matchingAttr(ctx, s, el, "a", "href", bothLinkRe),
			ImageURL: matchingAttr(ctx, s, el, "img", "src", bothImageRe),
		}, nil
	})
}

// matchingAttr returns the first attribute among selector matches that
// matches re, resolved against the page.
func matchingAttr(ctx context.Context, s browser.Session, el *browser.Element, selector, attr string, re *regexp.Regexp) string {
	for _, m := range el.Find(selector) {
		if val := absolute(ctx, s, m.Attr(attr)); re.MatchString(val) {
			return val
		}
	}
	return ""
}

// Cornerstone splits its dates over two elements.
func Cornerstone(v venue.Venue) scraper.Rule {
	return listing(v, ".collection-item", func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		title, err := el.TextOf(".main-title-hover")
		if err != nil {
			return event.RawEvent{}, err
		}
		url, err := el.AttrOf("a", "href")
		if err != nil {
			return event.RawEvent{}, err
		}
		dates := el.Find(".date").Texts()
		if len(dates) > 2 {
			dates = dates[:2]
		}
		img, _ := styleImage(el, ".bg-image-show")
		return event.RawEvent{
			DateText: join(" ", dates...),
			Title:    title,
			URL:      absolute(ctx, s, url),
			ImageURL: absolute(ctx, s, img),
		}, nil
	})
}

// Eagle uses the Modern Events Calendar plugin.
func Eagle(v venue.Venue) scraper.Rule {
	return listing(v, ".mec-event-article", func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		date, err := el.TextOf(".mec-start-date-label")
		if err != nil {
			return event.RawEvent{}, err
		}
		title, err := el.TextOf(".mec-event-title")
		if err != nil {
			return event.RawEvent{}, err
		}
		url := el.OptAttrOf(".mec-color-hover", "href")
		if url == "" {
			url = v.Settings.MainURL
		}
		return event.RawEvent{
			DateText: date,
			Title:    title,
			URL:      absolute(ctx, s, url),
			ImageURL: absolute(ctx, s, el.OptAttrOf(".attachment-thumbnail", "src")),
		}, nil
	})
}

// FoxTheater and GreekTheater share a theme: headliner plus support acts.
func FoxTheater(v venue.Venue) scraper.Rule {
	return listing(v, ".detail-information", func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		date, err := el.AttrOf(".date-show", "content")
		if err != nil {
			return event.RawEvent{}, err
		}
		return theaterEvent(ctx, s, el, date, el.OptAttrOf(".content-information a", "href"))
	})
}

func GreekTheater(v venue.Venue) scraper.Rule {
	return listing(v, ".content-information", func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		date, err := el.AttrOf("[itemprop='startDate']", "content")
		if err != nil {
			return event.RawEvent{}, err
		}
		return theaterEvent(ctx, s, el, date, el.OptAttrOf(".more-info", "href"))
	})
}

func theaterEvent(ctx context.Context, s browser.Session, el *browser.Element, date, url string) (event.RawEvent, error) {
	headliner, err := el.First(".show-title")
	if err != nil {
		return event.RawEvent{}, err
	}
	title := lines(headliner.RawText())
	if support, err := el.First(".support"); err == nil {
		title = join(", ", title, lines(support.RawText()))
	}
	return event.RawEvent{
		DateText: date,
		Title:    title,
		URL:      absolute(ctx, s, url),
		ImageURL: absolute(ctx, s, el.OptAttrOf(".wp-post-image", "src")),
	}, nil
}

// IvyRoom opens events in modals, so every event links to the calendar.
func IvyRoom(v venue.Venue) scraper.Rule {
	return listing(v, ".event-card", func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		date, err := el.TextOf(".time-info")
		if err != nil {
			return event.RawEvent{}, err
		}
		name, err := el.TextOf(".event-name")
		if err != nil {
			return event.RawEvent{}, err
		}
		img, _ := styleImage(el, ".main-img")
		return event.RawEvent{
			DateText: date,
			Title:    join(", ", name, el.OptTextOf(".support")),
			URL:      currentURL(ctx, s, v.Settings.MainURL),
			ImageURL: absolute(ctx, s, img),
		}, nil
	})
}

func Midway(v venue.Venue) scraper.Rule {
	return listing(v, ".category-MusicEvent", func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		date, err := el.TextOf(".event-details .date")
		if err != nil {
			return event.RawEvent{}, err
		}
		title, err := el.TextOf(".title")
		if err != nil {
			return event.RawEvent{}, err
		}
		img, _ := styleImage(el, ".cropped-image")
		return event.RawEvent{
			DateText: date,
			Title:    title,
			URL:      absolute(ctx, s, el.OptAttrOf(".title a", "href")),
			ImageURL: absolute(ctx, s, img),
		}, nil
	})
}

// Regency lists placeholder entries without dates.
func Regency(v venue.Venue) scraper.Rule {
	return scraper.NewRule(v.Name, paginate.LoadMore{
		URL: v.Settings.MainURL,
		Page: paginate.Items{
			Selector: ".entry",
			Parse:    parseCarouselEntry,
			LoadTime: v.Settings.LoadTime,
		},
		Button:    "#loadMoreEvents",
		MaxClicks: v.Settings.Pages(10),
		Settle:    defaultSettle,
	})
}

func parseCarouselEntry(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
	date := el.OptTextOf(".date")
	if date == "" {
		return skip("entry has no date")
	}
	link, err := el.First(".carousel_item_title_small a")
	if err != nil {
		return event.RawEvent{}, err
	}
	return event.RawEvent{
		DateText: date,
		Title:    link.Text(),
		URL:      absolute(ctx, s, link.Attr("href")),
		ImageURL: absolute(ctx, s, el.OptAttrOf(".thumb img", "src")),
	}, nil
}

func Starline(v venue.Venue) scraper.Rule {
	return listing(v, ".eventMainWrapper", func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		date, err := el.TextOf("#eventDate")
		if err != nil {
			return event.RawEvent{}, err
		}
		title, err := el.TextOf("#eventTitle")
		if err != nil {
			return event.RawEvent{}, err
		}
		return event.RawEvent{
			DateText: date,
			Title:    title,
			URL:      absolute(ctx, s, el.OptAttrOf(".eventMoreInfo a", "href")),
			ImageURL: absolute(ctx, s, el.OptAttrOf(".eventListImage", "src")),
		}, nil
	})
}

// SfJazz lazy-loads its calendar while scrolling.
func SfJazz(v venue.Venue) scraper.Rule {
	return scraper.NewRule(v.Name, paginate.Static{
		URL: v.Settings.MainURL,
		Page: paginate.Items{
			Selector: ".calendar-list-view-event-container",
			Prepare:  scrollToBottom(3),
			Parse: func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
				month, err := el.TextOf(".event-date-month")
				if err != nil {
					return event.RawEvent{}, err
				}
				day, err := el.TextOf(".event-date-date")
				if err != nil {
					return event.RawEvent{}, err
				}
				title, err := el.TextOf(".event-info-title")
				if err != nil {
					return event.RawEvent{}, err
				}
				return event.RawEvent{
					DateText: month + " " + day,
					Title:    title,
					URL:      absolute(ctx, s, el.OptAttrOf("a.event-image", "href")),
					ImageURL: absolute(ctx, s, el.OptAttrOf(".event-image img", "src")),
				}, nil
			},
			LoadTime: v.Settings.LoadTime,
		},
	})
}

// StorkClub only renders its list view on wide viewports.
func StorkClub(v venue.Venue) scraper.Rule {
	return scraper.NewRule(v.Name, paginate.Func(func(ctx context.Context, s browser.Session, c *paginate.Collector) error {
		if err := s.Resize(ctx, 2000, 1200); err != nil {
			return err
		}
		return paginate.Static{
			URL: v.Settings.MainURL,
			Page: paginate.Items{
				Selector: ".seetickets-list-event-container",
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
						ImageURL: absolute(ctx, s, el.OptAttrOf(".seetickets-list-view-event-image", "src")),
					}, nil
				},
				LoadTime: v.Settings.LoadTime,
			},
		}.Collect(ctx, s, c)
	}))
}

// TheeParkside cards without an image are promotions.
func TheeParkside(v venue.Venue) scraper.Rule {
	return listing(v, ".vp-event-link", func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		img, err := styleImage(el, ".vp-main-img")
		if err != nil {
			return skip("card has no image")
		}
		date, err := el.TextOf(".vp-month-n-day")
		if err != nil {
			return event.RawEvent{}, err
		}
		title, err := el.TextOf(".vp-event-name")
		if err != nil {
			return event.RawEvent{}, err
		}
		return event.RawEvent{
			DateText: date,
			Title:    title,
			URL:      absolute(ctx, s, el.Attr("href")),
			ImageURL: absolute(ctx, s, img),
		}, nil
	})
}

// Zeitgeist runs a Wix events widget.
func Zeitgeist(v venue.Venue) scraper.Rule {
	return listing(v, "[data-hook='side-by-side-item']", func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
		date, err := el.TextOf("[data-hook='date']")
		if err != nil {
			return event.RawEvent{}, err
		}
		date, _, _ = strings.Cut(date, ",")
		title, err := el.TextOf("[data-hook='title']")
		if err != nil {
			return event.RawEvent{}, err
		}
		return event.RawEvent{
			DateText: date,
			Title:    title,
			URL:      absolute(ctx, s, el.OptAttrOf("[data-hook='ev-rsvp-button']", "href")),
			ImageURL: absolute(ctx, s, el.OptAttrOf("img", "src")),
			Details:  el.OptTextOf("[data-hook='description']"),
		}, nil
	})
}
