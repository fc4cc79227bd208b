package sources

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/show-scraper/internal/browser"
	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/paginate"
	"github.com/pfrederiksen/show-scraper/internal/scraper"
	"github.com/pfrederiksen/show-scraper/internal/venue"
)

// Month-grid calendars, walked with a "next month" control.

func months(v venue.Venue, page paginate.PageCollector, next string) paginate.Months {
	return paginate.Months{
		URL:    v.Settings.MainURL,
		Page:   page,
		Next:   next,
		Limit:  v.Settings.Months(),
		Settle: defaultSettle,
	}
}

// popup clicks el, reads the popup it opens with read and closes it again
// through the index-th match of closeButton.
func popup(ctx context.Context, s browser.Session, el *browser.Element, closeButton string, index int, read func() (event.RawEvent, error)) (event.RawEvent, error) {
	if err := el.Click(ctx); err != nil {
		return event.RawEvent{}, fmt.Errorf("opening popup: %w", err)
	}
	ev, err := read()
	buttons, qerr := s.Query(ctx, closeButton)
	if qerr == nil && len(buttons) > index {
		if cerr := buttons[index].Click(ctx); cerr != nil && err == nil {
			err = fmt.Errorf("closing popup: %w", cerr)
		}
	}
	return ev, err
}

// ElisMileHighClub is a Google Calendar embed. Event details only show in
// a popup.
func ElisMileHighClub(v venue.Venue) scraper.Rule {
	page := paginate.Items{
		Selector: ".rb-ni",
		Parse: func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
			return popup(ctx, s, el, ".bubble-closebutton", 1, func() (event.RawEvent, error) {
				doc, err := browser.Document(ctx, s)
				if err != nil {
					return event.RawEvent{}, err
				}
				date, err := doc.TextOf(".event-when")
				if err != nil {
					return event.RawEvent{}, err
				}
				title, err := doc.TextOf(".details .title")
				if err != nil {
					return event.RawEvent{}, err
				}
				return event.RawEvent{
					DateText: date,
					Title:    title,
					Details:  doc.OptTextOf(".event-description"),
				}, nil
			})
		},
		LoadTime: v.Settings.LoadTime,
	}
	return scraper.NewRule(v.Name, months(v, page, "#navForward1"))
}

// FreightAndSalvage renders every day cell twice; cells are deduplicated
// by their event link.
func FreightAndSalvage(v venue.Venue) scraper.Rule {
	return scraper.NewRule(v.Name, paginate.Func(func(ctx context.Context, s browser.Session, c *paginate.Collector) error {
		seen := map[string]bool{}
		detail := func(date string) paginate.DetailFunc {
			return func(ctx context.Context, s browser.Session, _, page *browser.Element) (event.RawEvent, error) {
				return event.RawEvent{
					DateText: date,
					Title:    pageTitle(ctx, s, page, ".the-title"),
					URL:      currentURL(ctx, s, ""),
					ImageURL: absolute(ctx, s, page.OptAttrOf(".tn-prod-season-header__image", "src")),
					Details:  page.OptTextOf(".tn-prod-season-header__description-text-content"),
				}, nil
			}
		}
		page := paginate.Items{
			Selector: ".tn-events-calendar__day:has(.tn-events-calendar__event)",
			ParseMany: func(ctx context.Context, s browser.Session, el *browser.Element) ([]event.RawEvent, error) {
				link, err := el.AttrOf(".tn-events-calendar__event", "href")
				if err != nil {
					return nil, err
				}
				if seen[link] {
					return nil, nil
				}
				seen[link] = true
				date, err := el.TextOf("span[id*='tn-events-day-cell']")
				if err != nil {
					return nil, err
				}
				ev, err := paginate.Hydrate(paginate.LinkAttr(".tn-events-calendar__event"), detail(date))(ctx, s, el)
				if err != nil {
					return nil, err
				}
				return []event.RawEvent{ev}, nil
			},
			LoadTime: v.Settings.LoadTime,
		}
		m := months(v, page, ".tn-btn-datepicker__btn-period-prev-next--btn-next")
		m.NextIndex = 2
		return m.Collect(ctx, s, c)
	}))
}

// GoldenBull is a Squarespace events collection.
func GoldenBull(v venue.Venue) scraper.Rule {
	page := paginate.Items{
		Selector: ".Main-content .background-image-link",
		Parse: paginate.Hydrate(paginate.LinkAttr(""), func(ctx context.Context, s browser.Session, item, page *browser.Element) (event.RawEvent, error) {
			date, err := page.TextOf("time.event-date")
			if err != nil {
				return event.RawEvent{}, err
			}
			title, err := page.TextOf(".eventitem-title")
			if err != nil {
				return event.RawEvent{}, err
			}
			return event.RawEvent{
				DateText: date,
				Title:    title,
				ImageURL: absolute(ctx, s, item.OptAttrOf("img", "src")),
				Details:  page.OptTextOf(".sqs-block-content"),
			}, nil
		}),
		LoadTime: v.Settings.LoadTime,
	}
	return scraper.NewRule(v.Name, months(v, page, "[aria-label='Go to next month']"))
}

// Independent shows a ticket popup per calendar entry; the TicketWeb page
// behind it has the details.
func Independent(v venue.Venue) scraper.Rule {
	dismiss := removeAll(".email-popup-container")
	page := paginate.Items{
		Selector: "a.fc-daygrid-event",
		Prepare:  dismiss,
		Parse: func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
			return popup(ctx, s, el, "button[title='Close']", 1, func() (event.RawEvent, error) {
				links, err := s.Query(ctx, ".fancybox-slide--current .tw-info-price-buy-tix a")
				if err != nil {
					return event.RawEvent{}, err
				}
				if len(links) == 0 {
					return event.RawEvent{}, browser.NotFoundError(".tw-info-price-buy-tix a")
				}
				link := absolute(ctx, s, links[len(links)-1].Attr("href"))
				return browser.InScopedTab(ctx, s, link, func(ctx context.Context, s browser.Session) (event.RawEvent, error) {
					if err := dismiss(ctx, s); err != nil {
						return event.RawEvent{}, err
					}
					page, err := browser.Document(ctx, s)
					if err != nil {
						return event.RawEvent{}, err
					}
					return parseTicketWebDetail(ctx, s, page)
				})
			})
		},
		LoadTime: v.Settings.LoadTime,
	}
	return scraper.NewRule(v.Name, months(v, page, ".fc-next-button"))
}

func parseTicketWebDetail(ctx context.Context, s browser.Session, page *browser.Element) (event.RawEvent, error) {
	date, err := page.TextOf(".tw-event-date")
	if err != nil {
		return event.RawEvent{}, err
	}
	var names []string
	seen := map[string]bool{}
	for _, name := range page.Find(".tw-name").Texts() {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return event.RawEvent{
		DateText: date,
		Title:    strings.Join(names, ", "),
		URL:      currentURL(ctx, s, ""),
		ImageURL: absolute(ctx, s, page.OptAttrOf(".tw-image img", "src")),
		Details:  page.OptTextOf(".tw-description"),
	}, nil
}

// Knockout is a Wix calendar. Day cells hold the events, and the month
// heading reads "March 2026".
func Knockout(v venue.Venue) scraper.Rule {
	page := paginate.PageFunc(func(ctx context.Context, s browser.Session, c *paginate.Collector) (int, error) {
		if err := browser.Pause(ctx, v.Settings.LoadTime); err != nil {
			return 0, err
		}
		heading, err := browser.QueryOne(ctx, s, "div[aria-role='heading']")
		if err != nil {
			return 0, err
		}
		month := heading.Text()
		days, err := s.Query(ctx, "td[role='gridcell']:has(.item-link)")
		if err != nil {
			return 0, err
		}
		return len(days), c.EachMany(ctx, s, days, func(ctx context.Context, s browser.Session, day *browser.Element) ([]event.RawEvent, error) {
			num, err := day.TextOf(".marker-daynum")
			if err != nil {
				return nil, err
			}
			var out []event.RawEvent
			for _, item := range day.Find(".item-link") {
				url := absolute(ctx, s, item.Attr("href"))
				ev := event.RawEvent{
					DateText: knockoutDate(month, num),
					Title:    item.OptTextOf(".item-title"),
					URL:      url,
				}
				// Event pages carry no artwork; the site icon stands in.
				ev.ImageURL, _ = browser.InScopedTab(ctx, s, url, func(ctx context.Context, s browser.Session) (string, error) {
					icon, err := browser.QueryOne(ctx, s, "link[rel='icon']")
					if err != nil {
						return "", err
					}
					return absolute(ctx, s, icon.Attr("href")), nil
				})
				out = append(out, ev)
			}
			return out, nil
		})
	})
	return scraper.NewRule(v.Name, paginate.Months{
		URL:    v.Settings.MainURL,
		Page:   page,
		Next:   "a[aria-label='Go to next month']",
		Limit:  v.Settings.Pages(5),
		Settle: defaultSettle,
	})
}

// knockoutDate combines "March 2026" and "14" into "March 14, 2026".
func knockoutDate(heading, day string) string {
	month, year, _ := strings.Cut(heading, " ")
	return fmt.Sprintf("%s %s, %s", month, day, year)
}

const makeOutRoomClosed = "Sorry, we're temporarily CLOSED on Mondays."

// MakeOutRoom is a CalendarWiz grid without images or detail pages. Links
// in a cell read "Title ~ details".
func MakeOutRoom(v venue.Venue) scraper.Rule {
	page := paginate.Items{
		Selector: "td[data-day]",
		ParseMany: func(ctx context.Context, s browser.Session, cell *browser.Element) ([]event.RawEvent, error) {
			day, err := cellDay(cell)
			if err != nil {
				return nil, err
			}
			var out []event.RawEvent
			for _, a := range cell.Find("a") {
				title, details, _ := strings.Cut(a.RawText(), "~")
				if strings.Contains(title, makeOutRoomClosed) {
					continue
				}
				out = append(out, event.RawEvent{
					Date:    day,
					Title:   browser.Clean(title),
					URL:     v.Settings.MainURL,
					Details: strings.TrimSpace(details),
				})
			}
			return out, nil
		},
		LoadTime: v.Settings.LoadTime,
	}
	return scraper.NewRule(v.Name, months(v, page, "[title='Go to next month']"))
}

func cellDay(cell *browser.Element) (event.Day, error) {
	var parts [3]int
	for i, attr := range []string{"data-year", "data-month", "data-day"} {
		n, err := strconv.Atoi(strings.TrimSpace(cell.Attr(attr)))
		if err != nil {
			return event.Day{}, fmt.Errorf("%w: %s=%q", event.ErrInvalidDate, attr, cell.Attr(attr))
		}
		parts[i] = n
	}
	day := event.NewDay(parts[0], time.Month(parts[1]), parts[2])
	if !day.Valid() {
		return event.Day{}, fmt.Errorf("%w: %s", event.ErrInvalidDate, day)
	}
	return day, nil
}

// Winters links each calendar entry to a post with the details.
func Winters(v venue.Venue) scraper.Rule {
	page := paginate.Items{
		Selector: ".fc-day-grid-event",
		Parse: paginate.Hydrate(paginate.LinkAttr(""), func(ctx context.Context, s browser.Session, _, page *browser.Element) (event.RawEvent, error) {
			date, err := page.AttrOf("time", "datetime")
			if err != nil {
				return event.RawEvent{}, err
			}
			title, err := page.TextOf(".entry-title")
			if err != nil {
				return event.RawEvent{}, err
			}
			return event.RawEvent{
				DateText: date,
				Title:    title,
				URL:      currentURL(ctx, s, ""),
				ImageURL: absolute(ctx, s, page.OptAttrOf(".featured-image img", "src")),
			}, nil
		}),
		LoadTime: 2 * time.Second,
	}
	return scraper.NewRule(v.Name, months(v, page, ".fc-next-button"))
}

// Yoshis only pairs dates with events in its mobile layout.
func Yoshis(v venue.Venue) scraper.Rule {
	page := paginate.Items{
		Selector: ".event-indv",
		Prepare: func(ctx context.Context, s browser.Session) error {
			if err := s.Resize(ctx, 500, 1000); err != nil {
				return err
			}
			if err := scrollToBottom(1)(ctx, s); err != nil {
				return err
			}
			if buttons, err := s.Query(ctx, ".fancybox-button--close"); err == nil && len(buttons) > 0 {
				_ = buttons[0].Click(ctx)
			}
			return browser.Pause(ctx, defaultSettle)
		},
		Parse: func(ctx context.Context, s browser.Session, el *browser.Element) (event.RawEvent, error) {
			date, err := el.TextOf(".edate")
			if err != nil {
				return event.RawEvent{}, err
			}
			title, err := el.First(".etitle")
			if err != nil {
				return event.RawEvent{}, err
			}
			return event.RawEvent{
				DateText: date,
				Title:    yoshisTitle(title.RawText()),
				URL:      absolute(ctx, s, el.OptAttrOf(".eimage a", "href")),
				ImageURL: absolute(ctx, s, el.OptAttrOf(".eimage img", "src")),
			}, nil
		},
	}
	return scraper.NewRule(v.Name, months(v, page, ".fc-button-next"))
}

// yoshisTitle turns "Headliner\nSeries" into "Series - Headliner".
func yoshisTitle(raw string) string {
	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		if line = browser.Clean(line); line != "" {
			parts = append(parts, line)
		}
	}
	if len(parts) >= 2 {
		parts[0], parts[1] = parts[1], parts[0]
		parts = parts[:2]
	}
	return strings.Join(parts, " - ")
}
