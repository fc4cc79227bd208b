package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/pfrederiksen/show-scraper/internal/browser"
	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/paginate"
	"github.com/pfrederiksen/show-scraper/internal/scraper"
	"github.com/pfrederiksen/show-scraper/internal/venue"
)

// DnaLounge reads the RSS feed; the calendar pages block headless
// browsers. Each item's content:encoded holds an hCalendar fragment.
func DnaLounge(v venue.Venue) scraper.Rule {
	client := browser.NewHTTPClient("", 0)
	return scraper.NewRule(v.Name, paginate.Func(func(ctx context.Context, s browser.Session, c *paginate.Collector) error {
		res, err := client.R().SetContext(ctx).Get(v.Settings.MainURL)
		if err != nil {
			return fmt.Errorf("fetching feed: %w", err)
		}
		if res.IsError() {
			return &browser.StatusError{URL: v.Settings.MainURL, Code: res.StatusCode()}
		}
		feed, err := gofeed.NewParser().ParseString(res.String())
		if err != nil {
			return fmt.Errorf("parsing feed: %w", err)
		}

		items := make(browser.Elements, 0, len(feed.Items))
		for _, item := range feed.Items {
			content := item.Content
			if content == "" {
				content = item.Description
			}
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
			if err != nil {
				return fmt.Errorf("parsing feed item %q: %w", item.Title, err)
			}
			items = append(items, browser.NewElement(doc.Selection))
		}
		return c.Each(ctx, s, items, func(_ context.Context, _ browser.Session, el *browser.Element) (event.RawEvent, error) {
			return parseDnaLounge(el, v.DefaultImage)
		})
	}))
}

func parseDnaLounge(el *browser.Element, defaultImage string) (event.RawEvent, error) {
	url, err := el.AttrOf("a.url", "href")
	if err != nil {
		return event.RawEvent{}, err
	}
	date, err := el.AttrOf("abbr.dtstart", "title")
	if err != nil {
		return event.RawEvent{}, err
	}
	title := el.OptAttrOf("abbr.summary", "title")
	if title == "" {
		if title, err = el.TextOf("div.summary a"); err != nil {
			return event.RawEvent{}, err
		}
	}
	img := el.OptAttrOf("div.event_flyer a[href] img", "src")
	if img == "" {
		img = defaultImage
	}
	return event.RawEvent{DateText: date, Title: title, URL: url, ImageURL: img}, nil
}

// ldEvent is the part of a schema.org Event that listings use.
type ldEvent struct {
	Name      string          `json:"name"`
	URL       string          `json:"url"`
	Image     json.RawMessage `json:"image"`
	StartDate string          `json:"startDate"`
}

// image accepts the string and array forms of schema.org image.
func (e ldEvent) image() string {
	var s string
	if json.Unmarshal(e.Image, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(e.Image, &list) == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

// NewParish lists its shows on TicketWeb, which embeds the page's events as
// JSON-LD.
func NewParish(v venue.Venue) scraper.Rule {
	return scraper.NewRule(v.Name, paginate.Numbered{
		URL: func(page int) string {
			return fmt.Sprintf("%s?page=%d", v.Settings.MainURL, page)
		},
		Start: 1,
		Limit: v.Settings.Pages(0),
		Page:  paginate.PageFunc(collectJSONLD),
	})
}

func collectJSONLD(ctx context.Context, s browser.Session, c *paginate.Collector) (int, error) {
	script, err := browser.QueryOne(ctx, s, "script[type='application/ld+json']")
	if err != nil {
		return 0, err
	}
	var events []ldEvent
	if err := json.Unmarshal([]byte(script.RawText()), &events); err != nil {
		return 0, fmt.Errorf("decoding json-ld: %w", err)
	}
	for i, ev := range events {
		if c.Full() {
			break
		}
		if strings.TrimSpace(ev.StartDate) == "" {
			c.Skip(fmt.Errorf("json-ld event %d: %w", i, event.ErrInvalidDate), ev.Name)
			continue
		}
		raw := event.RawEvent{
			DateText: ev.StartDate,
			Title:    ev.Name,
			URL:      absolute(ctx, s, ev.URL),
			ImageURL: absolute(ctx, s, ev.image()),
		}
		if err := c.Add(raw); err != nil {
			return len(events), err
		}
	}
	return len(events), nil
}
