package sources

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pfrederiksen/show-scraper/internal/browser"
	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/paginate"
	"github.com/pfrederiksen/show-scraper/internal/scraper"
	"github.com/pfrederiksen/show-scraper/internal/venue"
)

// knownVenues have a rule of their own; their listings on the list are
// dropped. Eagle stays, its calendar is often missing shows.
var knownVenues = []string{
	"DNA Lounge",
	"Elbo Room",
	"Eli's Mile High Club",
	"Golden Bull",
	"Knockout",
	"Thee Parkside",
	"Bottom of the Hill",
	"Cornerstone",
	"El Rio",
	"Freight",
	"Zeitgeist",
	"Grey Area",
	"Chapel",
	"Independent",
	"Starline",
	"Warfield",
	"Great American Music Hall",
	"Fillmore",
	"Greek Theater",
	"Ivy Room",
	"UC Theater",
	"Rickshaw Stop",
	"Make Out Room",
	"Yoshi's",
	"Winter's",
	"Regency Ballroom",
	"Utah",
	"Amado",
	"Bimbo",
	"Brick and Mortar",
	"Cafe Du Nord",
	"Crybaby",
	"Midway",
	"Milk",
	"August Hall",
	"Masonic",
	"Paramount",
	"Fox Theater",
	"Great Northern",
	"New Parish",
}

const similarVenue = 0.93

// VenueMatcher reports whether a listed venue name refers to one of a set
// of known venues.
type VenueMatcher struct {
	known []string
}

// NewVenueMatcher normalizes names once.
func NewVenueMatcher(names []string) *VenueMatcher {
	m := &VenueMatcher{known: make([]string, 0, len(names))}
	for _, n := range names {
		if n = normalizeVenue(n); n != "" {
			m.known = append(m.known, n)
		}
	}
	return m
}

// Match is true when a known name is contained in name, or the two are
// close enough to be the same venue spelled differently.
func (m *VenueMatcher) Match(name string) bool {
	name = normalizeVenue(name)
	if name == "" {
		return false
	}
	for _, k := range m.known {
		if strings.Contains(name, k) || matchr.JaroWinkler(name, k, false) >= similarVenue {
			return true
		}
	}
	return false
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeVenue lowercases, drops accents and keeps letters, digits and
// single spaces: "Café Du Nord!" becomes "cafe du nord".
func normalizeVenue(s string) string {
	s, _, err := transform.String(stripMarks, s)
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// TheList is the foopee punk list, split into by-date.N.html pages. Each
// top-level item is a day whose nested items are shows.
func TheList(v venue.Venue) scraper.Rule {
	known := NewVenueMatcher(knownVenues)
	base := v.Settings.MainURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return scraper.NewRule(v.Name, paginate.Numbered{
		URL: func(page int) string {
			return paginate.Resolve(base, fmt.Sprintf("by-date.%d.html", page))
		},
		Start: 0,
		Limit: v.Settings.Pages(0),
		Exhausted: func(ctx context.Context, s browser.Session) (bool, error) {
			body, err := browser.QueryOne(ctx, s, "body")
			if err != nil {
				return false, err
			}
			return strings.HasPrefix(body.Text(), "404 Not Found"), nil
		},
		Page: paginate.Items{
			Selector: "body>ul>li",
			ParseMany: func(ctx context.Context, s browser.Session, day *browser.Element) ([]event.RawEvent, error) {
				date, err := day.TextOf("a")
				if err != nil {
					return nil, err
				}
				var out []event.RawEvent
				for _, show := range day.Find("li") {
					where, err := show.TextOf("b")
					if err != nil || known.Match(where) {
						continue
					}
					var artists []string
					for _, a := range show.Find("a").Texts() {
						if a != where {
							artists = append(artists, a)
						}
					}
					out = append(out, event.RawEvent{
						DateText: date,
						Title:    event.EncodeBundle(join(", ", artists...), where),
						URL:      v.Website,
					})
				}
				return out, nil
			},
		},
	})
}
