package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/show-scraper/internal/venue"
)

// ErrEmptyTitle is returned for events whose title is blank.
var ErrEmptyTitle = errors.New("empty title")

// Bundle is the title payload of aggregator sources: the listed artists and
// the real venue they play at.
type Bundle struct {
	Artists string `json:"artists"`
	Venue   string `json:"venue"`
}

// EncodeBundle renders an aggregator title.
func EncodeBundle(artists, venueName string) string {
	b, _ := json.Marshal(Bundle{Artists: artists, Venue: venueName})
	return string(b)
}

// DecodeBundle extracts a Bundle from title. ok is false when title is not a
// bundle.
func DecodeBundle(title string) (Bundle, bool) {
	title = strings.TrimSpace(title)
	if !strings.HasPrefix(title, "{") {
		return Bundle{}, false
	}
	var b Bundle
	if err := json.Unmarshal([]byte(title), &b); err != nil {
		return Bundle{}, false
	}
	if strings.TrimSpace(b.Artists) == "" && strings.TrimSpace(b.Venue) == "" {
		return Bundle{}, false
	}
	return b, true
}

// Normalize converts a raw event scraped for v into an Event.
func Normalize(raw RawEvent, v venue.Venue) (Event, error) {
	return NormalizeAt(raw, v, time.Now())
}

// NormalizeAt is Normalize with an explicit clock for relative dates.
func NormalizeAt(raw RawEvent, v venue.Venue, now time.Time) (Event, error) {
	day := raw.Date
	if day.IsZero() {
		parsed, err := ParseDateAt(raw.DateText, now)
		if err != nil {
			return Event{}, err
		}
		day = parsed
	}
	if !day.Valid() {
		return Event{}, fmt.Errorf("%w: %s", ErrInvalidDate, day)
	}

	evt := Event{
		Date:    day,
		Title:   strings.TrimSpace(raw.Title),
		URL:     strings.TrimSpace(raw.URL),
		Img:     strings.TrimSpace(raw.ImageURL),
		Details: raw.Details,
		Source:  v,
	}

	if v.Aggregator {
		if b, ok := DecodeBundle(raw.Title); ok {
			evt.Title = strings.TrimSpace(b.Artists)
			if realVenue := strings.TrimSpace(b.Venue); realVenue != "" {
				evt.Source = v.Via(realVenue)
				evt.Venue = evt.Source.CommonName
			}
		}
	}

	if evt.Title == "" {
		return Event{}, ErrEmptyTitle
	}
	if evt.Img == "" {
		evt.Img = v.DefaultImage
	}
	if evt.URL == "" {
		evt.URL = v.Website
	}
	return evt, nil
}
