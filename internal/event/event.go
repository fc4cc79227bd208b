package event

import (
	"crypto/sha1"
	"fmt"
	"strings"

	"github.com/pfrederiksen/show-scraper/internal/venue"
)

// RawEvent is what an extraction rule scrapes from a page, before
// normalization. A rule sets either Date or DateText.
type RawEvent struct {
	Date     Day    `json:"date,omitempty"`
	DateText string `json:"date_text,omitempty"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	ImageURL string `json:"img"`
	Details  string `json:"details"`
}

// Event is a normalized show listing.
type Event struct {
	Date    Day    `json:"date"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Img     string `json:"img"`
	Details string `json:"details"`
	// Venue names the real venue of an event reported by an aggregator.
	Venue string `json:"venue,omitempty"`

	// Source is set by the runner from the rule's registry entry.
	Source venue.Venue `json:"-"`
}

// Key returns the identity of the event: its source, day and title.
func (e Event) Key() string {
	return Key(e.Source.Name, e.Date, e.Title)
}

// Key builds a deterministic ID from a venue name, day and title.
func Key(venueName string, d Day, title string) string {
	h := sha1.New()
	h.Write([]byte(venueName + "|" + d.String() + "|" + strings.TrimSpace(title)))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Preview formats a one-line summary for progress output.
func (e Event) Preview() string {
	title := e.Title
	if len(title) > 60 {
		title = title[:57] + "..."
	}
	return fmt.Sprintf("%-20s %-10s %s", e.Source.Name, e.Date, title)
}
