package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pfrederiksen/show-scraper/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate  SortOrder = "date"
	SortByVenue SortOrder = "venue"
	SortByTitle SortOrder = "title"
)

// ParseSortOrder validates a sort flag.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(s)); o {
	case SortByDate, SortByVenue, SortByTitle:
		return o, nil
	case "":
		return SortByDate, nil
	}
	return "", fmt.Errorf("invalid sort order: %s (must be 'date', 'venue' or 'title')", s)
}

// sortEvents sorts a slice of events based on the specified sort order.
// Year-less days are placed where they resolve relative to now.
func sortEvents(events []event.Event, sortOrder SortOrder, now time.Time) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(events, func(i, j int) bool {
			return compareByDate(events[i], events[j], now)
		})
	case SortByVenue:
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].Source.Name != events[j].Source.Name {
				return events[i].Source.Name < events[j].Source.Name
			}
			// If venues are equal, sort by date
			return compareByDate(events[i], events[j], now)
		})
	case SortByTitle:
		sort.SliceStable(events, func(i, j int) bool {
			if a, b := strings.ToLower(events[i].Title), strings.ToLower(events[j].Title); a != b {
				return a < b
			}
			// If titles are equal, sort by date
			return compareByDate(events[i], events[j], now)
		})
	}
}

// compareByDate compares two events by their resolved day, then venue and
// title.
func compareByDate(i, j event.Event, now time.Time) bool {
	if a, b := i.Date.Resolve(now), j.Date.Resolve(now); !a.Equal(b) {
		return a.Before(b)
	}
	if i.Source.Name != j.Source.Name {
		return i.Source.Name < j.Source.Name
	}
	return strings.ToLower(i.Title) < strings.ToLower(j.Title)
}
