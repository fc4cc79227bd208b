// Package filter narrows a list of events.
//
// A Filter combines optional criteria, all of which must hold:
//   - Date range (from/to, inclusive, year-less days resolved forward)
//   - Venues (name or common name, case-insensitive substring)
//   - Regions (exact, case-insensitive)
//   - Title terms (case-insensitive substring, any term)
//   - Weekends only (Friday through Sunday)
//   - Upcoming only (dated shows before today are dropped)
//
// Example usage:
//
//	f := filter.NewFilter()
//	from, to, _ := filter.ParseDateRange("Mar 1-15", time.Now())
//	f.DateFrom, f.DateTo = from, to
//	f.Regions = []string{"East Bay"}
//	shows := f.Apply(events, time.Now())
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/show-scraper/internal/event"
)

// Filter represents event filtering criteria
type Filter struct {
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// Venue filtering (case-insensitive substring of name or common name)
	Venues []string `json:"venues,omitempty"`

	// Region filtering (case-insensitive exact match)
	Regions []string `json:"regions,omitempty"`

	// Title filtering (case-insensitive substring match)
	Titles []string `json:"titles,omitempty"`

	// Friday, Saturday and Sunday shows only
	WeekendsOnly bool `json:"weekends_only,omitempty"`

	// Drop shows whose dated day has already passed
	UpcomingOnly bool `json:"upcoming_only,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
func NewFilter() *Filter {
	return &Filter{
		Venues:  []string{},
		Regions: []string{},
		Titles:  []string{},
	}
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Venues) == 0 &&
		len(f.Regions) == 0 &&
		len(f.Titles) == 0 &&
		!f.WeekendsOnly &&
		!f.UpcomingOnly
}

// Matches checks if an event matches all active filter criteria. Year-less
// event days are resolved against now before date checks.
func (f *Filter) Matches(evt event.Event, now time.Time) bool {
	if f.IsEmpty() {
		return true
	}

	if f.UpcomingOnly && event.IsPast(evt.Date, now) {
		return false
	}

	if f.DateFrom != nil || f.DateTo != nil || f.WeekendsOnly {
		if !evt.Date.Valid() {
			return false
		}
		day := evt.Date.Resolve(now)
		if f.DateFrom != nil && day.Before(startOfDay(*f.DateFrom, day.Location())) {
			return false
		}
		if f.DateTo != nil && day.After(*f.DateTo) {
			return false
		}
		if f.WeekendsOnly {
			switch day.Weekday() {
			case time.Friday, time.Saturday, time.Sunday:
			default:
				return false
			}
		}
	}

	if len(f.Venues) > 0 && !containsAny(f.Venues, evt.Source.Name, evt.Source.CommonName, evt.Venue) {
		return false
	}

	if len(f.Regions) > 0 {
		matched := false
		for _, region := range f.Regions {
			if strings.EqualFold(string(evt.Source.Region), region) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.Titles) > 0 && !containsAny(f.Titles, evt.Title) {
		return false
	}

	return true
}

// Apply returns the events that match. An empty filter returns events
// unchanged.
func (f *Filter) Apply(events []event.Event, now time.Time) []event.Event {
	if f.IsEmpty() {
		return events
	}

	filtered := []event.Event{}
	for _, evt := range events {
		if f.Matches(evt, now) {
			filtered = append(filtered, evt)
		}
	}

	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Format: "From: Jan 2, 2026 | To: Jan 15, 2026 | Regions: East Bay | Weekends only"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}

	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}

	if len(f.Venues) > 0 {
		parts = append(parts, fmt.Sprintf("Venues: %s", strings.Join(f.Venues, ", ")))
	}

	if len(f.Regions) > 0 {
		parts = append(parts, fmt.Sprintf("Regions: %s", strings.Join(f.Regions, ", ")))
	}

	if len(f.Titles) > 0 {
		parts = append(parts, fmt.Sprintf("Titles: %s", strings.Join(f.Titles, ", ")))
	}

	if f.WeekendsOnly {
		parts = append(parts, "Weekends only")
	}

	if f.UpcomingOnly {
		parts = append(parts, "Upcoming only")
	}

	return strings.Join(parts, " | ")
}

func containsAny(terms []string, values ...string) bool {
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		for _, v := range values {
			if v != "" && strings.Contains(strings.ToLower(v), term) {
				return true
			}
		}
	}
	return false
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
