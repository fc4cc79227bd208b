package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/venue"
)

var now = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestGenerate(t *testing.T) {
	evt := event.Event{
		Date:    event.NewDay(2025, time.March, 15),
		Title:   "Osees, Prettiest Eyes",
		URL:     "https://www.bottomofthehill.com/20250315.html",
		Details: "8pm; all ages",
		Source: venue.Venue{
			Name:       "BottomOfTheHill",
			CommonName: "Bottom of the Hill",
			Location:   &venue.LatLng{Lat: 37.765, Lng: -122.396},
		},
	}

	var b strings.Builder
	if err := Generate(&b, []event.Event{evt}, now); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	ics := b.String()

	requiredFields := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + ProdID,
		"BEGIN:VEVENT",
		"UID:" + evt.Key() + "@show-scraper",
		"DTSTAMP:20250301T120000Z",
		"DTSTART;VALUE=DATE:20250315",
		"DTEND;VALUE=DATE:20250316",
		"SUMMARY:Osees\\, Prettiest Eyes", // Comma is escaped
		"DESCRIPTION:8pm\\; all ages",
		"LOCATION:Bottom of the Hill",
		"GEO:37.765;-122.396",
		"URL:https://www.bottomofthehill.com/20250315.html",
		"END:VEVENT",
		"END:VCALENDAR",
	}

	for _, field := range requiredFields {
		if !strings.Contains(ics, field) {
			t.Errorf("ICS missing required field: %s", field)
		}
	}

	for _, line := range strings.Split(strings.TrimSuffix(ics, "\r\n"), "\r\n") {
		if strings.Contains(line, "\n") {
			t.Errorf("line %q has a bare LF", line)
		}
	}
}

func TestGenerateYearlessDay(t *testing.T) {
	// January has already passed on March 1, so it resolves to next year.
	evt := event.Event{Date: event.NewDay(0, time.January, 10), Title: "Winter Show"}

	ics := GenerateOne(evt, now)
	if !strings.Contains(ics, "DTSTART;VALUE=DATE:20260110") {
		t.Errorf("year-less day not resolved forward:\n%s", ics)
	}
}

func TestGenerateSkipsInvalidDays(t *testing.T) {
	ics := GenerateOne(event.Event{Title: "No date"}, now)
	if strings.Contains(ics, "BEGIN:VEVENT") {
		t.Errorf("event without a date was written:\n%s", ics)
	}
	if !strings.HasSuffix(ics, "END:VCALENDAR\r\n") {
		t.Error("calendar not terminated")
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		name  string
		input string
		lines int
	}{
		{"short", "SUMMARY:short", 1},
		{"exactly 75", strings.Repeat("a", 75), 1},
		{"76", strings.Repeat("a", 76), 2},
		{"multibyte", "SUMMARY:" + strings.Repeat("é", 80), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fold(tt.input)
			parts := strings.Split(strings.TrimSuffix(got, "\r\n"), "\r\n")
			if len(parts) != tt.lines {
				t.Errorf("fold() gave %d lines, want %d", len(parts), tt.lines)
			}
			for _, p := range parts {
				if len(p) > 75 {
					t.Errorf("line of %d octets: %q", len(p), p)
				}
			}
			if joined := strings.ReplaceAll(got, "\r\n ", ""); strings.TrimSuffix(joined, "\r\n") != tt.input {
				t.Errorf("unfolding did not round trip")
			}
		})
	}
}

func TestEscapeICS(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Simple text", "Simple text"},
		{"Text, with comma", "Text\\, with comma"},
		{"Text; with semicolon", "Text\\; with semicolon"},
		{"Text\nwith newline", "Text\\nwith newline"},
		{"Back\\slash", "Back\\\\slash"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := escapeICS(tt.input); got != tt.expected {
				t.Errorf("escapeICS(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
