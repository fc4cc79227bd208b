package event

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidDate is returned when no supported layout matches.
var ErrInvalidDate = errors.New("invalid date")

// Layouts carrying a time or zone, tried against the untouched input.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC1123Z,
	time.RFC1123,
	"20060102T150405Z0700",
	"20060102T150405",
	"20060102",
}

// Layouts tried against the cleaned input, most specific first.
var yearLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2006 2",
	"1/2/2006",
	"1/2/06",
	"1.2.2006",
	"1.2.06",
	"1-2-2006",
}

var yearlessLayouts = []string{
	"Jan 2",
	"January 2",
	"2 Jan",
	"2 January",
	"1/2",
	"1.2",
}

var (
	weekdayRe = regexp.MustCompile(`(?i)\b(mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)(day|nesday|sday|urday)?\b\.?`)
	ordinalRe = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	clockRe   = regexp.MustCompile(`(?i)\b\d{1,2}(:\d{2})?\s*(am|pm|a\.m\.|p\.m\.)|\b\d{1,2}:\d{2}\b`)
	noiseRe   = regexp.MustCompile(`(?i)[,@|•–—]|\b(at|doors|show|from|on)\b`)
	septRe    = regexp.MustCompile(`(?i)\bsept\b`)
	abbrDotRe = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\.`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// ParseDate parses a scraped date string relative to the current time.
func ParseDate(dateText string) (Day, error) {
	return ParseDateAt(dateText, time.Now())
}

// ParseDateAt parses a scraped date string. Supported inputs include full
// timestamps ("2026-03-13T20:00:00-07:00"), "Fri, March 13th, 2026 @ 8pm",
// "4.4.26", "02/15/26", day-first "13 Mar 2026", and year-less forms such as
// "Sat Jan 24" or "1/24". "today", "tonight" and "tomorrow" are relative to
// now. Year-less inputs return a Day without a year.
func ParseDateAt(dateText string, now time.Time) (Day, error) {
	s := strings.TrimSpace(dateText)
	if s == "" {
		return Day{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}

	switch strings.ToLower(strings.Trim(s, ".! ")) {
	case "today", "tonight":
		return DayOf(now), nil
	case "tomorrow":
		return DayOf(now.AddDate(0, 0, 1)), nil
	}

	// Try full timestamps first
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DayOf(t), nil
		}
	}

	tokens := strings.Fields(clean(s))
	if len(tokens) == 0 {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, dateText)
	}
	if len(tokens) > 12 {
		tokens = tokens[:12]
	}

	// Find the longest window of tokens that parses, leftmost first
	for n := min(len(tokens), 3); n >= 1; n-- {
		for start := 0; start+n <= len(tokens); start++ {
			candidate := strings.Join(tokens[start:start+n], " ")
			if d, ok := parseCandidate(candidate); ok {
				return d, nil
			}
		}
	}

	return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, dateText)
}

func parseCandidate(s string) (Day, bool) {
	for _, layout := range yearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DayOf(t), true
		}
	}
	for _, layout := range yearlessLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day{Month: t.Month(), Day: t.Day()}, true
		}
	}
	return Day{}, false
}

// clean strips weekday names, ordinal suffixes, clock times and separators.
func clean(s string) string {
	s = clockRe.ReplaceAllString(s, " ")
	s = weekdayRe.ReplaceAllString(s, " ")
	s = ordinalRe.ReplaceAllString(s, "$1")
	s = septRe.ReplaceAllString(s, "sep")
	s = abbrDotRe.ReplaceAllString(s, "$1")
	s = noiseRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// IsPast reports whether d lies before now's day. Year-less days are never
// past because they resolve forward.
func IsPast(d Day, now time.Time) bool {
	if !d.HasYear() {
		return false
	}
	return d.Resolve(now).Before(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()))
}
