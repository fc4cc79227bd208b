package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/show-scraper/internal/event"
)

const monthPattern = `(jan|january|feb|february|mar|march|apr|april|may|jun|june|jul|july|aug|august|sep|sept|september|oct|october|nov|november|dec|december)`

var (
	sameMonthRange  = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{1,2})\s*-\s*(\d{1,2})$`)
	crossMonthRange = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{1,2})\s*-\s*` + monthPattern + `\s+(\d{1,2})$`)
	wholeMonth      = regexp.MustCompile(`(?i)^` + monthPattern + `$`)
)

// ParseDateRange parses a date range string into start and end times.
//
// Supported formats:
//   - "Mar 1-15" or "March 1-15" - Same month, different days
//   - "March 1 - April 15" - Different months
//   - "March" - Entire month
//   - "2025-03-01..2025-03-15" - ISO days
//   - "today", "tomorrow", "weekend", "week"
//
// A month that has already passed refers to next year. Start time is at
// 00:00:00 and end time at 23:59:59 in now's location.
func ParseDateRange(input string, now time.Time) (*time.Time, *time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil, fmt.Errorf("date range cannot be empty")
	}
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch strings.ToLower(input) {
	case "today":
		return span(today, today)
	case "tomorrow":
		d := today.AddDate(0, 0, 1)
		return span(d, d)
	case "week":
		return span(today, today.AddDate(0, 0, 6))
	case "weekend":
		// The coming Friday to Sunday, or the rest of the current one.
		offset := (int(time.Friday) - int(today.Weekday()) + 7) % 7
		if today.Weekday() == time.Saturday || today.Weekday() == time.Sunday {
			offset = 0
		}
		from := today.AddDate(0, 0, offset)
		to := from
		for to.Weekday() != time.Sunday {
			to = to.AddDate(0, 0, 1)
		}
		return span(from, to)
	}

	if from, to, ok := strings.Cut(input, ".."); ok {
		fromDay, err := ParseDay(from)
		if err != nil {
			return nil, nil, err
		}
		toDay, err := ParseDay(to)
		if err != nil {
			return nil, nil, err
		}
		return span(fromDay.Resolve(now), toDay.Resolve(now))
	}

	if matches := sameMonthRange.FindStringSubmatch(input); matches != nil {
		month := parseMonth(matches[1])
		day1, err := parseDayOfMonth(matches[2])
		if err != nil {
			return nil, nil, err
		}
		day2, err := parseDayOfMonth(matches[3])
		if err != nil {
			return nil, nil, err
		}
		year := yearForMonth(month, now)
		return span(time.Date(year, month, day1, 0, 0, 0, 0, loc), time.Date(year, month, day2, 0, 0, 0, 0, loc))
	}

	if matches := crossMonthRange.FindStringSubmatch(input); matches != nil {
		month1 := parseMonth(matches[1])
		day1, err := parseDayOfMonth(matches[2])
		if err != nil {
			return nil, nil, err
		}
		month2 := parseMonth(matches[3])
		day2, err := parseDayOfMonth(matches[4])
		if err != nil {
			return nil, nil, err
		}

		year1 := yearForMonth(month1, now)
		year2 := year1
		// "Dec 20 - Jan 5" crosses into the next year
		if month2 < month1 {
			year2++
		}
		return span(time.Date(year1, month1, day1, 0, 0, 0, 0, loc), time.Date(year2, month2, day2, 0, 0, 0, 0, loc))
	}

	if matches := wholeMonth.FindStringSubmatch(input); matches != nil {
		month := parseMonth(matches[1])
		year := yearForMonth(month, now)
		from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		// Last day of month
		return span(from, time.Date(year, month+1, 0, 0, 0, 0, 0, loc))
	}

	return nil, nil, fmt.Errorf("invalid date range format. Use 'Mar 1-15', 'March 1 - April 15', 'March' or 'YYYY-MM-DD..YYYY-MM-DD'")
}

// ParseDay parses an ISO day for the from and to query parameters.
func ParseDay(s string) (event.Day, error) {
	d, err := event.ParseDay(strings.TrimSpace(s))
	if err != nil {
		return event.Day{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	if !d.Valid() {
		return event.Day{}, fmt.Errorf("invalid date %q", s)
	}
	return d, nil
}

func span(from, to time.Time) (*time.Time, *time.Time, error) {
	to = to.Add(24*time.Hour - time.Second)
	if from.After(to) {
		return nil, nil, fmt.Errorf("start date must be before end date")
	}
	return &from, &to, nil
}

func parseDayOfMonth(s string) (int, error) {
	day, err := strconv.Atoi(s)
	if err != nil || day < 1 || day > 31 {
		return 0, fmt.Errorf("invalid day: %s", s)
	}
	return day, nil
}

// parseMonth converts a month name to time.Month
func parseMonth(name string) time.Month {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "sept" {
		name = "sep"
	}
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if name == full || name == full[:3] {
			return m
		}
	}
	return 0
}

// yearForMonth returns the appropriate year for a given month.
// If the month has already passed this year, returns next year.
func yearForMonth(month time.Month, now time.Time) int {
	year := now.Year()
	if month < now.Month() {
		year++
	}
	return year
}
