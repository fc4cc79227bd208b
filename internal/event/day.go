package event

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Day is a calendar day. Year is 0 when the source did not publish one.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDay returns the given day.
func NewDay(year int, month time.Month, day int) Day {
	return Day{Year: year, Month: month, Day: day}
}

// DayOf returns the calendar day of t in t's location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// IsZero reports whether d is unset.
func (d Day) IsZero() bool {
	return d == Day{}
}

// HasYear reports whether the year is known.
func (d Day) HasYear() bool {
	return d.Year != 0
}

// Valid reports whether d names a real calendar day. A year-less Feb 29 is
// valid.
func (d Day) Valid() bool {
	if d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return false
	}
	year := d.Year
	if year == 0 {
		year = 2000
	}
	return d.Day <= daysIn(year, d.Month)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// String renders ISO-8601: "2006-01-02", or "--01-02" without a year.
func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	if !d.HasYear() {
		return fmt.Sprintf("--%02d-%02d", int(d.Month), d.Day)
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ParseDay parses the output of Day.String.
func ParseDay(s string) (Day, error) {
	var d Day
	var parts []string
	if rest, ok := strings.CutPrefix(s, "--"); ok {
		parts = strings.Split(rest, "-")
		if len(parts) != 2 {
			return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
	} else {
		parts = strings.Split(s, "-")
		if len(parts) != 3 {
			return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		y, err := strconv.Atoi(parts[0])
		if err != nil || y <= 0 {
			return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		d.Year = y
		parts = parts[1:]
	}
	m, err := strconv.Atoi(parts[0])
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	d.Month, d.Day = time.Month(m), day
	if !d.Valid() {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// Resolve returns the day as a midnight time in now's location. A year-less
// day resolves to its nearest future occurrence.
func (d Day) Resolve(now time.Time) time.Time {
	if !d.HasYear() {
		return ResolveYear(d.Month, d.Day, now)
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, now.Location())
}

// Before reports whether d falls before o once both are resolved against now.
func (d Day) Before(o Day, now time.Time) bool {
	return d.Resolve(now).Before(o.Resolve(now))
}

// ResolveYear returns the nearest occurrence of month/day that is not before
// the start of now's day. Feb 29 resolves to the next leap year.
func ResolveYear(month time.Month, day int, now time.Time) time.Time {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	for year := now.Year(); year <= now.Year()+8; year++ {
		if day > daysIn(year, month) {
			continue
		}
		candidate := time.Date(year, month, day, 0, 0, 0, 0, loc)
		if !candidate.Before(today) {
			return candidate
		}
	}
	return time.Time{}
}

// MarshalJSON encodes the ISO-8601 string.
func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes an ISO-8601 day or a full RFC 3339 timestamp.
func (d *Day) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Day{}
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		*d = DayOf(t)
		return nil
	}
	parsed, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer for the relational sink.
func (d Day) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner.
func (d *Day) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseDay(v)
		if err != nil {
			return err
		}
		*d = parsed
	case []byte:
		return d.Scan(string(v))
	case time.Time:
		*d = DayOf(v)
	case nil:
		*d = Day{}
	default:
		return fmt.Errorf("cannot scan %T into Day", src)
	}
	return nil
}
