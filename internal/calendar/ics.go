// Package calendar renders events as an iCalendar feed.
package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/show-scraper/internal/event"
)

// ProdID identifies the generator in every feed.
const ProdID = "-//show-scraper//show-scraper//EN"

// Generate writes one all-day VEVENT per event. Year-less days are
// resolved against now. now also stamps DTSTAMP.
func Generate(w io.Writer, events []event.Event, now time.Time) error {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:" + ProdID + "\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	ics.WriteString("X-WR-CALNAME:Bay Area Shows\r\n")

	stamp := formatICSTime(now)
	for _, evt := range events {
		writeEvent(&ics, evt, stamp, now)
	}

	ics.WriteString("END:VCALENDAR\r\n")

	_, err := io.WriteString(w, ics.String())
	return err
}

// GenerateOne returns a feed holding a single event.
func GenerateOne(evt event.Event, now time.Time) string {
	var b strings.Builder
	_ = Generate(&b, []event.Event{evt}, now)
	return b.String()
}

func writeEvent(ics *strings.Builder, evt event.Event, stamp string, now time.Time) {
	if !evt.Date.Valid() {
		return
	}
	start := evt.Date.Resolve(now)

	ics.WriteString("BEGIN:VEVENT\r\n")
	ics.WriteString(fmt.Sprintf("UID:%s@show-scraper\r\n", evt.Key()))
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", stamp))

	// All-day: DTEND is exclusive
	ics.WriteString(fmt.Sprintf("DTSTART;VALUE=DATE:%s\r\n", start.Format("20060102")))
	ics.WriteString(fmt.Sprintf("DTEND;VALUE=DATE:%s\r\n", start.AddDate(0, 0, 1).Format("20060102")))

	ics.WriteString(fold("SUMMARY:" + escapeICS(evt.Title)))

	if evt.Details != "" {
		ics.WriteString(fold("DESCRIPTION:" + escapeICS(evt.Details)))
	}

	location := evt.Source.CommonName
	if location == "" {
		location = evt.Source.Name
	}
	if location != "" {
		ics.WriteString(fold("LOCATION:" + escapeICS(location)))
	}
	if loc := evt.Source.Location; loc != nil && evt.Venue == "" {
		ics.WriteString(fmt.Sprintf("GEO:%s;%s\r\n",
			trimFloat(loc.Lat), trimFloat(loc.Lng)))
	}

	if evt.URL != "" {
		ics.WriteString(fold("URL:" + evt.URL))
	}

	ics.WriteString("TRANSP:TRANSPARENT\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func trimFloat(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", f), "0"), ".")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// RFC 5545 section 3.3.11
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\r\n", "\\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// fold splits a content line into 75-octet chunks joined by CRLF and a
// space, without cutting a UTF-8 sequence.
func fold(line string) string {
	const limit = 75

	var b strings.Builder
	width := 0
	for _, r := range line {
		size := len(string(r))
		if width+size > limit {
			b.WriteString("\r\n ")
			width = 1
		}
		b.WriteRune(r)
		width += size
	}
	b.WriteString("\r\n")
	return b.String()
}
