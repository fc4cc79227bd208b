package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/scraper"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// VenueSummary is one row of a RunSummary.
type VenueSummary struct {
	Name        string `json:"name"`
	Events      int    `json:"events"`
	ParseErrors int    `json:"parse_errors"`
	Error       string `json:"error,omitempty"`
	Duration    string `json:"duration"`
}

// RunSummary describes a finished run.
type RunSummary struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	EventCount int            `json:"event_count"`
	Failed     int            `json:"failed"`
	Venues     []VenueSummary `json:"venues"`
}

// NewRunSummary summarizes result.
func NewRunSummary(result *scraper.Result) *RunSummary {
	s := &RunSummary{
		RunID:      result.RunID,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		EventCount: result.TotalEvents(),
		Failed:     len(result.Failed()),
		Venues:     make([]VenueSummary, 0, result.Len()),
	}
	for _, e := range result.Entries() {
		v := VenueSummary{
			Name:        e.Venue.Name,
			Events:      len(e.Events),
			ParseErrors: len(e.ParseErrors),
			Duration:    e.Duration.Round(time.Millisecond).String(),
		}
		if e.Err != nil {
			v.Error = e.Err.Error()
		}
		s.Venues = append(s.Venues, v)
	}
	return s
}

// DiffOutput is the change set between two listings.
type DiffOutput struct {
	Added   []event.Event `json:"added"`
	Removed []event.Event `json:"removed"`
}

// NewDiffOutput flattens d, sorted by sortOrder as of now.
func NewDiffOutput(d *event.DiffResult, sortOrder SortOrder, now time.Time) *DiffOutput {
	out := &DiffOutput{Added: flatten(d.New), Removed: flatten(d.Removed)}
	sortEvents(out.Added, sortOrder, now)
	sortEvents(out.Removed, sortOrder, now)
	return out
}

func flatten(m map[string][]event.Event) []event.Event {
	out := []event.Event{}
	for name, evts := range m {
		for _, evt := range evts {
			if evt.Source.Name == "" {
				evt.Source.Name = name
			}
			out = append(out, evt)
		}
	}
	return out
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result any, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result any) error {
	switch r := result.(type) {
	case *RunSummary:
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(table.Row{"Venue", "Events", "Skipped", "Duration", "Error"})
		for _, v := range r.Venues {
			t.AppendRow(table.Row{v.Name, v.Events, v.ParseErrors, v.Duration, v.Error})
		}
		t.AppendFooter(table.Row{"Total", r.EventCount, "", r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String(), fmt.Sprintf("%d failed", r.Failed)})
		t.Render()
		return nil

	case *DiffOutput:
		if len(r.Added) == 0 && len(r.Removed) == 0 {
			fmt.Fprintln(w, "No changes.")
			return nil
		}
		for _, evt := range r.Added {
			fmt.Fprintf(w, "+ %s\n", evt.Preview())
		}
		for _, evt := range r.Removed {
			fmt.Fprintf(w, "- %s\n", evt.Preview())
		}
		fmt.Fprintf(w, "\nTotal: %d added, %d removed\n", len(r.Added), len(r.Removed))
		return nil
	}
	return writeJSON(w, result)
}
