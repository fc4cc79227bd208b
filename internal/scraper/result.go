package scraper

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/venue"
)

// Entry is the outcome of one rule.
type Entry struct {
	Venue       venue.Venue
	Events      []event.Event
	Err         error
	ParseErrors []error
	Duration    time.Duration
}

// OK reports whether the rule completed.
func (e *Entry) OK() bool { return e.Err == nil }

// Result maps venue names to entries in registry order. Every requested
// venue has an entry; a failed one has no events.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	entries []*Entry
	index   map[string]int
}

// NewResult returns an empty result with one entry per venue, for callers
// that assemble a run themselves.
func NewResult(runID string, venues ...venue.Venue) *Result {
	regs := make([]Registration, len(venues))
	for i, v := range venues {
		regs[i] = Registration{Venue: v}
	}
	return newResult(runID, regs)
}

func newResult(runID string, regs []Registration) *Result {
	r := &Result{
		RunID:   runID,
		entries: make([]*Entry, len(regs)),
		index:   make(map[string]int, len(regs)),
	}
	for i, reg := range regs {
		r.entries[i] = &Entry{Venue: reg.Venue, Events: []event.Event{}}
		r.index[reg.Venue.Name] = i
	}
	return r
}

// Entries returns the entries in order.
func (r *Result) Entries() []*Entry { return r.entries }

// Get returns the entry of a venue.
func (r *Result) Get(name string) (*Entry, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.entries[i], true
}

// Names returns the venue names in order.
func (r *Result) Names() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Venue.Name
	}
	return out
}

// Len returns the number of entries.
func (r *Result) Len() int { return len(r.entries) }

// TotalEvents counts events across entries.
func (r *Result) TotalEvents() int {
	n := 0
	for _, e := range r.entries {
		n += len(e.Events)
	}
	return n
}

// Failed returns the entries whose rule errored.
func (r *Result) Failed() []*Entry {
	var out []*Entry
	for _, e := range r.entries {
		if e.Err != nil {
			out = append(out, e)
		}
	}
	return out
}

// Listing returns the events keyed by venue name.
func (r *Result) Listing() event.Listing {
	out := make(event.Listing, len(r.entries))
	for _, e := range r.entries {
		out[e.Venue.Name] = e.Events
	}
	return out
}

// MarshalJSON writes {venue: [events]} with keys in registry order.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Venue.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		events := e.Events
		if events == nil || e.Err != nil {
			events = []event.Event{}
		}
		val, err := json.Marshal(events)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
