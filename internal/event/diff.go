package event

import "sort"

// Listing is a published result set: venue name to its events.
type Listing map[string][]Event

// DiffResult holds what changed between two listings, grouped by venue.
type DiffResult struct {
	New     map[string][]Event
	Removed map[string][]Event
}

// Added counts new events across all venues.
func (d *DiffResult) Added() int {
	return count(d.New)
}

// Dropped counts removed events across all venues.
func (d *DiffResult) Dropped() int {
	return count(d.Removed)
}

// Empty reports whether nothing changed.
func (d *DiffResult) Empty() bool {
	return d.Added() == 0 && d.Dropped() == 0
}

func count(m map[string][]Event) int {
	n := 0
	for _, evts := range m {
		n += len(evts)
	}
	return n
}

// Diff compares the current listing against a previous one. Events are
// matched by Key within the same venue.
func Diff(previous, current Listing) *DiffResult {
	result := &DiffResult{
		New:     make(map[string][]Event),
		Removed: make(map[string][]Event),
	}

	for name, evts := range current {
		seen := keys(name, previous[name])
		for _, evt := range evts {
			if !seen[Key(name, evt.Date, evt.Title)] {
				result.New[name] = append(result.New[name], evt)
			}
		}
	}
	for name, evts := range previous {
		seen := keys(name, current[name])
		for _, evt := range evts {
			if !seen[Key(name, evt.Date, evt.Title)] {
				result.Removed[name] = append(result.Removed[name], evt)
			}
		}
	}

	// Sort within each venue for consistent output
	for _, m := range []map[string][]Event{result.New, result.Removed} {
		for name := range m {
			sortEvents(m[name])
		}
	}
	return result
}

func keys(name string, evts []Event) map[string]bool {
	out := make(map[string]bool, len(evts))
	for _, evt := range evts {
		out[Key(name, evt.Date, evt.Title)] = true
	}
	return out
}

func sortEvents(evts []Event) {
	sort.SliceStable(evts, func(i, j int) bool {
		if a, b := evts[i].Date.String(), evts[j].Date.String(); a != b {
			return a < b
		}
		return evts[i].Title < evts[j].Title
	})
}
