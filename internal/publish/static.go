package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/show-scraper/internal/calendar"
	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/logger"
	"github.com/pfrederiksen/show-scraper/internal/metrics"
	"github.com/pfrederiksen/show-scraper/internal/scraper"
	"github.com/pfrederiksen/show-scraper/internal/tracing"
	"github.com/pfrederiksen/show-scraper/internal/venue"
)

// Object keys written by Static.
const (
	LatestKey   = "latest.json"
	SourcesKey  = "sources.json"
	CalendarKey = "calendar.ics"
)

const (
	jsonType     = "application/json"
	calendarType = "text/calendar; charset=utf-8"
)

// StaticOptions tune the static publisher.
type StaticOptions struct {
	// PerVenue writes <venue>.json next to latest.json.
	PerVenue bool
	// Calendar writes calendar.ics.
	Calendar bool
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

// DefaultStaticOptions writes every artifact.
func DefaultStaticOptions() StaticOptions {
	return StaticOptions{PerVenue: true, Calendar: true}
}

// Static publishes a run as files through a Sink.
type Static struct {
	sink Sink
	opts StaticOptions
}

// NewStatic returns a static publisher writing to sink.
func NewStatic(sink Sink, opts StaticOptions) *Static {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Static{sink: sink, opts: opts}
}

// Publish writes the per-venue files, sources.json and calendar.ics, then
// overwrites latest.json with the whole result.
func (s *Static) Publish(ctx context.Context, result *scraper.Result) error {
	ctx, span := tracing.Start(ctx, "publish.Static", tracing.AttrRunID.String(result.RunID))
	defer span.End()

	written := 0
	put := func(key string, data []byte, contentType string) error {
		if err := s.sink.Put(ctx, key, data, contentType); err != nil {
			tracing.RecordError(ctx, err)
			return fmt.Errorf("publishing %s: %w", key, err)
		}
		logger.Debug("Published object", logger.Fields{"key": key, "bytes": len(data)})
		written++
		return nil
	}

	if s.opts.PerVenue {
		for _, entry := range result.Entries() {
			data, err := marshal(entryEvents(entry))
			if err != nil {
				return fmt.Errorf("encoding %s: %w", entry.Venue.Name, err)
			}
			if err := put(entry.Venue.Name+".json", data, jsonType); err != nil {
				return err
			}
		}
	}

	sources := make([]venue.Venue, 0, result.Len())
	for _, entry := range result.Entries() {
		sources = append(sources, entry.Venue)
	}
	data, err := marshal(sources)
	if err != nil {
		return fmt.Errorf("encoding sources: %w", err)
	}
	if err := put(SourcesKey, data, jsonType); err != nil {
		return err
	}

	if s.opts.Calendar {
		var all []event.Event
		for _, entry := range result.Entries() {
			all = append(all, entryEvents(entry)...)
		}
		var buf bytes.Buffer
		if err := calendar.Generate(&buf, all, s.opts.Now()); err != nil {
			return fmt.Errorf("encoding calendar: %w", err)
		}
		if err := put(CalendarKey, buf.Bytes(), calendarType); err != nil {
			return err
		}
	}

	latest, err := marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	s.logDiff(ctx, result)
	if err := put(LatestKey, latest, jsonType); err != nil {
		return err
	}

	s.opts.Metrics.Published("static", written)
	logger.Info("Published run", logger.Fields{
		"run_id":  result.RunID,
		"objects": written,
		"events":  result.TotalEvents(),
	})
	return nil
}

func (s *Static) logDiff(ctx context.Context, result *scraper.Result) {
	data, err := s.sink.Get(ctx, LatestKey)
	if errors.Is(err, ErrNotFound) {
		logger.Info("No previous result, publishing first run", nil)
		return
	}
	if err != nil {
		logger.Warn("Could not read previous result", logger.Fields{"error": err.Error()})
		return
	}

	var previous event.Listing
	if err := json.Unmarshal(data, &previous); err != nil {
		logger.Warn("Previous result is not a listing", logger.Fields{"error": err.Error()})
		return
	}

	diff := event.Diff(previous, result.Listing())
	logger.Info("Changes since previous run", logger.Fields{
		"added":   diff.Added(),
		"removed": diff.Dropped(),
	})
	for name, evts := range diff.New {
		for _, evt := range evts {
			logger.Debug("New event", logger.Fields{"venue": name, "date": evt.Date.String(), "title": evt.Title})
		}
	}
}

// entryEvents returns the published events of entry; a failed rule
// publishes none.
func entryEvents(entry *scraper.Entry) []event.Event {
	if entry.Err != nil || entry.Events == nil {
		return []event.Event{}
	}
	return entry.Events
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
