package publish

import (
	"context"
	"fmt"
	"sync"

	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/logger"
	"github.com/pfrederiksen/show-scraper/internal/metrics"
	"github.com/pfrederiksen/show-scraper/internal/scraper"
	"github.com/pfrederiksen/show-scraper/internal/storage"
)

// EventStore is the part of storage.Store the incremental publisher needs.
type EventStore interface {
	UpsertEvent(ctx context.Context, ev event.Event) (storage.Outcome, error)
}

// Incremental upserts each event into the relational store as the runner
// produces it. It is both a scraper.EventSink and a Publisher.
type Incremental struct {
	store   EventStore
	metrics *metrics.Metrics

	mu       sync.Mutex
	inserted int
	updated  int
	failed   int
}

var _ scraper.EventSink = (*Incremental)(nil)

// NewIncremental returns an incremental publisher for store.
func NewIncremental(store EventStore, m *metrics.Metrics) *Incremental {
	return &Incremental{store: store, metrics: m}
}

// OnEvent stores one event. Workers call it concurrently.
func (p *Incremental) OnEvent(ctx context.Context, ev event.Event) error {
	outcome, err := p.store.UpsertEvent(ctx, ev)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failed++
		return fmt.Errorf("storing %s event %q: %w", ev.Source.Name, ev.Title, err)
	}
	switch outcome {
	case storage.Inserted:
		p.inserted++
	case storage.Updated:
		p.updated++
	}
	return nil
}

// Totals returns the counts so far.
func (p *Incremental) Totals() (inserted, updated, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inserted, p.updated, p.failed
}

// Publish logs what the run stored. Events were written by OnEvent.
func (p *Incremental) Publish(_ context.Context, result *scraper.Result) error {
	inserted, updated, failed := p.Totals()
	p.metrics.Published("sql", inserted+updated)
	logger.Info("Stored run", logger.Fields{
		"run_id":   result.RunID,
		"inserted": inserted,
		"updated":  updated,
		"failed":   failed,
	})
	return nil
}
