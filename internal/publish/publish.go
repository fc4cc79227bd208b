package publish

import (
	"context"
	"errors"

	"github.com/pfrederiksen/show-scraper/internal/scraper"
)

// Publisher persists a finished run.
type Publisher interface {
	Publish(ctx context.Context, result *scraper.Result) error
}

// Nop discards results.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, *scraper.Result) error { return nil }

// Multi runs every publisher and joins their errors.
type Multi []Publisher

// Publish calls each publisher in order.
func (m Multi) Publish(ctx context.Context, result *scraper.Result) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
