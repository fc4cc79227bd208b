package sources

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/show-scraper/internal/browser"
	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/paginate"
	"github.com/pfrederiksen/show-scraper/internal/scraper"
	"github.com/pfrederiksen/show-scraper/internal/venue"
)

//go:embed manual_events.yaml
var manualEvents []byte

// ManualEvent is one hand-entered show.
type ManualEvent struct {
	Date    string `yaml:"date"`
	Artists string `yaml:"artists"`
	Venue   string `yaml:"venue"`
	URL     string `yaml:"url"`
	Img     string `yaml:"img"`
	Details string `yaml:"details"`
}

// LoadManualEvents decodes a YAML list of manual events.
func LoadManualEvents(data []byte) ([]ManualEvent, error) {
	var out []ManualEvent
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding manual events: %w", err)
	}
	return out, nil
}

// ManuallyAdded serves the embedded manual list. It never touches the
// session.
func ManuallyAdded(v venue.Venue) scraper.Rule {
	return manualRule(v, manualEvents)
}

func manualRule(v venue.Venue, data []byte) scraper.Rule {
	return scraper.NewRule(v.Name, paginate.Func(func(ctx context.Context, _ browser.Session, c *paginate.Collector) error {
		entries, err := LoadManualEvents(data)
		if err != nil {
			return err
		}
		for _, m := range entries {
			if c.Full() {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			raw := event.RawEvent{
				DateText: m.Date,
				Title:    event.EncodeBundle(m.Artists, m.Venue),
				URL:      m.URL,
				ImageURL: m.Img,
				Details:  m.Details,
			}
			if err := c.Add(raw); err != nil {
				return err
			}
		}
		return nil
	}))
}
