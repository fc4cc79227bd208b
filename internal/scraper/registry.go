package scraper

import (
	"errors"
	"fmt"

	"github.com/pfrederiksen/show-scraper/internal/venue"
)

// ErrUnknownRule is returned when a requested rule is not registered.
var ErrUnknownRule = errors.New("unknown rule")

// Registration binds a rule to the venue it scrapes.
type Registration struct {
	Venue venue.Venue
	Rule  Rule
}

// Registry is the ordered set of rules of a run.
type Registry struct {
	entries []Registration
	index   map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register appends a rule. The rule name must match the venue name and be
// unique.
func (r *Registry) Register(v venue.Venue, rule Rule) error {
	if rule.Name() != v.Name {
		return fmt.Errorf("rule %q registered for venue %q", rule.Name(), v.Name)
	}
	if _, dup := r.index[v.Name]; dup {
		return fmt.Errorf("duplicate rule %q", v.Name)
	}
	r.index[v.Name] = len(r.entries)
	r.entries = append(r.entries, Registration{Venue: v, Rule: rule})
	return nil
}

// All returns every registration in order.
func (r *Registry) All() []Registration {
	out := make([]Registration, len(r.entries))
	copy(out, r.entries)
	return out
}

// Get looks up a registration by name.
func (r *Registry) Get(name string) (Registration, bool) {
	i, ok := r.index[name]
	if !ok {
		return Registration{}, false
	}
	return r.entries[i], true
}

// Len returns the number of rules.
func (r *Registry) Len() int { return len(r.entries) }

// Select resolves names to registrations in registry order. No names means
// every enabled rule; named rules run even when disabled.
func (r *Registry) Select(names []string) ([]Registration, error) {
	if len(names) == 0 {
		var out []Registration
		for _, e := range r.entries {
			if !e.Venue.Disabled {
				out = append(out, e)
			}
		}
		return out, nil
	}

	wanted := make(map[string]bool, len(names))
	var unknown []string
	for _, name := range names {
		if _, ok := r.index[name]; !ok {
			unknown = append(unknown, name)
			continue
		}
		wanted[name] = true
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnknownRule, unknown)
	}

	out := make([]Registration, 0, len(wanted))
	for _, e := range r.entries {
		if wanted[e.Venue.Name] {
			out = append(out, e)
		}
	}
	return out, nil
}
