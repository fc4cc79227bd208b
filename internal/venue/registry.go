package venue

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed venues.yaml
var defaultRegistry []byte

// ErrUnknownVenue is returned when a name is not in the registry.
var ErrUnknownVenue = errors.New("unknown venue")

// Registry is the ordered, immutable list of venues.
type Registry struct {
	venues []Venue
	index  map[string]int
}

type document struct {
	Venues []Venue `yaml:"venues"`
}

// Default loads the embedded registry.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultRegistry))
}

// LoadFile loads a registry from a YAML file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening venue registry: %w", err)
	}
	defer f.Close() // nolint:errcheck
	return Load(f)
}

// Load decodes a registry document and validates it.
func Load(r io.Reader) (*Registry, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding venue registry: %w", err)
	}
	return New(doc.Venues)
}

// New builds a registry from venues in order.
func New(venues []Venue) (*Registry, error) {
	reg := &Registry{
		venues: make([]Venue, 0, len(venues)),
		index:  make(map[string]int, len(venues)),
	}
	for i, v := range venues {
		if strings.TrimSpace(v.Name) == "" {
			return nil, fmt.Errorf("venue #%d has no name", i)
		}
		if _, dup := reg.index[v.Name]; dup {
			return nil, fmt.Errorf("duplicate venue %q", v.Name)
		}
		if v.CommonName == "" {
			v.CommonName = v.Name
		}
		if v.Region == "" {
			v.Region = Other
		}
		reg.index[v.Name] = len(reg.venues)
		reg.venues = append(reg.venues, v)
	}
	return reg, nil
}

// All returns the venues in registry order.
func (r *Registry) All() []Venue {
	out := make([]Venue, len(r.venues))
	copy(out, r.venues)
	return out
}

// Enabled returns the venues not marked disabled, in order.
func (r *Registry) Enabled() []Venue {
	var out []Venue
	for _, v := range r.venues {
		if !v.Disabled {
			out = append(out, v)
		}
	}
	return out
}

// Get looks a venue up by name.
func (r *Registry) Get(name string) (Venue, error) {
	i, ok := r.index[name]
	if !ok {
		return Venue{}, fmt.Errorf("%w: %s", ErrUnknownVenue, name)
	}
	return r.venues[i], nil
}

// Names returns venue names in registry order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.venues))
	for i, v := range r.venues {
		out[i] = v.Name
	}
	return out
}

// Len returns the number of venues.
func (r *Registry) Len() int {
	return len(r.venues)
}
