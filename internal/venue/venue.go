package venue

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEventsLimit caps a rule's results when the registry sets no limit.
const DefaultEventsLimit = 200

// Venue is a VenueRef: the static identity of one event source.
type Venue struct {
	Name         string   `yaml:"name" json:"name"`
	CommonName   string   `yaml:"common_name" json:"commonName"`
	Region       Region   `yaml:"region" json:"region"`
	Website      string   `yaml:"website" json:"website"`
	DefaultImage string   `yaml:"default_image" json:"image"`
	Location     *LatLng  `yaml:"latlng" json:"latlng,omitempty"`
	Aggregator   bool     `yaml:"aggregator" json:"-"`
	Disabled     bool     `yaml:"disabled" json:"-"`
	Settings     Settings `yaml:"settings" json:"-"`
}

// Settings is the per-rule static configuration.
type Settings struct {
	MainURL     string        `yaml:"main_url"`
	EventsLimit int           `yaml:"events_limit"`
	LoadTime    time.Duration `yaml:"load_time"`
	MonthsLimit int           `yaml:"months_limit"`
	PagesLimit  int           `yaml:"pages_limit"`
}

// Limit returns the configured events limit, or DefaultEventsLimit.
func (s Settings) Limit() int {
	if s.EventsLimit > 0 {
		return s.EventsLimit
	}
	return DefaultEventsLimit
}

// Months returns months_limit, defaulting to 1.
func (s Settings) Months() int {
	if s.MonthsLimit > 0 {
		return s.MonthsLimit
	}
	return 1
}

// Pages returns pages_limit, or def when unset.
func (s Settings) Pages(def int) int {
	if s.PagesLimit > 0 {
		return s.PagesLimit
	}
	return def
}

// Via returns a copy of v describing a real venue reported through the
// aggregator v.
func (v Venue) Via(realVenue string) Venue {
	out := v
	out.CommonName = fmt.Sprintf("%s (via %s)", realVenue, v.CommonName)
	out.Location = nil
	out.Region = InferRegion(out.CommonName, v.Region)
	return out
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64
	Lng float64
}

// ParseLatLng parses "lat,lng".
func ParseLatLng(s string) (*LatLng, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("latlng %q: want \"lat,lng\"", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("latlng %q: %w", s, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("latlng %q: %w", s, err)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("latlng %q out of range", s)
	}
	return &LatLng{Lat: lat, Lng: lng}, nil
}

// String formats the pair as "lat,lng".
func (l LatLng) String() string {
	return strconv.FormatFloat(l.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Lng, 'f', -1, 64)
}

// UnmarshalYAML decodes a "lat,lng" scalar.
func (l *LatLng) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseLatLng(node.Value)
	if err != nil {
		return err
	}
	*l = *parsed
	return nil
}

// MarshalJSON encodes the pair as the "lat,lng" string the front end parses.
func (l LatLng) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a "lat,lng" string.
func (l *LatLng) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseLatLng(s)
	if err != nil {
		return err
	}
	*l = *parsed
	return nil
}
