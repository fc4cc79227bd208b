package venue

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Region groups venues geographically.
type Region string

const (
	EastBay      Region = "East Bay"
	SanFrancisco Region = "San Francisco"
	Pacifica     Region = "Pacifica"
	SouthBay     Region = "South Bay"
	SantaCruz    Region = "Santa Cruz"
	NorthBay     Region = "North Bay"
	Sacramento   Region = "Sacramento"
	Other        Region = "Other"
)

// Regions lists every region in display order.
var Regions = []Region{EastBay, SanFrancisco, Pacifica, SouthBay, NorthBay, SantaCruz, Sacramento, Other}

// ParseRegion matches a region name case-insensitively.
func ParseRegion(s string) (Region, error) {
	for _, r := range Regions {
		if strings.EqualFold(string(r), strings.TrimSpace(s)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown region %q", s)
}

// UnmarshalYAML rejects unknown region names.
func (r *Region) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseRegion(node.Value)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// regionFallbacks maps substrings of a display name to a region. Later
// entries win when several match.
var regionFallbacks = []struct {
	region  Region
	needles []string
}{
	{EastBay, []string{"el cerrito", "hayward", "tamarack", "crockett", "oakland", "port costa", "richmond", "berkeley", "alameda", "vallejo", "emeryville", "oakley", "walnut creek", "antioch", "concord", "lafayette"}},
	{Pacifica, []string{"pacifica"}},
	{SantaCruz, []string{"santa cruz", "santa curz", "monterey", "big sur", "felton"}},
	{SanFrancisco, []string{"san francisco", "sf", "s.f.", "thrillhouse"}},
	{Sacramento, []string{"sacramento", "brooks"}},
	{SouthBay, []string{"sunnyvale", "fremont", "freemont", "menlo park", "redwood city", "saratoga", "memlo park", "palo alto", "san jose"}},
	{NorthBay, []string{"novato", "sebastopol", "mill valley", "piedmont", "santa rosa", "fairfax", "marin", "petaluma", "sonoma", "napa", "healdsburg"}},
}

// InferRegion guesses a region from a display name when current is Other
// or empty. Any other current region is returned unchanged.
func InferRegion(commonName string, current Region) Region {
	if current != Other && current != "" {
		return current
	}
	region := Other
	name := strings.ToLower(commonName)
	for _, fb := range regionFallbacks {
		for _, needle := range fb.needles {
			if strings.Contains(name, needle) {
				region = fb.region
				break
			}
		}
	}
	return region
}
