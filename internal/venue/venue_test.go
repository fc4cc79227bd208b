package venue

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDefaultRegistry(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if reg.Len() < 40 {
		t.Errorf("Len() = %d, want at least 40 venues", reg.Len())
	}

	bimbos, err := reg.Get("Bimbos")
	if err != nil {
		t.Fatalf("Get(Bimbos) error = %v", err)
	}
	if bimbos.Region != SanFrancisco {
		t.Errorf("Bimbos region = %q, want %q", bimbos.Region, SanFrancisco)
	}
	if bimbos.Settings.LoadTime != 3*time.Second {
		t.Errorf("Bimbos load_time = %v, want 3s", bimbos.Settings.LoadTime)
	}
	if bimbos.Location == nil {
		t.Error("Bimbos has no location")
	}

	for _, name := range []string{"ElboRoom", "Starline"} {
		v, err := reg.Get(name)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", name, err)
		}
		if !v.Disabled {
			t.Errorf("%s should be disabled", name)
		}
	}
	for _, v := range reg.Enabled() {
		if v.Disabled {
			t.Errorf("Enabled() returned disabled venue %s", v.Name)
		}
	}

	list, _ := reg.Get("TheList")
	if !list.Aggregator {
		t.Error("TheList should be an aggregator")
	}
}

func TestRegistryPreservesOrder(t *testing.T) {
	reg, err := Load(strings.NewReader(`
venues:
  - name: B
    region: east bay
  - name: A
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	names := reg.Names()
	if len(names) != 2 || names[0] != "B" || names[1] != "A" {
		t.Errorf("Names() = %v, want [B A]", names)
	}
	a, _ := reg.Get("A")
	if a.CommonName != "A" || a.Region != Other {
		t.Errorf("defaults not applied: %+v", a)
	}
	b, _ := reg.Get("B")
	if b.Region != EastBay {
		t.Errorf("B region = %q, want East Bay", b.Region)
	}
}

func TestRegistryErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"duplicate", "venues:\n  - name: A\n  - name: A\n"},
		{"missing name", "venues:\n  - common_name: X\n"},
		{"bad region", "venues:\n  - name: A\n    region: Mars\n"},
		{"bad latlng", "venues:\n  - name: A\n    latlng: nowhere\n"},
		{"unknown field", "venues:\n  - name: A\n    colour: red\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(tt.doc)); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}

	reg, _ := New(nil)
	if _, err := reg.Get("nope"); err == nil {
		t.Error("Get(nope) error = nil")
	}
}

func TestInferRegion(t *testing.T) {
	tests := []struct {
		name    string
		current Region
		want    Region
	}{
		{"924 GILMAN STREET, BERKELEY (via The List)", Other, EastBay},
		{"BLUE LAGOON, SANTA CRUZ (via The List)", Other, SantaCruz},
		{"BLACK CAT, S.F. (via The List)", Other, SanFrancisco},
		{"TAQUERIA MILA, 100 BURT STREET, SANTA ROSA (via The List)", Other, NorthBay},
		{"Somewhere Unknown", Other, Other},
		{"Oakland Arena", SanFrancisco, SanFrancisco},
		// Both East Bay ("oakland") and North Bay ("piedmont") match; the later entry wins.
		{"Piedmont Piano Company, Oakland", Other, NorthBay},
		{"The Red Door in Alameda", "", EastBay},
	}
	for _, tt := range tests {
		if got := InferRegion(tt.name, tt.current); got != tt.want {
			t.Errorf("InferRegion(%q, %q) = %q, want %q", tt.name, tt.current, got, tt.want)
		}
	}
}

func TestVia(t *testing.T) {
	list := Venue{Name: "TheList", CommonName: "The List", Region: Other, Aggregator: true}
	got := list.Via("The Red Door")
	if got.CommonName != "The Red Door (via The List)" {
		t.Errorf("CommonName = %q", got.CommonName)
	}
	if got.Name != "TheList" {
		t.Errorf("Name = %q, want TheList", got.Name)
	}
	if list.CommonName != "The List" {
		t.Error("Via mutated the receiver")
	}
}

func TestLatLngJSON(t *testing.T) {
	v := Venue{Name: "X", Location: &LatLng{Lat: 37.5, Lng: -122.25}}
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"latlng":"37.5,-122.25"`) {
		t.Errorf("Marshal() = %s", data)
	}

	var back Venue
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Location == nil || back.Location.Lng != -122.25 {
		t.Errorf("round trip location = %+v", back.Location)
	}

	data, _ = json.Marshal(Venue{Name: "Y"})
	if strings.Contains(string(data), "latlng") {
		t.Errorf("nil location should be omitted: %s", data)
	}
}

func TestSettingsDefaults(t *testing.T) {
	var s Settings
	if s.Limit() != DefaultEventsLimit {
		t.Errorf("Limit() = %d", s.Limit())
	}
	if s.Months() != 1 {
		t.Errorf("Months() = %d", s.Months())
	}
	if s.Pages(7) != 7 {
		t.Errorf("Pages(7) = %d", s.Pages(7))
	}
}
