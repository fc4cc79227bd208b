package sources

import (
	"fmt"

	"github.com/pfrederiksen/show-scraper/internal/scraper"
	"github.com/pfrederiksen/show-scraper/internal/venue"
)

// Constructor builds the rule of one venue.
type Constructor func(v venue.Venue) scraper.Rule

var constructors = map[string]Constructor{
	"Amados":                 Amados,
	"AugustHall":             AugustHall,
	"BandcampOakland":        BandcampOakland,
	"Bimbos":                 Bimbos,
	"BottomOfTheHill":        BottomOfTheHill,
	"BrickAndMortar":         BrickAndMortar,
	"Cornerstone":            Cornerstone,
	"Crybaby":                Crybaby,
	"DnaLounge":              DnaLounge,
	"Eagle":                  Eagle,
	"ElRio":                  ElRio,
	"ElboRoom":               ElboRoom,
	"ElisMileHighClub":       ElisMileHighClub,
	"Fillmore":               Fillmore,
	"FoxTheater":             FoxTheater,
	"FreightAndSalvage":      FreightAndSalvage,
	"GoldenBull":             GoldenBull,
	"GreatAmericanMusicHall": GreatAmericanMusicHall,
	"GreatNorthern":          GreatNorthern,
	"GreekTheater":           GreekTheater,
	"GreyArea":               GreyArea,
	"HotelUtah":              HotelUtah,
	"Independent":            Independent,
	"IvyRoom":                IvyRoom,
	"Knockout":               Knockout,
	"MakeOutRoom":            MakeOutRoom,
	"ManuallyAdded":          ManuallyAdded,
	"Masonic":                Masonic,
	"Midway":                 Midway,
	"MilkBar":                MilkBar,
	"NewParish":              NewParish,
	"Paramount":              Paramount,
	"Regency":                Regency,
	"RickshawStop":           RickshawStop,
	"SfJazz":                 SfJazz,
	"Starline":               Starline,
	"StorkClub":              StorkClub,
	"TheChapel":              TheChapel,
	"TheList":                TheList,
	"TheeParkside":           TheeParkside,
	"UcBerkeleyTheater":      UcBerkeleyTheater,
	"Warfield":               Warfield,
	"Winters":                Winters,
	"WyldflowrArts":          WyldflowrArts,
	"Yoshis":                 Yoshis,
	"Zeitgeist":              Zeitgeist,
}

// Lookup returns the constructor registered for a venue name.
func Lookup(name string) (Constructor, bool) {
	c, ok := constructors[name]
	return c, ok
}

// Registry builds the rule registry for venues, in venue order. Every venue
// needs a constructor.
func Registry(venues *venue.Registry) (*scraper.Registry, error) {
	reg := scraper.NewRegistry()
	for _, v := range venues.All() {
		build, ok := constructors[v.Name]
		if !ok {
			return nil, fmt.Errorf("no rule for venue %q", v.Name)
		}
		if err := reg.Register(v, build(v)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Default builds the registry of the embedded venue list.
func Default() (*scraper.Registry, error) {
	venues, err := venue.Default()
	if err != nil {
		return nil, err
	}
	return Registry(venues)
}
