package locations

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// CurrentID is the pseudo id of the device-derived location.
const CurrentID = "current"

// namespace scopes location ids to this application.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://weather-dashboard/locations"))

// IDFor returns the stable id of a city. The same city and country always
// map to the same id, so persisted ids survive restarts.
func IDFor(city, country string) string {
	key := strings.ToLower(strings.TrimSpace(city)) + ":" + strings.ToLower(strings.TrimSpace(country))
	return uuid.NewSHA1(namespace, []byte(key)).String()
}

// NewLocation builds a saved location with its stable id.
func NewLocation(city, country string) weather.Location {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)
	name := city
	if country != "" {
		name = city + ", " + country
	}
	return weather.Location{
		ID:      IDFor(city, country),
		Name:    name,
		City:    city,
		Country: country,
	}
}

// Directory holds the saved locations, the home location and the device
// location. It is safe for concurrent use.
type Directory struct {
	mu      sync.RWMutex
	saved   []weather.Location
	home    *weather.Location
	current *weather.Location
}

// NewDirectory creates a directory. Duplicate saved locations are dropped;
// home may be nil.
func NewDirectory(saved []weather.Location, home *weather.Location) *Directory {
	d := &Directory{}
	seen := make(map[string]bool, len(saved))
	for _, loc := range saved {
		if loc.ID == "" || seen[loc.ID] {
			continue
		}
		seen[loc.ID] = true
		d.saved = append(d.saved, loc)
	}
	if home != nil {
		h := *home
		d.home = &h
	}
	return d
}

// SavedLocations returns the saved locations in configuration order.
func (d *Directory) SavedLocations() []weather.Location {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]weather.Location, len(d.saved))
	copy(out, d.saved)
	return out
}

// Home returns the home location, if one is configured.
func (d *Directory) Home() (weather.Location, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.home == nil {
		return weather.Location{}, false
	}
	return *d.home, true
}

// Current returns the device location, if the device has reported one.
func (d *Directory) Current() (weather.Location, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.current == nil {
		return weather.Location{}, false
	}
	return *d.current, true
}

// SetCurrent records the device's coordinates.
func (d *Directory) SetCurrent(lat, lon float64) weather.Location {
	loc := weather.Location{ID: CurrentID, Name: "Current location", Lat: &lat, Lon: &lon}
	d.mu.Lock()
	d.current = &loc
	d.mu.Unlock()
	return loc
}

// Resolve maps an id to a location: the device location for CurrentID,
// otherwise the home location or a saved location with that id.
func (d *Directory) Resolve(id string) (weather.Location, bool) {
	if id == CurrentID {
		return d.Current()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.home != nil && d.home.ID == id {
		return *d.home, true
	}
	for _, loc := range d.saved {
		if loc.ID == id {
			return loc, true
		}
	}
	return weather.Location{}, false
}
