package weather

import (
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Unit is the temperature unit a snapshot is presented in.
type Unit string

const (
	Celsius    Unit = "celsius"
	Fahrenheit Unit = "fahrenheit"
)

// Location is a place the dashboard can show weather for.
// ID is the key used by the cache, the throttle and persisted preferences.
type Location struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	City    string   `json:"city,omitempty"`
	Country string   `json:"country,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// WeatherSnapshot is the normalized, aggregated weather view at a point in time.
type WeatherSnapshot struct {
	Location    Location  `json:"location"`
	Timestamp   time.Time `json:"timestamp"` // always UTC
	Temperature float64   `json:"temperature"`
	Unit        Unit      `json:"unit"`
	Humidity    float64   `json:"humidityPercent"`
	WindSpeed   float64   `json:"windSpeed"`
	Pressure    float64   `json:"pressureHpa"`
	PrecipMM    float64   `json:"precipMm"`
	Condition   Condition `json:"condition"`

	// Providers contributing to this snapshot.
	Providers []ProviderContribution `json:"providers,omitempty"`
}

// InUnit returns a copy of the snapshot with its temperature expressed in u.
// Snapshots produced by the service are always in Celsius.
func (s WeatherSnapshot) InUnit(u Unit) WeatherSnapshot {
	from := s.Unit
	if from == "" {
		from = Celsius
	}
	if from == u || u == "" {
		return s
	}
	out := s
	switch u {
	case Fahrenheit:
		out.Temperature = s.Temperature*9/5 + 32
	case Celsius:
		out.Temperature = (s.Temperature - 32) * 5 / 9
	default:
		return s
	}
	out.Unit = u
	return out
}

// ProviderContribution describes data coming from a single provider used in aggregation.
type ProviderContribution struct {
	ProviderName string    `json:"provider"`
	Timestamp    time.Time `json:"timestamp"`
}
