package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// GeocodeFunc resolves a city and country to coordinates.
type GeocodeFunc func(city, country string) (lat, lon float64, err error)

// GoogleGeocoder returns a GeocodeFunc backed by the Google geocoding API.
// The geocoder package keeps its key in a package variable, so this sets it.
func GoogleGeocoder(apiKey string) GeocodeFunc {
	geocoder.ApiKey = apiKey
	return func(city, country string) (float64, float64, error) {
		loc, err := geocoder.Geocoding(geocoder.Address{City: city, Country: country})
		if err != nil {
			return 0, 0, fmt.Errorf("geocode %s: %w", cityQuery(city, country), err)
		}
		return loc.Latitude, loc.Longitude, nil
	}
}

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// Open-Meteo only accepts coordinates; locations without them are geocoded
// once and remembered.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	geocode GeocodeFunc

	mu     sync.Mutex
	coords map[string][2]float64
}

// NewOpenMeteoProvider creates the provider. geocode may be nil, in which case
// only locations with coordinates can be fetched.
func NewOpenMeteoProvider(client *http.Client, geocode GeocodeFunc) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: HTTPClientConfig{Client: client, Backoff: defaultBackoff},
		circuit: newBreaker("openmeteo"),
		geocode: geocode,
		coords:  make(map[string][2]float64),
	}
}

// WithBaseURL points the provider at another endpoint.
func (p *OpenMeteoProvider) WithBaseURL(u string) *OpenMeteoProvider {
	p.baseURL = u
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) coordinates(loc weather.Location) (float64, float64, error) {
	if loc.HasCoordinates() {
		return *loc.Lat, *loc.Lon, nil
	}
	if p.geocode == nil {
		return 0, 0, fmt.Errorf("openmeteo requires latitude and longitude")
	}

	key := cityQuery(loc.City, loc.Country)
	p.mu.Lock()
	c, ok := p.coords[key]
	p.mu.Unlock()
	if ok {
		return c[0], c[1], nil
	}

	lat, lon, err := p.geocode(loc.City, loc.Country)
	if err != nil {
		return 0, 0, err
	}
	p.mu.Lock()
	p.coords[key] = [2]float64{lat, lon}
	p.mu.Unlock()
	return lat, lon, nil
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc weather.Location) (weather.ProviderReading, error) {
	lat, lon, err := p.coordinates(loc)
	if err != nil {
		return weather.ProviderReading{}, err
	}

	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	values.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	values.Set("current", "temperature_2m,relative_humidity_2m,surface_pressure,precipitation,wind_speed_10m,weather_code")
	values.Set("wind_speed_unit", "ms")
	values.Set("timezone", "UTC")
	u := p.baseURL + "?" + values.Encode()

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
	if err != nil {
		return weather.ProviderReading{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Current struct {
			Time          string  `json:"time"`
			Temperature   float64 `json:"temperature_2m"`
			Humidity      float64 `json:"relative_humidity_2m"`
			Pressure      float64 `json:"surface_pressure"`
			Precipitation float64 `json:"precipitation"`
			WindSpeed     float64 `json:"wind_speed_10m"`
			WeatherCode   int     `json:"weather_code"`
		} `json:"current"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.ProviderReading{}, fmt.Errorf("openmeteo: decode: %w", err)
	}

	ts, err := time.Parse("2006-01-02T15:04", payload.Current.Time)
	if err != nil {
		ts = time.Now()
	}

	return weather.ProviderReading{
		ProviderName: p.name,
		Timestamp:    ts.UTC(),
		TemperatureC: payload.Current.Temperature,
		HumidityPct:  payload.Current.Humidity,
		WindSpeedMS:  payload.Current.WindSpeed,
		PressureHpa:  payload.Current.Pressure,
		PrecipMm:     payload.Current.Precipitation,
		Condition:    mapOpenMeteoCondition(payload.Current.WeatherCode),
	}, nil
}

// WMO weather interpretation codes, simplified.
func mapOpenMeteoCondition(code int) weather.Condition {
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}
