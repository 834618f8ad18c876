package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang/glog"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-dashboard/internal/locations"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

type AppConfig struct {
	Port string `validate:"required,numeric"`

	OpenWeatherAPIKey string
	WeatherAPIKey     string
	GeocoderAPIKey    string

	// HTTPTimeout bounds a single provider request; FetchTimeout bounds a whole refresh.
	HTTPTimeout  time.Duration `validate:"gt=0"`
	FetchTimeout time.Duration `validate:"gt=0"`

	// Storage backend for preferences.
	StorageDriver string `validate:"oneof=memory sqlite"`
	StoragePath   string `validate:"required_if=StorageDriver sqlite"`

	// Retention of the fetched-snapshot history.
	StoreMaxHistory int           `validate:"gte=0"` // per location, 0 = unlimited
	StoreMaxAge     time.Duration `validate:"gte=0"` // 0 = unlimited

	// Freshness tuning.
	CacheTTL        time.Duration `validate:"gt=0"`
	RefreshCooldown time.Duration `validate:"gt=0"`
	DebounceDelay   time.Duration `validate:"gt=0"`

	// Defaults for the user-editable settings.
	DefaultRefreshInterval time.Duration `validate:"gte=1m"`
	DefaultUnit            weather.Unit  `validate:"oneof=celsius fahrenheit"`

	// Locations the user can pick from, and the home location.
	Locations []weather.Location
	Home      *weather.Location

	// Device location, when the host knows it at start-up.
	DeviceLat *float64
	DeviceLon *float64
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		glog.Infof("config: no .env file loaded: %v", err)
	}
	cfg := &AppConfig{
		Port:              getenvDefault("PORT", "8080"),
		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		WeatherAPIKey:     os.Getenv("WEATHERAPI_API_KEY"),
		GeocoderAPIKey:    os.Getenv("GEOCODER_API_KEY"),
		StorageDriver:     getenvDefault("STORAGE_DRIVER", "sqlite"),
		StoragePath:       getenvDefault("STORAGE_PATH", "weather-dashboard.db"),
		DefaultUnit:       weather.Unit(getenvDefault("DEFAULT_TEMPERATURE_UNIT", string(weather.Celsius))),
		StoreMaxHistory:   getenvInt("STORE_MAX_HISTORY", 96), // roughly 24h at 15-minute intervals
	}

	durations := []struct {
		dst *time.Duration
		key string
		def string
	}{
		{&cfg.HTTPTimeout, "HTTP_TIMEOUT", "10s"},
		{&cfg.FetchTimeout, "FETCH_TIMEOUT", "30s"},
		{&cfg.StoreMaxAge, "STORE_MAX_AGE", "24h"},
		{&cfg.CacheTTL, "CACHE_TTL", "5m"},
		{&cfg.RefreshCooldown, "REFRESH_COOLDOWN", "30s"},
		{&cfg.DebounceDelay, "DEBOUNCE_DELAY", "300ms"},
		{&cfg.DefaultRefreshInterval, "DEFAULT_REFRESH_INTERVAL", "15m"},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenvDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	locs, err := loadLocations(os.Getenv("WEATHER_LOCATION_CITY"), os.Getenv("WEATHER_LOCATION_COUNTRY"))
	if err != nil {
		return nil, err
	}
	cfg.Locations = locs

	if city := strings.TrimSpace(os.Getenv("HOME_LOCATION_CITY")); city != "" {
		home := locations.NewLocation(city, os.Getenv("HOME_LOCATION_COUNTRY"))
		cfg.Home = &home
	}

	lat, latOK := getenvFloat("DEVICE_LAT")
	lon, lonOK := getenvFloat("DEVICE_LON")
	if latOK != lonOK {
		return nil, fmt.Errorf("DEVICE_LAT and DEVICE_LON must be set together")
	}
	if latOK {
		cfg.DeviceLat, cfg.DeviceLon = &lat, &lon
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadLocations(city, country string) ([]weather.Location, error) {
	if strings.TrimSpace(city) == "" {
		return nil, nil
	}
	cities := strings.Split(city, ",")
	countries := strings.Split(country, ",")
	if len(cities) != len(countries) {
		return nil, fmt.Errorf("number of cities and countries must be the same")
	}
	var locs []weather.Location
	for i := range cities {
		if strings.TrimSpace(cities[i]) == "" {
			continue
		}
		locs = append(locs, locations.NewLocation(cities[i], countries[i]))
	}
	return locs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
		glog.Warningf("config: ignoring %s=%q: %v", key, v, err)
	}
	return def
}

func getenvFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		glog.Warningf("config: ignoring %s=%q: %v", key, v, err)
		return 0, false
	}
	return f, true
}
