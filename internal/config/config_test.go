package config

import (
	"testing"
	"time"

	"github.com/i474232898/weather-dashboard/internal/locations"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WEATHER_LOCATION_CITY", "")
	t.Setenv("HOME_LOCATION_CITY", "")
	t.Setenv("DEVICE_LAT", "")
	t.Setenv("DEVICE_LON", "")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CacheTTL != 5*time.Minute || cfg.RefreshCooldown != 30*time.Second || cfg.DebounceDelay != 300*time.Millisecond {
		t.Errorf("unexpected freshness defaults: %+v", cfg)
	}
	if cfg.DefaultRefreshInterval != 15*time.Minute || cfg.DefaultUnit != weather.Celsius {
		t.Errorf("unexpected settings defaults: %+v", cfg)
	}
	if cfg.StoreMaxHistory != 96 || cfg.StoreMaxAge != 24*time.Hour {
		t.Errorf("unexpected retention defaults: %d %s", cfg.StoreMaxHistory, cfg.StoreMaxAge)
	}
	if len(cfg.Locations) != 0 || cfg.Home != nil || cfg.DeviceLat != nil {
		t.Errorf("expected no locations, got %+v", cfg)
	}
}

func TestLoadLocations(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("WEATHER_LOCATION_CITY", "Paris,Tokyo")
	t.Setenv("WEATHER_LOCATION_COUNTRY", "FR,JP")
	t.Setenv("HOME_LOCATION_CITY", "Oslo")
	t.Setenv("HOME_LOCATION_COUNTRY", "NO")
	t.Setenv("DEVICE_LAT", "59.9")
	t.Setenv("DEVICE_LON", "10.7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Locations) != 2 || cfg.Locations[1].ID != locations.IDFor("Tokyo", "JP") {
		t.Errorf("unexpected locations: %+v", cfg.Locations)
	}
	if cfg.Home == nil || cfg.Home.City != "Oslo" {
		t.Errorf("unexpected home: %+v", cfg.Home)
	}
	if cfg.DeviceLat == nil || *cfg.DeviceLat != 59.9 {
		t.Errorf("unexpected device location: %v", cfg.DeviceLat)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"mismatched locations": {"WEATHER_LOCATION_COUNTRY", "FR,JP,US"},
		"bad duration":         {"CACHE_TTL", "soon"},
		"bad driver":           {"STORAGE_DRIVER", "postgres"},
		"negative max age":     {"STORE_MAX_AGE", "-1h"},
		"half device location": {"DEVICE_LAT", "1.5"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("STORAGE_DRIVER", "memory")
			t.Setenv("WEATHER_LOCATION_CITY", "Paris")
			t.Setenv("WEATHER_LOCATION_COUNTRY", "FR")
			t.Setenv("DEVICE_LAT", "")
			t.Setenv("DEVICE_LON", "")
			t.Setenv(kv[0], kv[1])

			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
