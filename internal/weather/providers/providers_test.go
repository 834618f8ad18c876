package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

func TestOpenWeatherProviderFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Paris,FR" {
			t.Errorf("expected q=Paris,FR, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"dt":1714564800,"main":{"temp":18.5,"humidity":40,"pressure":1012},
			"wind":{"speed":3.2},"rain":{"1h":0.4},"weather":[{"main":"Rain"}]}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), "key").WithBaseURL(srv.URL)
	r, err := p.Fetch(context.Background(), weather.Location{ID: "paris", City: "Paris", Country: "FR"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TemperatureC != 18.5 || r.Condition != weather.ConditionRain || r.PrecipMm != 0.4 {
		t.Errorf("unexpected reading: %+v", r)
	}
	if !r.Timestamp.Equal(time.Unix(1714564800, 0)) {
		t.Errorf("unexpected timestamp: %v", r.Timestamp)
	}
}

func TestOpenWeatherProviderRequiresKey(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, "")
	if _, err := p.Fetch(context.Background(), weather.Location{City: "Paris"}); !errors.Is(err, errMissingAPIKey) {
		t.Fatalf("expected errMissingAPIKey, got %v", err)
	}
}

func TestWeatherAPIProviderUsesCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "48.8566,2.3522" {
			t.Errorf("expected coordinates query, got %q", got)
		}
		_, _ = w.Write([]byte(`{"current":{"temp_c":20,"humidity":55,"wind_kph":36,"pressure_mb":1000,
			"precip_mm":0,"condition":{"text":"Partly cloudy"}}}`))
	}))
	defer srv.Close()

	lat, lon := 48.8566, 2.3522
	p := NewWeatherAPIProvider(srv.Client(), "key").WithBaseURL(srv.URL)
	r, err := p.Fetch(context.Background(), weather.Location{ID: "paris", Lat: &lat, Lon: &lon})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.WindSpeedMS != 10 || r.Condition != weather.ConditionCloudy {
		t.Errorf("unexpected reading: %+v", r)
	}
}

func TestOpenMeteoProviderGeocodesOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("latitude"); got != "35.6762" {
			t.Errorf("expected geocoded latitude, got %q", got)
		}
		_, _ = w.Write([]byte(`{"current":{"time":"2024-05-01T12:00","temperature_2m":22,
			"relative_humidity_2m":60,"surface_pressure":1008,"precipitation":0,"wind_speed_10m":2,"weather_code":0}}`))
	}))
	defer srv.Close()

	var calls int32
	geocode := func(city, country string) (float64, float64, error) {
		atomic.AddInt32(&calls, 1)
		return 35.6762, 139.6503, nil
	}

	p := NewOpenMeteoProvider(srv.Client(), geocode).WithBaseURL(srv.URL)
	loc := weather.Location{ID: "tokyo", City: "Tokyo", Country: "JP"}
	for i := 0; i < 2; i++ {
		r, err := p.Fetch(context.Background(), loc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Condition != weather.ConditionClear || r.TemperatureC != 22 {
			t.Errorf("unexpected reading: %+v", r)
		}
		if !r.Timestamp.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected timestamp: %v", r.Timestamp)
		}
	}
	if calls != 1 {
		t.Errorf("expected one geocode call, got %d", calls)
	}
}

func TestOpenMeteoProviderWithoutGeocoder(t *testing.T) {
	p := NewOpenMeteoProvider(http.DefaultClient, nil)
	if _, err := p.Fetch(context.Background(), weather.Location{City: "Tokyo"}); err == nil {
		t.Fatal("expected error for location without coordinates")
	}
}

func TestDoRequestDoesNotRetryRateLimit(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(srv.Client(), "key").WithBaseURL(srv.URL)
	_, err := p.Fetch(context.Background(), weather.Location{City: "Oslo"})
	if !errors.Is(err, errRateLimited) {
		t.Fatalf("expected errRateLimited, got %v", err)
	}
	if hits != 1 {
		t.Errorf("expected a single attempt, got %d", hits)
	}
}

func TestDoRequestRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"current":{"temp_c":1,"condition":{"text":"Light snow"}}}`))
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(srv.Client(), "key").WithBaseURL(srv.URL)
	r, err := p.Fetch(context.Background(), weather.Location{City: "Oslo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Condition != weather.ConditionSnow {
		t.Errorf("expected snow, got %s", r.Condition)
	}
	if hits != 2 {
		t.Errorf("expected two attempts, got %d", hits)
	}
}

func TestConditionMapping(t *testing.T) {
	cases := []struct {
		text string
		want weather.Condition
	}{
		{"Patchy light rain with thunder", weather.ConditionStorm},
		{"Heavy snow", weather.ConditionSnow},
		{"Freezing fog", weather.ConditionMist},
		{"Overcast", weather.ConditionCloudy},
		{"Sunny", weather.ConditionClear},
		{"", weather.ConditionUnknown},
	}
	for _, tc := range cases {
		if got := mapWeatherAPICondition(tc.text); got != tc.want {
			t.Errorf("mapWeatherAPICondition(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}

	if got := mapOpenMeteoCondition(48); got != weather.ConditionMist {
		t.Errorf("expected mist for code 48, got %s", got)
	}
	if got := mapOpenWeatherCondition("Thunderstorm"); got != weather.ConditionStorm {
		t.Errorf("expected storm, got %s", got)
	}
}
