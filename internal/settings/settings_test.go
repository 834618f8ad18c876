package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var defaults = Values{RefreshIntervalMinutes: 15, TemperatureUnit: weather.Celsius}

func TestLoadReturnsDefaults(t *testing.T) {
	s := New(NewMemoryStorage(), defaults)

	v, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != defaults {
		t.Errorf("expected defaults, got %+v", v)
	}
	if v.RefreshInterval() != 15*time.Minute {
		t.Errorf("expected 15m, got %s", v.RefreshInterval())
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := New(NewMemoryStorage(), defaults)
	ctx := context.Background()

	var notified []Values
	s.OnChange(func(v Values) { notified = append(notified, v) })

	want := Values{RefreshIntervalMinutes: 5, TemperatureUnit: weather.Fahrenheit}
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if len(notified) != 1 || notified[0] != want {
		t.Errorf("expected one notification with %+v, got %v", want, notified)
	}
}

func TestSaveRejectsInvalidValues(t *testing.T) {
	s := New(NewMemoryStorage(), defaults)
	ctx := context.Background()

	cases := []Values{
		{RefreshIntervalMinutes: 0, TemperatureUnit: weather.Celsius},
		{RefreshIntervalMinutes: 2000, TemperatureUnit: weather.Celsius},
		{RefreshIntervalMinutes: 10, TemperatureUnit: "kelvin"},
	}
	for _, v := range cases {
		if err := s.Save(ctx, v); !errors.Is(err, ErrInvalid) {
			t.Errorf("Save(%+v): expected ErrInvalid, got %v", v, err)
		}
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	storage := NewMemoryStorage()
	ctx := context.Background()
	_ = storage.Set(ctx, KeyRefreshInterval, "soon")
	_ = storage.Set(ctx, KeyTemperatureUnit, "kelvin")

	v, err := New(storage, defaults).Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != defaults {
		t.Errorf("expected defaults for malformed values, got %+v", v)
	}
}

func TestLastLocation(t *testing.T) {
	s := New(NewMemoryStorage(), defaults)
	ctx := context.Background()

	if _, ok, err := s.LastLocation(ctx); ok || err != nil {
		t.Fatalf("expected nothing stored, got ok=%v err=%v", ok, err)
	}
	if err := s.SetLastLocation(ctx, "paris"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id, ok, err := s.LastLocation(ctx)
	if err != nil || !ok || id != "paris" {
		t.Errorf("expected paris, got %q ok=%v err=%v", id, ok, err)
	}
}

func TestSQLiteStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	ctx := context.Background()

	st, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok, err := st.Get(ctx, KeyLastLocation); ok || err != nil {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}
	if err := st.Set(ctx, KeyLastLocation, "nyc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := st.Set(ctx, KeyLastLocation, "tokyo"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Values survive a reopen.
	st, err = NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	v, ok, err := st.Get(ctx, KeyLastLocation)
	if err != nil || !ok || v != "tokyo" {
		t.Errorf("expected tokyo, got %q ok=%v err=%v", v, ok, err)
	}
}

func TestMemoryStorageHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := NewMemoryStorage()
	if err := st.Set(ctx, "k", "v"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
