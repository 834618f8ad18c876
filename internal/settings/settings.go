package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang/glog"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Storage keys.
const (
	KeyLastLocation    = "weather.lastLocation"
	KeyRefreshInterval = "weather.refreshInterval"
	KeyTemperatureUnit = "weather.temperatureUnit"
)

// ErrInvalid is returned for values that fail validation.
var ErrInvalid = errors.New("invalid settings")

var validate = validator.New()

// Values are the user-editable dashboard settings.
type Values struct {
	RefreshIntervalMinutes int          `json:"refreshIntervalMinutes" validate:"min=1,max=1440"`
	TemperatureUnit        weather.Unit `json:"temperatureUnit" validate:"oneof=celsius fahrenheit"`
}

// RefreshInterval returns the interval as a duration.
func (v Values) RefreshInterval() time.Duration {
	return time.Duration(v.RefreshIntervalMinutes) * time.Minute
}

// Validate checks v against its constraints.
func (v Values) Validate() error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Settings reads and writes typed preferences through a Storage.
type Settings struct {
	storage  Storage
	defaults Values

	mu        sync.Mutex
	listeners []func(Values)
}

// New creates Settings over storage. defaults are returned for keys that are
// missing or hold something unusable.
func New(storage Storage, defaults Values) *Settings {
	return &Settings{storage: storage, defaults: defaults}
}

// LastLocation returns the last viewed location id.
func (s *Settings) LastLocation(ctx context.Context) (string, bool, error) {
	v, ok, err := s.storage.Get(ctx, KeyLastLocation)
	if err != nil || !ok || v == "" {
		return "", false, err
	}
	return v, true, nil
}

// SetLastLocation stores the last viewed location id.
func (s *Settings) SetLastLocation(ctx context.Context, id string) error {
	return s.storage.Set(ctx, KeyLastLocation, id)
}

// Load returns the stored values, falling back to defaults per key.
func (s *Settings) Load(ctx context.Context) (Values, error) {
	out := s.defaults

	raw, ok, err := s.storage.Get(ctx, KeyRefreshInterval)
	if err != nil {
		return out, err
	}
	if ok {
		n, convErr := strconv.Atoi(raw)
		candidate := Values{RefreshIntervalMinutes: n, TemperatureUnit: weather.Celsius}
		if convErr == nil && candidate.Validate() == nil {
			out.RefreshIntervalMinutes = n
		} else {
			glog.Warningf("settings: ignoring stored refresh interval %q", raw)
		}
	}

	raw, ok, err = s.storage.Get(ctx, KeyTemperatureUnit)
	if err != nil {
		return out, err
	}
	if ok {
		switch u := weather.Unit(raw); u {
		case weather.Celsius, weather.Fahrenheit:
			out.TemperatureUnit = u
		default:
			glog.Warningf("settings: ignoring stored temperature unit %q", raw)
		}
	}

	return out, nil
}

// Save validates and stores v, then notifies listeners.
func (s *Settings) Save(ctx context.Context, v Values) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if err := s.storage.Set(ctx, KeyRefreshInterval, strconv.Itoa(v.RefreshIntervalMinutes)); err != nil {
		return err
	}
	if err := s.storage.Set(ctx, KeyTemperatureUnit, string(v.TemperatureUnit)); err != nil {
		return err
	}

	s.mu.Lock()
	listeners := append([]func(Values){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(v)
	}
	return nil
}

// OnChange registers fn to be called after every successful Save.
func (s *Settings) OnChange(fn func(Values)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
