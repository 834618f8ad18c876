package freshness

import (
	"context"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const (
	// CurrentLocationID names the device-derived location.
	CurrentLocationID = "current"
	// DefaultLocationKey keys the cache and throttle when no location of any
	// kind is configured.
	DefaultLocationKey = "default"
)

// State describes what the dashboard is showing for the active location.
type State string

const (
	StateNoData                         State = "no_data"
	StateShowingCachedFresh             State = "showing_cached_fresh"
	StateShowingCachedStaleRevalidating State = "showing_cached_stale_revalidating"
	StateShowingLive                    State = "showing_live"
	StateShowingError                   State = "showing_error"

	// StateShowingCachedStale shows a stale payload with no refresh
	// outstanding: the throttle refused it or it failed.
	StateShowingCachedStale State = "showing_cached_stale"
	// StateShowingCachedRevalidating shows a fresh payload while a manual
	// refresh is outstanding.
	StateShowingCachedRevalidating State = "showing_cached_revalidating"
)

// Fetcher fetches a fresh payload for a location id.
type Fetcher interface {
	Fetch(ctx context.Context, locationID string) (weather.WeatherSnapshot, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, locationID string) (weather.WeatherSnapshot, error)

func (f FetcherFunc) Fetch(ctx context.Context, locationID string) (weather.WeatherSnapshot, error) {
	return f(ctx, locationID)
}

// Directory lists the locations the user can pick from.
type Directory interface {
	SavedLocations() []weather.Location
	Home() (weather.Location, bool)
	Current() (weather.Location, bool)
}

// Preferences persists the last viewed location.
type Preferences interface {
	LastLocation(ctx context.Context) (string, bool, error)
	SetLastLocation(ctx context.Context, id string) error
}

// View is what the controller exposes to the UI layer.
type View struct {
	LocationID        string                   `json:"locationId"`
	State             State                    `json:"state"`
	Payload           *weather.WeatherSnapshot `json:"payload,omitempty"`
	FetchedAt         *time.Time               `json:"fetchedAt,omitempty"`
	Revalidating      bool                     `json:"revalidating"`
	Loading           bool                     `json:"loading"`
	Error             string                   `json:"error,omitempty"`
	CooldownRemaining time.Duration            `json:"-"`
}
