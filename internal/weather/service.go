package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
)

var (
	// ErrUnknownLocation is returned when a location id does not resolve.
	ErrUnknownLocation = errors.New("unknown location")
	// ErrNoProviders is returned when the service has no providers to ask.
	ErrNoProviders = errors.New("no weather providers configured")
	// ErrNoReadings is returned when every provider failed.
	ErrNoReadings = errors.New("no successful provider readings")
)

// Service fetches readings from all providers concurrently and aggregates them.
// It is the data source behind the dashboard's refreshes.
type Service struct {
	resolver  Resolver
	providers []Provider
	store     Store
	now       func() time.Time
}

// NewService creates a new Service.
func NewService(resolver Resolver, providers []Provider) *Service {
	return &Service{
		resolver:  resolver,
		providers: providers,
		now:       time.Now,
	}
}

// WithStore makes the service record every aggregated snapshot in st.
func (s *Service) WithStore(st Store) *Service {
	s.store = st
	return s
}

// FetchByID resolves id and fetches a fresh snapshot for it.
func (s *Service) FetchByID(ctx context.Context, id string) (WeatherSnapshot, error) {
	if s.resolver == nil {
		return WeatherSnapshot{}, fmt.Errorf("%w: %q", ErrUnknownLocation, id)
	}
	loc, ok := s.resolver.Resolve(id)
	if !ok {
		return WeatherSnapshot{}, fmt.Errorf("%w: %q", ErrUnknownLocation, id)
	}
	return s.Fetch(ctx, loc)
}

// Fetch asks every provider for loc in parallel and aggregates the successful
// readings. Partial failure is tolerated; total failure returns ErrNoReadings
// wrapping the last provider error.
func (s *Service) Fetch(ctx context.Context, loc Location) (WeatherSnapshot, error) {
	if len(s.providers) == 0 {
		return WeatherSnapshot{}, ErrNoProviders
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		readings []ProviderReading
		lastErr  error
	)

	glog.V(1).Infof("weather: fetching %s from %d providers", loc.ID, len(s.providers))

	for _, p := range s.providers {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()

			r, err := p.Fetch(ctx, loc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				glog.Warningf("weather: provider %s failed for %s: %v", p.Name(), loc.ID, err)
				lastErr = fmt.Errorf("%s: %w", p.Name(), err)
				return
			}
			if r.ProviderName == "" {
				r.ProviderName = p.Name()
			}
			readings = append(readings, r)
		}()
	}

	wg.Wait()

	if len(readings) == 0 {
		if lastErr == nil {
			return WeatherSnapshot{}, ErrNoReadings
		}
		return WeatherSnapshot{}, fmt.Errorf("%w: %w", ErrNoReadings, lastErr)
	}

	snap := AggregateReadings(loc, readings, s.now())
	if s.store != nil {
		s.store.SaveSnapshot(snap)
	}
	return snap, nil
}
