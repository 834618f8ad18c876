package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	// ErrNotFound is returned when no history is recorded for a location.
	ErrNotFound = errors.New("no weather history for location")
)

// MemoryStore keeps a bounded, time-ordered history of fetched snapshots per
// location id. It is safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]weather.WeatherSnapshot

	maxHistory int           // per location; <= 0 means unlimited
	maxAge     time.Duration // <= 0 means snapshots never age out
	now        func() time.Time
}

// NewMemoryStore creates a MemoryStore with the given retention limits.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string][]weather.WeatherSnapshot),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveSnapshot appends snap to its location's history and enforces retention.
func (s *MemoryStore) SaveSnapshot(snap weather.WeatherSnapshot) {
	id := snap.Location.ID
	if id == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.data[id], snap)

	if s.maxHistory > 0 && len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}

	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for i < len(history) && history[i].Timestamp.Before(cutoff) {
			i++
		}
		history = history[i:]
	}

	if len(history) == 0 {
		delete(s.data, id)
		return
	}
	s.data[id] = history
}

// GetLatest returns the most recent snapshot recorded for id.
func (s *MemoryStore) GetLatest(id string) (weather.WeatherSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[id]
	if len(history) == 0 {
		return weather.WeatherSnapshot{}, ErrNotFound
	}
	return history[len(history)-1], nil
}

// GetRange returns the snapshots for id taken between from and to, inclusive.
func (s *MemoryStore) GetRange(id string, from, to time.Time) ([]weather.WeatherSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []weather.WeatherSnapshot
	for _, snap := range s.data[id] {
		if snap.Timestamp.Before(from) || snap.Timestamp.After(to) {
			continue
		}
		result = append(result, snap)
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
