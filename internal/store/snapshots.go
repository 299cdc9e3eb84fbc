package store

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/weather"
)

var (
	// ErrNotFound is returned when no data is available for a given location.
	ErrNotFound = errors.New("no weather data for location")
)

// SnapshotStore is a concurrency-safe in-memory cache of official weather
// snapshots, keyed by location.
type SnapshotStore struct {
	mu    sync.RWMutex
	clock clockwork.Clock

	// key: location key, value: time-ordered snapshots
	data map[string][]weather.WeatherSnapshot

	maxHistory int           // max number of snapshots per location
	maxAge     time.Duration // optional max age for snapshots
}

// NewSnapshotStore creates a new SnapshotStore with optional limits.
// If maxHistory or maxAge is <= 0, that limit is disabled.
func NewSnapshotStore(maxHistory int, maxAge time.Duration, clock clockwork.Clock) *SnapshotStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SnapshotStore{
		clock:      clock,
		data:       make(map[string][]weather.WeatherSnapshot),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// SaveSnapshot appends a new snapshot for a location and enforces retention.
func (s *SnapshotStore) SaveSnapshot(loc weather.Location, snapshot weather.WeatherSnapshot) {
	key := loc.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.data[key], snapshot)

	if s.maxHistory > 0 && len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}

	if s.maxAge > 0 {
		cutoff := s.clock.Now().Add(-s.maxAge)
		i := 0
		for i < len(history) && history[i].Timestamp.Before(cutoff) {
			i++
		}
		history = history[i:]
	}

	s.data[key] = history
}

// GetLatest returns the most recent snapshot for a location.
func (s *SnapshotStore) GetLatest(loc weather.Location) (weather.WeatherSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[loc.Key()]
	if len(history) == 0 {
		return weather.WeatherSnapshot{}, ErrNotFound
	}
	return history[len(history)-1], nil
}

// GetRange returns all snapshots for a location between from and to (inclusive).
func (s *SnapshotStore) GetRange(loc weather.Location, from, to time.Time) ([]weather.WeatherSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []weather.WeatherSnapshot
	for _, snap := range s.data[loc.Key()] {
		if !snap.Timestamp.Before(from) && !snap.Timestamp.After(to) {
			result = append(result, snap)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
