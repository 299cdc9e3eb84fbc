package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/observability"
)

// ErrNoProviders is returned when a fetch is attempted without providers.
var ErrNoProviders = errors.New("no weather providers configured")

// ErrNoForecast is returned when no provider produced forecast data.
var ErrNoForecast = errors.New("no forecast data available")

// Service orchestrates fetching from multiple providers and persisting snapshots.
type Service struct {
	store      Store
	providers  []Provider
	airQuality AirQualityProvider
	geocoder   ReverseGeocoder
	metrics    *observability.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithAirQuality enriches snapshots with an AQI.
func WithAirQuality(p AirQualityProvider) Option {
	return func(s *Service) { s.airQuality = p }
}

// WithReverseGeocoder enriches snapshots with a place name.
func WithReverseGeocoder(g ReverseGeocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// WithMetrics records provider outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a new Service.
func NewService(store Store, providers []Provider, opts ...Option) *Service {
	s := &Service{
		store:     store,
		providers: providers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchAndStore fetches data from all providers concurrently for the given location,
// aggregates successful readings, enriches them and stores a snapshot.
func (s *Service) FetchAndStore(ctx context.Context, loc Location) error {
	_, err := s.refresh(ctx, loc)
	return err
}

func (s *Service) refresh(ctx context.Context, loc Location) (WeatherSnapshot, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		readings []ProviderReading
	)

	logger := log.WithField("location", loc.Key())
	if len(s.providers) == 0 {
		logger.Error("weather: no providers available")
		return WeatherSnapshot{}, ErrNoProviders
	}

	for _, p := range s.providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()

			r, err := p.Fetch(ctx, loc)
			s.metrics.ProviderFetch(p.Name(), err)
			if err != nil {
				// Log and continue; we want partial success when possible.
				logger.WithError(err).WithField("provider", p.Name()).Warn("weather: provider fetch failed")
				return
			}

			mu.Lock()
			readings = append(readings, r)
			mu.Unlock()
		}(p)
	}

	wg.Wait()

	if len(readings) == 0 {
		// Do not overwrite the last good snapshot.
		logger.Warn("weather: no successful provider readings; keeping last good snapshot")
		return WeatherSnapshot{}, fmt.Errorf("all %d providers failed for %s", len(s.providers), loc.Key())
	}

	snapshot := AggregateReadings(loc, readings)
	s.enrich(ctx, &snapshot)
	s.store.SaveSnapshot(loc, snapshot)
	logger.WithField("condition", string(snapshot.Condition)).Debug("weather: snapshot stored")
	return snapshot, nil
}

// enrich adds best-effort extras; failures leave the fields empty.
func (s *Service) enrich(ctx context.Context, snap *WeatherSnapshot) {
	if s.airQuality != nil {
		aqi, err := s.airQuality.AirQuality(ctx, snap.Location)
		if err != nil {
			log.WithError(err).Debug("weather: air quality unavailable")
		} else {
			snap.AQI = &aqi
		}
	}
	if s.geocoder != nil && snap.Location.HasCoordinates() {
		name, err := s.geocoder.PlaceName(ctx, snap.Location)
		if err != nil {
			log.WithError(err).Debug("weather: reverse geocoding unavailable")
		} else {
			snap.PlaceName = name
		}
	}
}

// Current returns the cached snapshot for loc, fetching it on a cache miss.
func (s *Service) Current(ctx context.Context, loc Location) (WeatherSnapshot, error) {
	if snap, err := s.store.GetLatest(loc); err == nil {
		return snap, nil
	}
	return s.refresh(ctx, loc)
}

// GetForecast returns up to hours hourly points from the first provider that
// serves forecasts.
func (s *Service) GetForecast(ctx context.Context, loc Location, hours int) (Forecast, error) {
	if hours <= 0 {
		return nil, fmt.Errorf("hours must be greater than zero")
	}

	for _, p := range s.providers {
		fp, ok := p.(ForecastProvider)
		if !ok {
			continue
		}
		forecast, err := fp.FetchForecast(ctx, loc, hours)
		s.metrics.ProviderFetch(p.Name(), err)
		if err != nil {
			log.WithError(err).WithField("provider", p.Name()).Warn("weather: forecast failed")
			continue
		}
		if len(forecast) == 0 {
			continue
		}
		if len(forecast) > hours {
			forecast = forecast[:hours]
		}
		return forecast, nil
	}

	return nil, ErrNoForecast
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(loc Location) (WeatherSnapshot, error) {
	return s.store.GetLatest(loc)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(loc Location, from, to time.Time) ([]WeatherSnapshot, error) {
	return s.store.GetRange(loc, from, to)
}
