package weather

import (
	"context"
	"time"
)

// ProviderReading represents a single provider's normalized reading
// that can be aggregated into a WeatherSnapshot.
type ProviderReading struct {
	ProviderName string
	Timestamp    time.Time

	TemperatureC float64
	HumidityPct  float64
	WindSpeedKmh float64
	PressureHpa  float64
	PrecipMm     float64
	UVIndex      *float64
	Sunrise      *time.Time
	Sunset       *time.Time
	Condition    Condition
}

// Provider abstracts a current-conditions source (e.g. Open-Meteo).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc Location) (ProviderReading, error)
}

// ForecastProvider is implemented by providers that also serve hourly forecasts.
type ForecastProvider interface {
	FetchForecast(ctx context.Context, loc Location, hours int) (Forecast, error)
}

// AirQualityProvider returns an AQI for a location.
type AirQualityProvider interface {
	AirQuality(ctx context.Context, loc Location) (int, error)
}

// ReverseGeocoder turns coordinates into a display name.
type ReverseGeocoder interface {
	PlaceName(ctx context.Context, loc Location) (string, error)
}

// Store is the contract the snapshot cache must satisfy.
type Store interface {
	SaveSnapshot(loc Location, snapshot WeatherSnapshot)
	GetLatest(loc Location) (WeatherSnapshot, error)
	GetRange(loc Location, from, to time.Time) ([]WeatherSnapshot, error)
}
