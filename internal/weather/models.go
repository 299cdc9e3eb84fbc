package weather

import (
	"fmt"
	"time"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/community"
)

// Condition is the normalized official condition. It shares the community
// label set so both views can be compared.
type Condition = community.Condition

// ConditionUnknown is used when a provider code has no mapping.
const ConditionUnknown Condition = "Unknown"

// Location represents a logical place for which we track weather.
// Either coordinates or City/Country must be provided.
type Location struct {
	Name    string   `json:"name,omitempty"`
	City    string   `json:"city,omitempty"`
	Country string   `json:"country,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// NewPoint builds a coordinate-only Location.
func NewPoint(lat, lon float64) Location {
	return Location{Lat: &lat, Lon: &lon}
}

// HasCoordinates reports whether both Lat and Lon are set.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// Key returns a canonical string key for indexing this location in stores.
// Coordinates are rounded to ~100 m so nearby lookups share a cache entry.
func (l Location) Key() string {
	if l.HasCoordinates() {
		return fmt.Sprintf("%.3f,%.3f", *l.Lat, *l.Lon)
	}
	return l.City + ":" + l.Country
}

// WeatherSnapshot is the normalized, aggregated weather view at a point in time.
type WeatherSnapshot struct {
	Location    Location   `json:"location"`
	PlaceName   string     `json:"placeName,omitempty"`
	Timestamp   time.Time  `json:"timestamp"` // always UTC
	Temperature float64    `json:"temperatureC"`
	Humidity    float64    `json:"humidityPercent"`
	WindSpeed   float64    `json:"windSpeedKmh"`
	Pressure    float64    `json:"pressureHpa"`
	PrecipMM    float64    `json:"precipMm"`
	UVIndex     *float64   `json:"uvIndex,omitempty"`
	AQI         *int       `json:"aqi,omitempty"`
	Sunrise     *time.Time `json:"sunrise,omitempty"`
	Sunset      *time.Time `json:"sunset,omitempty"`
	Condition   Condition  `json:"condition"`

	// Providers contributing to this snapshot.
	Providers []ProviderContribution `json:"providers,omitempty"`
}

// HourlyPoint is one hour of an official forecast.
type HourlyPoint struct {
	Time              time.Time `json:"time"`
	TemperatureC      float64   `json:"temperatureC"`
	HumidityPct       float64   `json:"humidityPercent"`
	WindSpeedKmh      float64   `json:"windSpeedKmh"`
	PrecipProbability float64   `json:"precipProbability"`
	UVIndex           *float64  `json:"uvIndex,omitempty"`
	Condition         Condition `json:"condition"`
}

// Forecast is an hourly forecast ordered by Time ascending.
type Forecast []HourlyPoint

// ProviderContribution describes data coming from a single provider used in aggregation.
type ProviderContribution struct {
	ProviderName string    `json:"provider"`
	Timestamp    time.Time `json:"timestamp"`
}
