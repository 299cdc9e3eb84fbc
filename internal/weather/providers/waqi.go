package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/weather"
)

// ErrNoAQI is returned when the station reports no index ("-").
var ErrNoAQI = errors.New("air quality index unavailable")

// WAQIProvider reads the air quality index from the World Air Quality Index API.
type WAQIProvider struct {
	token   string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWAQIProvider(client *http.Client, token string) *WAQIProvider {
	return &WAQIProvider{
		token:   token,
		baseURL: "https://api.waqi.info/feed",
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("waqi"),
	}
}

func (p *WAQIProvider) AirQuality(ctx context.Context, loc weather.Location) (int, error) {
	if p.token == "" {
		return 0, fmt.Errorf("waqi token is not configured")
	}
	if !loc.HasCoordinates() {
		return 0, fmt.Errorf("waqi requires latitude and longitude")
	}

	u := fmt.Sprintf("%s/geo:%f;%f/?%s", p.baseURL, *loc.Lat, *loc.Lon, url.Values{"token": {p.token}}.Encode())

	var payload struct {
		Status string `json:"status"`
		Data   struct {
			AQI json.RawMessage `json:"aqi"`
		} `json:"data"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return 0, err
	}
	if payload.Status != "ok" {
		return 0, fmt.Errorf("waqi: status %q", payload.Status)
	}

	var aqi int
	if err := json.Unmarshal(payload.Data.AQI, &aqi); err != nil {
		return 0, ErrNoAQI
	}
	return aqi, nil
}
