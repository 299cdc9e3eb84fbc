package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/weather"
)

// NominatimGeocoder reverse geocodes coordinates through OpenStreetMap Nominatim.
// Nominatim requires an identifying User-Agent.
type NominatimGeocoder struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewNominatimGeocoder(client *http.Client, userAgent string) *NominatimGeocoder {
	cfg := defaultHTTPConfig(client)
	cfg.UserAgent = userAgent
	// one request per second policy; do not hammer on failures
	cfg.Backoff.MaxRetries = 1
	return &NominatimGeocoder{
		baseURL: "https://nominatim.openstreetmap.org/reverse",
		httpCfg: cfg,
		circuit: newBreaker("nominatim"),
	}
}

// PlaceName returns "City, Country" for the location, falling back to the
// full display name.
func (g *NominatimGeocoder) PlaceName(ctx context.Context, loc weather.Location) (string, error) {
	if !loc.HasCoordinates() {
		return "", fmt.Errorf("nominatim requires latitude and longitude")
	}
	values := url.Values{}
	values.Set("format", "jsonv2")
	values.Set("zoom", "10")
	values.Set("lat", strconv.FormatFloat(*loc.Lat, 'f', 5, 64))
	values.Set("lon", strconv.FormatFloat(*loc.Lon, 'f', 5, 64))

	var payload struct {
		DisplayName string `json:"display_name"`
		Address     struct {
			City    string `json:"city"`
			Town    string `json:"town"`
			Village string `json:"village"`
			Country string `json:"country"`
		} `json:"address"`
	}
	if err := getJSON(ctx, g.httpCfg, g.circuit, g.baseURL+"?"+values.Encode(), &payload); err != nil {
		return "", err
	}

	locality := firstNonEmpty(payload.Address.City, payload.Address.Town, payload.Address.Village)
	switch {
	case locality != "" && payload.Address.Country != "":
		return locality + ", " + payload.Address.Country, nil
	case payload.DisplayName != "":
		return payload.DisplayName, nil
	default:
		return "", fmt.Errorf("nominatim: no place found")
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
