package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/community"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/weather"
)

// openMeteoTimeLayout is Open-Meteo's default "iso8601" format, always GMT here.
const openMeteoTimeLayout = "2006-01-02T15:04"

// windyThresholdKmh turns a dry clear/cloudy code into Windy.
const windyThresholdKmh = 40.0

// OpenMeteoProvider implements weather.Provider and weather.ForecastProvider for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

type openMeteoCurrent struct {
	Time            string   `json:"time"`
	Temperature     float64  `json:"temperature_2m"`
	Humidity        float64  `json:"relative_humidity_2m"`
	WindSpeed       float64  `json:"wind_speed_10m"`
	WeatherCode     int      `json:"weather_code"`
	UVIndex         *float64 `json:"uv_index"`
	Precipitation   float64  `json:"precipitation"`
	SurfacePressure float64  `json:"surface_pressure"`
}

type openMeteoHourly struct {
	Time                     []string   `json:"time"`
	Temperature              []float64  `json:"temperature_2m"`
	Humidity                 []float64  `json:"relative_humidity_2m"`
	WindSpeed                []float64  `json:"wind_speed_10m"`
	PrecipitationProbability []float64  `json:"precipitation_probability"`
	WeatherCode              []int      `json:"weather_code"`
	UVIndex                  []*float64 `json:"uv_index"`
}

type openMeteoDaily struct {
	Time    []string `json:"time"`
	Sunrise []string `json:"sunrise"`
	Sunset  []string `json:"sunset"`
}

type openMeteoResponse struct {
	Current *openMeteoCurrent `json:"current"`
	Hourly  *openMeteoHourly  `json:"hourly"`
	Daily   *openMeteoDaily   `json:"daily"`
}

func (p *OpenMeteoProvider) query(loc weather.Location, extra url.Values) (string, error) {
	if !loc.HasCoordinates() {
		return "", fmt.Errorf("openmeteo requires latitude and longitude")
	}
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(*loc.Lat, 'f', 4, 64))
	values.Set("longitude", strconv.FormatFloat(*loc.Lon, 'f', 4, 64))
	values.Set("timezone", "GMT")
	values.Set("wind_speed_unit", "kmh")
	for k, v := range extra {
		values[k] = v
	}
	return fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc weather.Location) (weather.ProviderReading, error) {
	u, err := p.query(loc, url.Values{
		"current":       {"temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code,uv_index,precipitation,surface_pressure"},
		"daily":         {"sunrise,sunset"},
		"forecast_days": {"1"},
	})
	if err != nil {
		return weather.ProviderReading{}, err
	}

	var payload openMeteoResponse
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return weather.ProviderReading{}, err
	}
	if payload.Current == nil {
		return weather.ProviderReading{}, fmt.Errorf("openmeteo: response has no current block")
	}

	cur := payload.Current
	ts, err := time.Parse(openMeteoTimeLayout, cur.Time)
	if err != nil {
		ts = time.Now().UTC()
	}

	reading := weather.ProviderReading{
		ProviderName: p.name,
		Timestamp:    ts.UTC(),
		TemperatureC: cur.Temperature,
		HumidityPct:  cur.Humidity,
		WindSpeedKmh: cur.WindSpeed,
		PressureHpa:  cur.SurfacePressure,
		PrecipMm:     cur.Precipitation,
		UVIndex:      cur.UVIndex,
		Condition:    mapOpenMeteoCondition(cur.WeatherCode, cur.WindSpeed),
	}

	if d := payload.Daily; d != nil {
		reading.Sunrise = parseFirst(d.Sunrise)
		reading.Sunset = parseFirst(d.Sunset)
	}

	return reading, nil
}

// FetchForecast returns the next hours hourly points.
func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, loc weather.Location, hours int) (weather.Forecast, error) {
	u, err := p.query(loc, url.Values{
		"hourly":         {"temperature_2m,relative_humidity_2m,wind_speed_10m,precipitation_probability,weather_code,uv_index"},
		"forecast_hours": {strconv.Itoa(hours)},
	})
	if err != nil {
		return nil, err
	}

	var payload openMeteoResponse
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return nil, err
	}
	h := payload.Hourly
	if h == nil {
		return nil, fmt.Errorf("openmeteo: response has no hourly block")
	}

	forecast := make(weather.Forecast, 0, len(h.Time))
	for i, raw := range h.Time {
		ts, err := time.Parse(openMeteoTimeLayout, raw)
		if err != nil {
			continue
		}
		pt := weather.HourlyPoint{
			Time:              ts.UTC(),
			TemperatureC:      at(h.Temperature, i),
			HumidityPct:       at(h.Humidity, i),
			WindSpeedKmh:      at(h.WindSpeed, i),
			PrecipProbability: at(h.PrecipitationProbability, i),
		}
		if i < len(h.UVIndex) {
			pt.UVIndex = h.UVIndex[i]
		}
		code := -1
		if i < len(h.WeatherCode) {
			code = h.WeatherCode[i]
		}
		pt.Condition = mapOpenMeteoCondition(code, pt.WindSpeedKmh)
		forecast = append(forecast, pt)
	}
	return forecast, nil
}

func at(xs []float64, i int) float64 {
	if i < len(xs) {
		return xs[i]
	}
	return 0
}

func parseFirst(xs []string) *time.Time {
	if len(xs) == 0 {
		return nil
	}
	ts, err := time.Parse(openMeteoTimeLayout, xs[0])
	if err != nil {
		return nil
	}
	ts = ts.UTC()
	return &ts
}

// mapOpenMeteoCondition maps WMO weather codes onto the community label set.
func mapOpenMeteoCondition(code int, windKmh float64) weather.Condition {
	var cond weather.Condition
	switch {
	case code == 0 || code == 1:
		cond = community.ConditionSunny
	case code == 2 || code == 3 || code == 45 || code == 48:
		cond = community.ConditionCloudy
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		cond = community.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		cond = community.ConditionSnow
	case code >= 95 && code <= 99:
		cond = community.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
	if windKmh >= windyThresholdKmh && (cond == community.ConditionSunny || cond == community.ConditionCloudy) {
		return community.ConditionWindy
	}
	return cond
}
