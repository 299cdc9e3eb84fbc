package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/auth"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/community"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/store"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/subscription"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/weather"
)

const testSecret = "test-secret"

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) Fetch(context.Context, weather.Location) (weather.ProviderReading, error) {
	uv := 6.0
	return weather.ProviderReading{
		ProviderName: "stub",
		Timestamp:    time.Now().UTC(),
		TemperatureC: 12,
		UVIndex:      &uv,
		Condition:    community.ConditionSunny,
	}, nil
}

func (stubProvider) FetchForecast(_ context.Context, _ weather.Location, hours int) (weather.Forecast, error) {
	uv := 3.0
	base := time.Now().UTC().Truncate(time.Hour)
	f := make(weather.Forecast, hours)
	for i := range f {
		f[i] = weather.HourlyPoint{Time: base.Add(time.Duration(i) * time.Hour), UVIndex: &uv, Condition: community.ConditionCloudy}
	}
	return f, nil
}

type stubAQI struct{}

func (stubAQI) AirQuality(context.Context, weather.Location) (int, error) { return 42, nil }

type failingReports struct{}

func (failingReports) Append(context.Context, community.ReportInput) (community.Report, error) {
	return community.Report{}, errors.New("connection refused")
}

func (failingReports) Query(context.Context, community.ReportFilter) ([]community.Report, error) {
	return nil, errors.New("connection refused")
}

type testEnv struct {
	app      *fiber.App
	clock    *clockwork.FakeClock
	verifier *auth.Verifier
}

func newTestEnv(t *testing.T, reports community.ReportStore) *testEnv {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC))
	if reports == nil {
		reports = store.NewMemoryReportStore(0, clock)
	}
	verifier := auth.NewVerifier(testSecret)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, Deps{
		Weather: weather.NewService(
			store.NewSnapshotStore(10, 0, clock),
			[]weather.Provider{stubProvider{}},
			weather.WithAirQuality(stubAQI{}),
		),
		Community:       community.NewService(reports, store.NewMemoryCounterStore(), community.WithClock(clock)),
		Checkout:        subscription.NewCheckout(subscription.CheckoutConfig{}),
		Verifier:        verifier,
		MarkerRetention: community.DefaultMarkerRetention,
		Clock:           clock,
	})
	return &testEnv{app: app, clock: clock, verifier: verifier}
}

func (e *testEnv) token(t *testing.T, userID string, tier subscription.Tier) string {
	t.Helper()
	tok, err := e.verifier.Issue(auth.Identity{UserID: userID, Tier: tier}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, target, token string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func report(conds ...string) fiber.Map {
	return fiber.Map{"conditions": conds, "lat": 46.2044, "lng": 6.1432}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	code, body := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"status":"ok"`)

	code, _ = env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestSubmitReport(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.token(t, "user-1", subscription.TierFree)

	code, body := env.do(t, http.MethodPost, "/api/v1/community/reports", tok, report("rain", "Windy"))
	require.Equal(t, http.StatusCreated, code, string(body))

	var c community.Contribution
	require.NoError(t, json.Unmarshal(body, &c))
	assert.Equal(t, 12, c.Gain)
	assert.Equal(t, 1, c.Rank)
	assert.Equal(t, "user-1", c.Report.UserID)
	assert.Equal(t, []community.Condition{community.ConditionRain, community.ConditionWindy}, c.Report.Conditions)

	code, _ = env.do(t, http.MethodPost, "/api/v1/community/reports", tok, report("Windy", "Rain"))
	assert.Equal(t, http.StatusConflict, code)

	code, body = env.do(t, http.MethodPost, "/api/v1/community/reports", "", report("Rain"))
	require.Equal(t, http.StatusCreated, code)
	require.NoError(t, json.Unmarshal(body, &c))
	assert.Equal(t, community.AnonymousUser, c.Report.UserID)
	assert.Equal(t, 2, c.Rank)
}

func TestSubmitReport_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil)
	url := "/api/v1/community/reports"

	code, _ := env.do(t, http.MethodPost, url, "", report("Fog"))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPost, url, "", report("Rain", "Snow", "Storm", "Windy"))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPost, url, "", fiber.Map{"conditions": []string{"Rain"}, "lat": 91, "lng": 0})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPost, url, "", fiber.Map{"conditions": []string{"Rain"}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPost, url, "bad-token", report("Rain"))
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSubmitReport_StoreDown(t *testing.T) {
	env := newTestEnv(t, failingReports{})

	code, body := env.do(t, http.MethodPost, "/api/v1/community/reports", "", report("Sunny"))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, string(body), "store unavailable")

	code, body = env.do(t, http.MethodGet, "/api/v1/community/consensus", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"hasReports":false`)

	code, body = env.do(t, http.MethodGet, "/api/v1/community/markers", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"markers":[]`)
}

func TestConsensus(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, u := range []string{"a", "b", "c"} {
		code, _ := env.do(t, http.MethodPost, "/api/v1/community/reports", env.token(t, u, subscription.TierFree), report("Snow"))
		require.Equal(t, http.StatusCreated, code)
	}

	hour := env.clock.Now().Format(time.RFC3339)
	code, body := env.do(t, http.MethodGet, "/api/v1/community/consensus?hour="+hour, "", nil)
	require.Equal(t, http.StatusOK, code)

	var res community.ConsensusResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.HasReports)
	assert.Equal(t, []community.Condition{community.ConditionSnow}, res.Conditions)
	assert.Equal(t, community.ConfidenceMedium, res.Confidence)

	far := "/api/v1/community/consensus?hour=" + hour + "&lat=40.0&lng=3.0"
	code, body = env.do(t, http.MethodGet, far, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"hasReports":false`)

	code, body = env.do(t, http.MethodGet, "/api/v1/community/consensus", "", nil)
	require.Equal(t, http.StatusOK, code)
	var current community.ConsensusResult
	require.NoError(t, json.Unmarshal(body, &current))
	assert.True(t, current.HasReports)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), current.Hour.UTC())
	assert.Equal(t, time.UTC, current.Hour.Location())

	code, _ = env.do(t, http.MethodGet, "/api/v1/community/consensus?hour=yesterday", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodGet, "/api/v1/community/consensus?lat=40.0", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHourlyConsensus(t *testing.T) {
	env := newTestEnv(t, nil)
	code, _ := env.do(t, http.MethodPost, "/api/v1/community/reports", "", report("Cloudy"))
	require.Equal(t, http.StatusCreated, code)

	from := env.clock.Now().Add(-time.Hour).Format(time.RFC3339)
	code, body := env.do(t, http.MethodGet, "/api/v1/community/consensus/hourly?hours=3&from="+from, "", nil)
	require.Equal(t, http.StatusOK, code)

	var out struct {
		Hours []community.ConsensusResult `json:"hours"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Hours, 3)
	assert.False(t, out.Hours[0].HasReports)
	assert.True(t, out.Hours[1].HasReports)
	assert.False(t, out.Hours[2].HasReports)

	code, body = env.do(t, http.MethodGet, "/api/v1/community/consensus/hourly?hours=2", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Hours, 2)
	assert.True(t, out.Hours[0].HasReports)

	code, _ = env.do(t, http.MethodGet, "/api/v1/community/consensus/hourly?hours=100", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMarkers(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, u := range []string{"a", "b"} {
		code, _ := env.do(t, http.MethodPost, "/api/v1/community/reports", env.token(t, u, subscription.TierFree), report("Rain"))
		require.Equal(t, http.StatusCreated, code)
	}

	code, body := env.do(t, http.MethodGet, "/api/v1/community/markers?retention=1h", "", nil)
	require.Equal(t, http.StatusOK, code)
	var out struct {
		Markers []community.Marker `json:"markers"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Markers, 1)
	assert.Equal(t, 2, out.Markers[0].Count)

	code, body = env.do(t, http.MethodGet, "/api/v1/community/markers.geojson", "", nil)
	require.Equal(t, http.StatusOK, code)
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(body, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, []float64{6.1432, 46.2044}, fc.Features[0].Geometry.Coordinates)
	assert.Equal(t, 2.0, fc.Features[0].Properties["count"])

	code, _ = env.do(t, http.MethodGet, "/api/v1/community/markers?retention=48h", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCurrentWeather_TierGating(t *testing.T) {
	env := newTestEnv(t, nil)
	url := "/api/v1/weather/current?lat=46.2&lon=6.1"

	code, body := env.do(t, http.MethodGet, url, "", nil)
	require.Equal(t, http.StatusOK, code)
	var free weather.WeatherSnapshot
	require.NoError(t, json.Unmarshal(body, &free))
	assert.Equal(t, 12.0, free.Temperature)
	assert.Nil(t, free.AQI)
	assert.Nil(t, free.UVIndex)

	code, body = env.do(t, http.MethodGet, url, env.token(t, "u", subscription.TierStandard), nil)
	require.Equal(t, http.StatusOK, code)
	var paid weather.WeatherSnapshot
	require.NoError(t, json.Unmarshal(body, &paid))
	require.NotNil(t, paid.AQI)
	assert.Equal(t, 42, *paid.AQI)
	require.NotNil(t, paid.UVIndex)

	code, _ = env.do(t, http.MethodGet, "/api/v1/weather/current?lat=abc&lon=6.1", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = env.do(t, http.MethodGet, "/api/v1/weather/current?lat=46.2", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestForecast_Clamped(t *testing.T) {
	env := newTestEnv(t, nil)
	url := "/api/v1/weather/forecast?lat=46.2&lon=6.1&hours=100"

	var out struct {
		Hours    int              `json:"hours"`
		Forecast weather.Forecast `json:"forecast"`
	}

	code, body := env.do(t, http.MethodGet, url, "", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 24, out.Hours)
	assert.Len(t, out.Forecast, 24)
	assert.Nil(t, out.Forecast[0].UVIndex)

	code, body = env.do(t, http.MethodGet, url, env.token(t, "u", subscription.TierUltimate), nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 100, out.Hours)
	assert.NotNil(t, out.Forecast[0].UVIndex)
}

func TestSubscription(t *testing.T) {
	env := newTestEnv(t, nil)

	code, body := env.do(t, http.MethodGet, "/api/v1/subscription/plans", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"current":"free"`)
	assert.Contains(t, string(body), `"monthlyPrice":"5.99"`)

	code, _ = env.do(t, http.MethodPost, "/api/v1/subscription/checkout", "", fiber.Map{"tier": "standard"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = env.do(t, http.MethodPost, "/api/v1/subscription/checkout", env.token(t, "u", subscription.TierFree), fiber.Map{"tier": "standard"})
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
