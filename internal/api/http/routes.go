package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/auth"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/community"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/geo"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/subscription"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/weather"
)

var validate = validator.New()

// Deps are the services the routes are served from.
type Deps struct {
	Weather   *weather.Service
	Community *community.Service
	Checkout  *subscription.Checkout
	Verifier  *auth.Verifier

	// MarkerRetention is used when a markers request has no retention.
	MarkerRetention time.Duration
	// Metrics serves /metrics; defaults to the prometheus default registry.
	Metrics http.Handler
	// Clock supplies the default hour for consensus queries; defaults to the
	// real clock. Default hours are UTC.
	Clock clockwork.Clock
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	metrics := d.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	clock := d.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "wise-weather",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics))

	v1 := app.Group("/api/v1", auth.Middleware(d.Verifier))

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		q, err := parseCoordQuery(c, "lat", "lon")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snapshot, err := d.Weather.Current(c.UserContext(), q.toLocation())
		if err != nil {
			log.WithError(err).Warn("http: current weather unavailable")
			return fiber.NewError(fiber.StatusBadGateway, "official weather unavailable")
		}

		return c.JSON(gateSnapshot(snapshot, auth.FromContext(c).Tier))
	})

	v1.Get("/weather/forecast", func(c *fiber.Ctx) error {
		q, err := parseCoordQuery(c, "lat", "lon")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		requested := c.QueryInt("hours", 0)
		if requested < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "hours must not be negative")
		}

		tier := auth.FromContext(c).Tier
		hours := subscription.ClampHours(tier, requested)
		forecast, err := d.Weather.GetForecast(c.UserContext(), q.toLocation(), hours)
		if err != nil {
			log.WithError(err).Warn("http: forecast unavailable")
			return fiber.NewError(fiber.StatusBadGateway, "forecast unavailable")
		}

		return c.JSON(fiber.Map{
			"tier":     tier,
			"hours":    hours,
			"forecast": gateForecast(forecast, tier),
		})
	})

	v1.Get("/community/consensus", func(c *fiber.Ctx) error {
		hour, err := parseTimeDefault(c.Query("hour"), clock.Now().UTC())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		anchor, err := parseAnchor(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.JSON(d.Community.Consensus(c.UserContext(), hour, anchor))
	})

	v1.Get("/community/consensus/hourly", func(c *fiber.Ctx) error {
		var req hourlyQuery
		if err := req.bind(c, clock.Now().UTC()); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.JSON(fiber.Map{
			"from":  req.From,
			"hours": d.Community.HourlyConsensus(c.UserContext(), req.From, req.Hours, req.Anchor),
		})
	})

	v1.Get("/community/markers", func(c *fiber.Ctx) error {
		retention, err := parseRetention(c.Query("retention"), d.MarkerRetention)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.JSON(fiber.Map{
			"retention": retention.String(),
			"markers":   d.Community.Markers(c.UserContext(), retention),
		})
	})

	v1.Get("/community/markers.geojson", func(c *fiber.Ctx) error {
		retention, err := parseRetention(c.Query("retention"), d.MarkerRetention)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		body, err := markersGeoJSON(d.Community.Markers(c.UserContext(), retention))
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(body)
	})

	v1.Post("/community/reports", func(c *fiber.Ctx) error {
		var req reportRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		conds, err := community.ParseConditions(req.Conditions)
		if err != nil {
			return err
		}

		contribution, err := d.Community.Submit(c.UserContext(), community.SubmitRequest{
			Conditions: conds,
			UserID:     auth.FromContext(c).UserID,
			Location:   geo.Point{Lat: *req.Lat, Lng: *req.Lng},
			Temp:       req.Temp,
		})
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(contribution)
	})

	v1.Get("/subscription/plans", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"current": auth.FromContext(c).Tier,
			"plans":   subscription.Plans(),
		})
	})

	v1.Post("/subscription/checkout", func(c *fiber.Ctx) error {
		id := auth.FromContext(c)
		if id.UserID == community.AnonymousUser {
			return fiber.NewError(fiber.StatusUnauthorized, "sign in to upgrade")
		}
		if !d.Checkout.Enabled() {
			return fiber.NewError(fiber.StatusServiceUnavailable, "checkout is not configured")
		}

		var req checkoutRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		tier, err := subscription.ParseTier(req.Tier)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		url, err := d.Checkout.CreateSession(id.UserID, tier)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"url": url})
	})
}

// ErrorHandler renders every error as JSON and maps domain errors to status
// codes.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, community.ErrDuplicateSubmission):
		code = fiber.StatusConflict
	case errors.Is(err, community.ErrInvalidConditions),
		errors.Is(err, subscription.ErrNotPurchasable):
		code = fiber.StatusBadRequest
	case errors.Is(err, community.ErrStoreUnavailable),
		errors.Is(err, subscription.ErrPriceNotConfigured):
		code = fiber.StatusServiceUnavailable
	}
	if code >= fiber.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Path()).Error("http: request failed")
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// coordQuery holds a required coordinate pair.
type coordQuery struct {
	Lat *float64 `validate:"required,latitude"`
	Lon *float64 `validate:"required,longitude"`
}

func (q coordQuery) toLocation() weather.Location {
	return weather.NewPoint(*q.Lat, *q.Lon)
}

func parseCoordQuery(c *fiber.Ctx, latKey, lonKey string) (coordQuery, error) {
	var q coordQuery
	var err error

	if q.Lat, err = parseOptionalFloat(c.Query(latKey)); err != nil {
		return q, errors.New(latKey + " must be a number")
	}
	if q.Lon, err = parseOptionalFloat(c.Query(lonKey)); err != nil {
		return q, errors.New(lonKey + " must be a number")
	}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

func parseOptionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// parseAnchor reads an optional lat/lng pair; both or neither must be set.
func parseAnchor(c *fiber.Ctx) (*geo.Point, error) {
	if c.Query("lat") == "" && c.Query("lng") == "" {
		return nil, nil
	}
	q, err := parseCoordQuery(c, "lat", "lng")
	if err != nil {
		return nil, err
	}
	return &geo.Point{Lat: *q.Lat, Lng: *q.Lon}, nil
}

// hourlyQuery holds query parameters for the hourly consensus strip.
type hourlyQuery struct {
	From   time.Time `validate:"required"`
	Hours  int       `validate:"min=1,max=48"`
	Anchor *geo.Point
}

func (h *hourlyQuery) bind(c *fiber.Ctx, now time.Time) error {
	from, err := parseTimeDefault(c.Query("from"), now)
	if err != nil {
		return err
	}
	h.From = from
	h.Hours = c.QueryInt("hours", 24)

	h.Anchor, err = parseAnchor(c)
	return err
}

// reportRequest is the body of a community report submission.
type reportRequest struct {
	Conditions []string `json:"conditions" validate:"required"`
	Lat        *float64 `json:"lat" validate:"required,latitude"`
	Lng        *float64 `json:"lng" validate:"required,longitude"`
	Temp       *float64 `json:"temp" validate:"omitempty,gte=-90,lte=60"`
}

type checkoutRequest struct {
	Tier string `json:"tier" validate:"required"`
}

// parseTimeDefault parses RFC3339 or Unix seconds; empty yields def.
func parseTimeDefault(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

// parseRetention parses a Go duration up to 24h; empty yields def.
func parseRetention(s string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 || d > 24*time.Hour {
		return 0, errors.New("retention must be a duration between 0 and 24h")
	}
	return d, nil
}

// gateSnapshot hides the extras the tier does not include.
func gateSnapshot(s weather.WeatherSnapshot, tier subscription.Tier) weather.WeatherSnapshot {
	e := subscription.EntitlementsFor(tier)
	if !e.AirQuality {
		s.AQI = nil
	}
	if !e.UVIndex {
		s.UVIndex = nil
	}
	return s
}

func gateForecast(f weather.Forecast, tier subscription.Tier) weather.Forecast {
	if subscription.EntitlementsFor(tier).UVIndex {
		return f
	}
	out := make(weather.Forecast, len(f))
	for i, p := range f {
		p.UVIndex = nil
		out[i] = p
	}
	return out
}
