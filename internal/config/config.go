package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/joho/godotenv"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/community"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/subscription"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/weather"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type AppConfig struct {
	Port      string
	LogLevel  string
	LogFormat string

	// FetchInterval controls how often we refresh official weather for each location.
	FetchInterval time.Duration
	HTTPTimeout   time.Duration

	// Locations to keep warm in the snapshot cache.
	Locations      []weather.Location
	GeocoderAPIKey string

	StoreDriver string
	DatabaseURL string
	MySQLDSN    string

	// In-memory retention.
	StoreMaxHistory int           // max entries per location / report log (0 = unlimited)
	StoreMaxAge     time.Duration // max age of snapshots (0 = unlimited)

	MarkerRetention time.Duration

	WAQIToken          string
	NominatimUserAgent string

	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	JWTSecret string

	Checkout subscription.CheckoutConfig
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.WithError(err).Info("config: no .env file loaded")
	}
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "text")

	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.MarkerRetention, err = getenvDuration("MARKER_RETENTION", community.DefaultMarkerRetention); err != nil {
		return nil, err
	}
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 96) // roughly 24h at 15-minute intervals

	cfg.StoreDriver = strings.ToLower(getenvDefault("STORE_DRIVER", DriverMemory))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	switch cfg.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=%s", cfg.StoreDriver)
		}
	case DriverMySQL:
		if cfg.MySQLDSN == "" {
			return nil, fmt.Errorf("MYSQL_DSN is required for STORE_DRIVER=%s", cfg.StoreDriver)
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.StoreDriver)
	}

	locs, err := parseLocations(os.Getenv("WEATHER_LOCATIONS"))
	if err != nil {
		return nil, err
	}
	cityLocs, err := loadCityLocations()
	if err != nil {
		return nil, err
	}
	cfg.Locations = append(locs, cityLocs...)
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	cfg.WAQIToken = os.Getenv("WAQI_TOKEN")
	cfg.NominatimUserAgent = getenvDefault("NOMINATIM_USER_AGENT", "wise-weather/1.0")

	cfg.AMQPURL = os.Getenv("AMQP_URL")
	cfg.AMQPExchange = getenvDefault("AMQP_EXCHANGE", "community")
	cfg.AMQPRoutingKey = getenvDefault("AMQP_ROUTING_KEY", "report.submitted")

	cfg.JWTSecret = os.Getenv("JWT_SECRET")

	cfg.Checkout = subscription.CheckoutConfig{
		SecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		Prices: map[subscription.Tier]string{
			subscription.TierStandard: os.Getenv("STRIPE_PRICE_STANDARD"),
			subscription.TierUltimate: os.Getenv("STRIPE_PRICE_ULTIMATE"),
		},
		SuccessURL: os.Getenv("CHECKOUT_SUCCESS_URL"),
		CancelURL:  os.Getenv("CHECKOUT_CANCEL_URL"),
	}

	return cfg, nil
}

// parseLocations reads "name:lat:lon;name:lat:lon".
func parseLocations(raw string) ([]weather.Location, error) {
	var locs []weather.Location
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid WEATHER_LOCATIONS entry %q: want name:lat:lon", entry)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || lat < -90 || lat > 90 {
			return nil, fmt.Errorf("invalid latitude in WEATHER_LOCATIONS entry %q", entry)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil || lon < -180 || lon > 180 {
			return nil, fmt.Errorf("invalid longitude in WEATHER_LOCATIONS entry %q", entry)
		}
		loc := weather.NewPoint(lat, lon)
		loc.Name = strings.TrimSpace(parts[0])
		locs = append(locs, loc)
	}
	return locs, nil
}

func loadCityLocations() ([]weather.Location, error) {
	city := os.Getenv("WEATHER_LOCATION_CITY")
	country := os.Getenv("WEATHER_LOCATION_COUNTRY")
	if city == "" && country == "" {
		return nil, nil
	}
	cities := strings.Split(city, ",")
	countries := strings.Split(country, ",")
	if len(cities) != len(countries) {
		return nil, fmt.Errorf("number of cities and countries must be the same")
	}
	var locs []weather.Location
	for i := range cities {
		locs = append(locs, weather.Location{
			City:    strings.TrimSpace(cities[i]),
			Country: strings.TrimSpace(countries[i]),
		})
	}

	return locs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
