package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	httpapi "github.com/NeousAxis/Wise-Weather-App-sub000/internal/api/http"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/auth"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/community"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/config"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/logging"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/notify"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/observability"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/scheduler"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/store"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/subscription"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/weather"
	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/weather/providers"
)

// memoryReportCap bounds the in-memory report log.
const memoryReportCap = 50000

// reportBackend is satisfied by every community store implementation.
type reportBackend interface {
	community.ReportStore
	community.CounterStore
}

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	if err := logging.Setup(os.Stderr, cfg.LogFormat, cfg.LogLevel); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()

	// Community report + counter stores.
	backend, feed, closeBackend, err := openBackend(ctx, cfg, clock)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer closeBackend()

	// Report notifications.
	var notifier community.Notifier = notify.LogNotifier{}
	if cfg.AMQPURL != "" {
		pub, err := notify.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			log.WithError(err).Warn("amqp unavailable; notifications will only be logged")
		} else {
			defer pub.Close()
			notifier = pub
		}
	}

	communitySvc := community.NewService(backend, backend,
		community.WithClock(clock),
		community.WithNotifier(notifier),
		community.WithMetrics(metrics),
	)
	if feed != nil {
		go communitySvc.TrackMarkers(ctx, feed, cfg.MarkerRetention)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// In-memory snapshot cache with configured retention.
	snapshots := store.NewSnapshotStore(cfg.StoreMaxHistory, cfg.StoreMaxAge, clock)

	// Providers with resilience (backoff + circuit breaker).
	weatherOpts := []weather.Option{
		weather.WithReverseGeocoder(providers.NewNominatimGeocoder(httpClient, cfg.NominatimUserAgent)),
		weather.WithMetrics(metrics),
	}
	if cfg.WAQIToken != "" {
		weatherOpts = append(weatherOpts, weather.WithAirQuality(providers.NewWAQIProvider(httpClient, cfg.WAQIToken)))
	}
	weatherSvc := weather.NewService(snapshots,
		[]weather.Provider{providers.NewOpenMeteoProvider(httpClient)},
		weatherOpts...,
	)

	// Open-Meteo only takes coordinates; city entries need geocoding first.
	locations := providers.ResolveLocations(cfg.GeocoderAPIKey, cfg.Locations)
	sched := scheduler.New(withCoordinates(locations), cfg.FetchInterval, weatherSvc)
	if err := sched.Start(); err != nil {
		log.WithError(err).Fatal("failed to start scheduler")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "wise-weather",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Weather:         weatherSvc,
		Community:       communitySvc,
		Checkout:        subscription.NewCheckout(cfg.Checkout),
		Verifier:        auth.NewVerifier(cfg.JWTSecret),
		MarkerRetention: cfg.MarkerRetention,
		Clock:           clock,
	})

	// Start server with graceful shutdown
	go func() {
		log.WithField("port", cfg.Port).Info("http: listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Error("fiber server stopped")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.WithError(err).Error("error during shutdown")
	}
}

// openBackend opens the configured store. The memory store also returns a live
// feed of appended reports.
func openBackend(ctx context.Context, cfg *config.AppConfig, clock clockwork.Clock) (reportBackend, <-chan community.Report, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		log.Info("store: using postgres")
		return pg, nil, pool.Close, nil

	case config.DriverMySQL:
		db, err := store.OpenMySQL(cfg.MySQLDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		my := store.NewMySQLStore(db)
		if err := my.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		log.Info("store: using mysql")
		return my, nil, func() { db.Close() }, nil
	}

	reports := store.NewMemoryReportStore(memoryReportCap, clock)
	counters := store.NewMemoryCounterStore()
	feed := reports.Subscribe(64)
	log.Info("store: using memory")
	return struct {
		*store.MemoryReportStore
		*store.MemoryCounterStore
	}{reports, counters}, feed, func() { reports.Unsubscribe(feed) }, nil
}

func withCoordinates(locs []weather.Location) []weather.Location {
	out := locs[:0:0]
	for _, l := range locs {
		if !l.HasCoordinates() {
			log.WithField("location", l.Key()).Warn("skipping location without coordinates")
			continue
		}
		out = append(out, l)
	}
	return out
}
