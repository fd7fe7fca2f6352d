package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/poonyc/internal/adapters/device"
	"github.com/samirrijal/poonyc/internal/adapters/geoip"
	"github.com/samirrijal/poonyc/internal/adapters/http"
	natsadapter "github.com/samirrijal/poonyc/internal/adapters/nats"
	"github.com/samirrijal/poonyc/internal/adapters/nominatim"
	"github.com/samirrijal/poonyc/internal/adapters/objectstore"
	"github.com/samirrijal/poonyc/internal/adapters/postgres"
	"github.com/samirrijal/poonyc/internal/adapters/valkey"
	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/core/ports"
	"github.com/samirrijal/poonyc/internal/core/usecases"
	"github.com/samirrijal/poonyc/internal/pkg/config"
	"github.com/samirrijal/poonyc/internal/pkg/logging"
	"github.com/samirrijal/poonyc/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("poonyc-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.FromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					slog.Warn("telemetry shutdown", "error", err)
				}
			}()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	deps := &http.Dependencies{DB: db}

	// Geocoder, with the shared cache in front when valkey is reachable
	var geocoder ports.Geocoder = nominatim.New(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent, cfg.Geocoder.Timeout())
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, geocoding uncached", "error", err)
	} else {
		defer cache.Close()
		geocoder = valkey.NewGeocodeCache(geocoder, cache, cfg.Geocoder.CacheTTLSeconds)
		deps.Cache = cache
	}

	// NATS
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
		deps.Broker = pub
	}

	// Photo storage
	var photos ports.PhotoStore
	if cfg.Storage.AccessKey != "" {
		store, err := objectstore.New(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL)
		if err != nil {
			slog.Warn("object storage unavailable, photo uploads disabled", "error", err)
		} else {
			photos = store
		}
	}

	// Client IP → starting region
	var locator ports.RegionLocator
	if cfg.GeoIP.DBPath != "" {
		l, err := geoip.Open(cfg.GeoIP.DBPath)
		if err != nil {
			slog.Warn("geoip database unavailable", "path", cfg.GeoIP.DBPath, "error", err)
		} else {
			defer l.Close()
			locator = l
		}
	}

	repo := postgres.NewRestroomRepo(db)
	pins := usecases.NewPinResolver(repo, geocoder, cfg.Geocoder.Timeout())
	search := usecases.NewSearchService(geocoder, cfg.Map.FocusSpan)
	sessions := usecases.NewSessionRegistry(usecases.SessionConfig{
		DefaultRegion:  domain.RegionAround(domain.GeoPoint{Lat: cfg.Map.DefaultLat, Lon: cfg.Map.DefaultLon}, cfg.Map.DefaultSpan),
		FocusSpan:      cfg.Map.FocusSpan,
		LoadingTimeout: cfg.Map.LoadingTimeout(),
		FixTimeout:     cfg.Map.FixTimeout(),
	}, pins, search, locator, func() ports.LocationProvider {
		return device.NewReportedProvider()
	})
	defer sessions.CloseAll()
	go sessions.RunSweeper(ctx, time.Minute, cfg.Map.SessionIdle())

	deps.Restrooms = usecases.NewRestroomService(repo, publisher, photos)
	deps.Pins = pins
	deps.Search = search
	deps.Sessions = sessions

	// Live sessions reload when a new record's address has been resolved.
	if pub != nil {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			err := sub.SubscribeRestroomGeocoded(ctx, func(ctx context.Context, ev *domain.RestroomGeocoded) error {
				slog.Info("restroom geocoded, reloading sessions", "record_id", ev.RecordID, "sessions", sessions.Len())
				sessions.ReloadAll()
				return nil
			})
			if err != nil {
				slog.Warn("subscribe restrooms.geocoded", "error", err)
			}
		}
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    8 * 1024 * 1024, // photos
		AppName:      "poonyc API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
