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

	"github.com/samirrijal/mobilebook/internal/adapters/http"
	natsadapter "github.com/samirrijal/mobilebook/internal/adapters/nats"
	"github.com/samirrijal/mobilebook/internal/adapters/postgres"
	"github.com/samirrijal/mobilebook/internal/adapters/traveltime"
	"github.com/samirrijal/mobilebook/internal/adapters/valkey"
	"github.com/samirrijal/mobilebook/internal/core/ports"
	"github.com/samirrijal/mobilebook/internal/core/usecases"
	"github.com/samirrijal/mobilebook/internal/pkg/clock"
	"github.com/samirrijal/mobilebook/internal/pkg/config"
	"github.com/samirrijal/mobilebook/internal/pkg/logging"
	"github.com/samirrijal/mobilebook/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("mobilebook-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup("mobilebook-api", cfg.Server.LogLevel, cfg.Server.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	clk, err := clock.NewZoned(cfg.Scheduling.TimeZone)
	if err != nil {
		log.Fatalf("clock: %v", err)
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Cache
	var travelCache ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr, "mobilebook:")
	if err != nil {
		slog.Warn("valkey unavailable, travel times uncached", "error", err)
	} else {
		defer cache.Close()
		travelCache = cache
	}

	// NATS
	var publisher ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
	} else {
		defer nc.Close()
		publisher = nc
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	// Travel time
	estimator, err := traveltime.New(traveltime.Options{
		GoogleAPIKey:    cfg.Google.APIKey,
		GoogleQPS:       cfg.Google.QPS,
		AverageSpeedKmh: cfg.Scheduling.AverageSpeedKmh,
		Retries:         cfg.Scheduling.TravelRetries,
		Cache:           travelCache,
		CacheTTLSeconds: cfg.Scheduling.TravelCacheTTLSeconds,
	})
	if err != nil {
		log.Fatalf("travel estimator: %v", err)
	}

	// Repos
	appointmentRepo := postgres.NewAppointmentRepo(db)
	areaRepo := postgres.NewAreaRepo(db)

	// Use cases
	detector := usecases.NewConflictDetector(estimator, cfg.Scheduling.TravelTimeout(), cfg.Scheduling.MaxParallelLookups)
	appointmentSvc := usecases.NewAppointmentService(appointmentRepo, detector, publisher, clk)
	areaSvc := usecases.NewAreaService(areaRepo, appointmentRepo, publisher, clk,
		cfg.Scheduling.MaxAreaRadiusMiles, cfg.Scheduling.RevalidationHorizon())

	deps := &http.Dependencies{
		Appointments: appointmentSvc,
		Areas:        areaSvc,
		NATS:         natsConn,
		DB:           db,
		Cache:        cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    256 * 1024,
		AppName:      "mobilebook API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:3000, http://localhost:5173",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "time_zone", cfg.Scheduling.TimeZone)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
