package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/mobilebook/internal/adapters/nats"
	"github.com/samirrijal/mobilebook/internal/adapters/postgres"
	"github.com/samirrijal/mobilebook/internal/adapters/traveltime"
	"github.com/samirrijal/mobilebook/internal/core/usecases"
	"github.com/samirrijal/mobilebook/internal/pkg/clock"
	"github.com/samirrijal/mobilebook/internal/pkg/config"
	"github.com/samirrijal/mobilebook/internal/pkg/logging"
	"github.com/samirrijal/mobilebook/internal/pkg/telemetry"
	"github.com/samirrijal/mobilebook/internal/workflows"
)

// The revalidator consumes area and appointment events from JetStream.
// Area writes start a revalidation workflow on Temporal; appointments
// published with text-encoded times are normalised.
func main() {
	cfg, err := config.Load("mobilebook-revalidator")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("mobilebook-revalidator", cfg.Server.LogLevel, cfg.Server.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	appointmentRepo := postgres.NewAppointmentRepo(db)
	areaRepo := postgres.NewAreaRepo(db)

	// Normalisation never looks up travel times.
	detector := usecases.NewConflictDetector(traveltime.NewStraightLine(cfg.Scheduling.AverageSpeedKmh),
		cfg.Scheduling.TravelTimeout(), cfg.Scheduling.MaxParallelLookups)
	appointmentSvc := usecases.NewAppointmentService(appointmentRepo, detector, pub, clk)
	areaSvc := usecases.NewAreaService(areaRepo, appointmentRepo, pub, clk,
		cfg.Scheduling.MaxAreaRadiusMiles, cfg.Scheduling.RevalidationHorizon())

	// Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.AreaRevalidationWorkflow)
	w.RegisterActivity(&workflows.RevalidationActivities{
		Areas:     areaSvc,
		Publisher: pub,
		Notifier:  natsadapter.NewNotifier(pub.Conn()),
		Clock:     clk,
	})

	if err := sub.SubscribeAreaEvents(ctx, workflows.AreaEventHandler(c, cfg.Temporal.TaskQueue)); err != nil {
		log.Fatalf("subscribe areas: %v", err)
	}
	if err := sub.SubscribeAppointmentEvents(ctx, workflows.AppointmentEventHandler(appointmentSvc)); err != nil {
		log.Fatalf("subscribe appointments: %v", err)
	}

	slog.Info("revalidator worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
