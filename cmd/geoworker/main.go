package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/poonyc/internal/adapters/nats"
	"github.com/samirrijal/poonyc/internal/adapters/nominatim"
	"github.com/samirrijal/poonyc/internal/adapters/valkey"
	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/core/ports"
	"github.com/samirrijal/poonyc/internal/pkg/config"
	"github.com/samirrijal/poonyc/internal/pkg/logging"
	"github.com/samirrijal/poonyc/internal/pkg/telemetry"
	"github.com/samirrijal/poonyc/internal/workflows"
)

// geoworker resolves the address of every newly created restroom through the
// shared geocode cache, then announces it so live sessions reload.
func main() {
	cfg, err := config.Load("poonyc-geoworker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.FromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	// Warming the cache is the point of this worker, so valkey is required.
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()
	var geocoder ports.Geocoder = valkey.NewGeocodeCache(
		nominatim.New(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent, cfg.Geocoder.Timeout()),
		cache, cfg.Geocoder.CacheTTLSeconds)

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

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.GeocodeWarmupWorkflow)
	w.RegisterActivity(&workflows.GeocodeActivities{
		Geocoder:  geocoder,
		Publisher: pub,
	})
	if err := w.Start(); err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer w.Stop()

	// A redelivered event finds the run already started under the same ID
	// and gets that run back instead of a second one.
	err = sub.SubscribeRestroomCreated(ctx, func(ctx context.Context, ev *domain.RestroomCreated) error {
		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        workflows.WorkflowID(ev.RecordID),
			TaskQueue: cfg.Temporal.TaskQueue,
		}, workflows.GeocodeWarmupWorkflow, workflows.WarmupInput{
			RecordID: ev.RecordID,
			Address:  ev.Address,
		})
		if err != nil {
			return fmt.Errorf("start warm-up for %s: %w", ev.RecordID, err)
		}
		slog.Info("geocode warm-up started", "record_id", ev.RecordID, "run_id", run.GetRunID())
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe restrooms.created: %v", err)
	}

	slog.Info("geoworker started", "task_queue", cfg.Temporal.TaskQueue)
	<-worker.InterruptCh()
	slog.Info("geoworker stopping")
}
