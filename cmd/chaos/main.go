// cmd/chaos/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"hinlibs/internal/chaos"
	"hinlibs/internal/circulation"
	"hinlibs/internal/config"
	"hinlibs/internal/eventstore"
	"hinlibs/internal/logger"
	"hinlibs/internal/telemetry"
)

func main() {
	duration := flag.Duration("duration", 3*time.Second, "observation window per experiment")
	interval := flag.Duration("interval", 250*time.Millisecond, "metric sample interval")
	pause := flag.Duration("pause", time.Second, "pause between experiments")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, telemetry.Config{ServiceName: cfg.ServiceName + "-chaos", Endpoint: cfg.OTLPEndpoint}, zlog)
	if err != nil {
		zlog.Fatal("failed to set up telemetry", zap.Error(err))
	}
	defer shutdown(context.Background())

	journal := chaos.NewFlakyJournal(eventstore.NewMemoryStore())
	store, err := circulation.NewStore(circulation.WithEventStore(journal))
	if err != nil {
		zlog.Fatal("failed to create store", zap.Error(err))
	}

	engine := chaos.NewEngine(store,
		chaos.WithJournal(journal),
		chaos.WithSampleInterval(*interval),
		chaos.WithPause(*pause),
		chaos.WithLogger(zlog.Named("chaos")),
	)
	engine.RegisterExperiments()

	var scenarios []chaos.Experiment
	for _, exp := range engine.Experiments() {
		exp.Duration = *duration
		scenarios = append(scenarios, exp)
	}

	gameDay := chaos.GameDay{
		Name:      "Circulation Invariants Game Day",
		Date:      time.Now(),
		Scenarios: scenarios,
	}

	if err := engine.ExecuteGameDay(ctx, gameDay); err != nil {
		zlog.Error("chaos game day failed", zap.Error(err))
		zlog.Sync()
		shutdown(context.Background())
		os.Exit(1)
	}
}
