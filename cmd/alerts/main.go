package main

import (
	"context"
	"github.com/ariefcatur/go-rental-scheduling/internal/alerts"
	"github.com/ariefcatur/go-rental-scheduling/internal/config"
	"github.com/ariefcatur/go-rental-scheduling/internal/conflict"
	kafkax "github.com/ariefcatur/go-rental-scheduling/internal/kafka"
	"github.com/ariefcatur/go-rental-scheduling/internal/postgres"
	"github.com/ariefcatur/go-rental-scheduling/internal/redisx"
	"github.com/ariefcatur/go-rental-scheduling/internal/scheduling"
	"github.com/joho/godotenv"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	service := cfg.ServiceName + "-alerts"
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})).
		With("service", service))

	minSeverity, ok := scheduling.ParseSeverity(cfg.AlertMinSeverity)
	if !ok {
		log.Fatalf("ALERT_MIN_SEVERITY: unknown severity %q", cfg.AlertMinSeverity)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Only raised alerts are emitted here; resolution happens through the API.
	pRaised := kafkax.NewProducer(cfg.KafkaBrokers, scheduling.TopicAlertRaised, 256)
	pRaised.Start(ctx)

	svc := &alerts.Service{
		Recorder: &alerts.Recorder{
			Store: &scheduling.AlertRepo{DB: db},
			Policy: conflict.Policy{
				CriticalShortfall: cfg.CriticalShortfall,
				HighShortfall:     cfg.HighShortfall,
				HighAdvisories:    cfg.HighAdvisories,
			},
			MinSeverity: minSeverity,
			Raised:      pRaised,
			ServiceName: service,
		},
		Redis:       rdb,
		ServiceName: service,
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.AlertsGroup, scheduling.TopicConflictDetected, cfg.AlertsWorkers)

	go func() {
		slog.Info("alerts consumer started",
			"group", cfg.AlertsGroup, "topic", scheduling.TopicConflictDetected, "workers", cfg.AlertsWorkers)
		if err := cons.Start(ctx, svc.HandleConflictDetected); err != nil {
			slog.Error("consumer exit", "err", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	slog.Info("shutting down consumer")
	cancel()
	time.Sleep(500 * time.Millisecond)
	pRaised.Close()
	pRaised.WaitClosed()
}
