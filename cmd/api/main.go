package main

import (
	"context"
	"github.com/ariefcatur/go-rental-scheduling/internal/alerts"
	"github.com/ariefcatur/go-rental-scheduling/internal/availability"
	"github.com/ariefcatur/go-rental-scheduling/internal/config"
	"github.com/ariefcatur/go-rental-scheduling/internal/conflict"
	"github.com/ariefcatur/go-rental-scheduling/internal/httpx"
	kafkax "github.com/ariefcatur/go-rental-scheduling/internal/kafka"
	"github.com/ariefcatur/go-rental-scheduling/internal/postgres"
	"github.com/ariefcatur/go-rental-scheduling/internal/redisx"
	"github.com/ariefcatur/go-rental-scheduling/internal/reschedule"
	"github.com/ariefcatur/go-rental-scheduling/internal/scheduling"
	"github.com/joho/godotenv"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})).
		With("service", cfg.ServiceName))

	minSeverity, ok := scheduling.ParseSeverity(cfg.AlertMinSeverity)
	if !ok {
		log.Fatalf("ALERT_MIN_SEVERITY: unknown severity %q", cfg.AlertMinSeverity)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pConflict := kafkax.NewProducer(cfg.KafkaBrokers, scheduling.TopicConflictDetected, 1024)
	pRaised := kafkax.NewProducer(cfg.KafkaBrokers, scheduling.TopicAlertRaised, 256)
	pResolved := kafkax.NewProducer(cfg.KafkaBrokers, scheduling.TopicAlertResolved, 256)
	pEscalated := kafkax.NewProducer(cfg.KafkaBrokers, scheduling.TopicAlertEscalated, 256)
	producers := []*kafkax.Producer{pConflict, pRaised, pResolved, pEscalated}
	for _, p := range producers {
		p.Start(ctx)
	}

	// Repos & services
	orders := &scheduling.WorkOrderRepo{DB: db}
	commitments := &scheduling.CommitmentRepo{DB: db}
	policy := conflict.Policy{
		CriticalShortfall: cfg.CriticalShortfall,
		HighShortfall:     cfg.HighShortfall,
		HighAdvisories:    cfg.HighAdvisories,
	}

	calc := &availability.Calculator{
		Ledger:      &scheduling.LedgerRepo{DB: db},
		Commitments: commitments,
	}
	detector := &conflict.Detector{
		Orders:       orders,
		Availability: calc,
		Commitments:  commitments,
		Policy:       policy,
		CheckTimeout: cfg.CheckTimeout,
	}
	recorder := &alerts.Recorder{
		Store:       &scheduling.AlertRepo{DB: db},
		Policy:      policy,
		MinSeverity: minSeverity,
		Raised:      pRaised,
		Resolved:    pResolved,
		Escalated:   pEscalated,
		ServiceName: cfg.ServiceName,
	}
	rescheduler := &reschedule.Service{
		Validator:   detector,
		Orders:      orders,
		Locker:      &redisx.Locker{Redis: rdb, TTL: cfg.RescheduleLockTTL},
		Conflicts:   pConflict,
		ServiceName: cfg.ServiceName,
	}

	router := httpx.NewRouter()
	sh := &httpx.SchedulingHandler{
		Availability: &availability.Cache{Checker: calc, Redis: rdb, TTL: cfg.AvailabilityCacheTTL},
		Quotes:       calc,
		Detector:     detector,
		Rescheduler:  rescheduler,
		Alerts:       recorder,
	}
	sh.Register(router)
	ah := &httpx.AlertsHandler{Recorder: recorder}
	ah.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		slog.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	slog.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range producers {
		p.Close()
	}
	cancel()
	for _, p := range producers {
		p.WaitClosed()
	}
}
