package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/toy-session-engine/internal/config"
	"github.com/ariefcatur/toy-session-engine/internal/events"
	kafkax "github.com/ariefcatur/toy-session-engine/internal/kafka"
	"github.com/ariefcatur/toy-session-engine/internal/ledger"
	"github.com/ariefcatur/toy-session-engine/internal/logger"
	"github.com/ariefcatur/toy-session-engine/internal/postgres"
	"github.com/ariefcatur/toy-session-engine/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(logger.Options{Service: cfg.ServiceName + "-ledger", Env: cfg.AppEnv, Level: cfg.LogLevel})

	if len(cfg.KafkaBrokers) == 0 {
		log.Error("KAFKA_BROKERS is required for the ledger")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("db migrate", "err", err)
		os.Exit(1)
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &ledger.Service{
		Repo:  &postgres.LedgerRepo{DB: db},
		Dedup: redisx.NewDedup(rdb, "ledger"),
		Log:   log,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range []string{events.TopicReservation, events.TopicOrder} {
		topic := topic
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.LedgerGroup, topic, cfg.LedgerWorkers, log.With("topic", topic))
		g.Go(func() error {
			log.Info("ledger consumer started", "group", cfg.LedgerGroup, "topic", topic, "workers", cfg.LedgerWorkers)
			return cons.Start(gctx, svc.HandleEvent)
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("consumer exit", "err", err)
		os.Exit(1)
	}
	log.Info("ledger stopped")
}
