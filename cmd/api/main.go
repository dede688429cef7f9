package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/toy-session-engine/internal/backend"
	"github.com/ariefcatur/toy-session-engine/internal/config"
	"github.com/ariefcatur/toy-session-engine/internal/engine"
	"github.com/ariefcatur/toy-session-engine/internal/events"
	"github.com/ariefcatur/toy-session-engine/internal/httpx"
	kafkax "github.com/ariefcatur/toy-session-engine/internal/kafka"
	"github.com/ariefcatur/toy-session-engine/internal/logger"
	"github.com/ariefcatur/toy-session-engine/internal/order"
	"github.com/ariefcatur/toy-session-engine/internal/postgres"
	"github.com/ariefcatur/toy-session-engine/internal/redisx"
	"github.com/ariefcatur/toy-session-engine/internal/store"
	"github.com/ariefcatur/toy-session-engine/internal/telemetry"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(logger.Options{Service: cfg.ServiceName, Env: cfg.AppEnv, Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OtelEnabled {
		shutdown, err := telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.AppEnv)
		if err != nil {
			log.Error("tracer setup", "err", err)
			os.Exit(1)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
	}

	kv, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("store", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	// Kafka producer, only when brokers are configured
	var (
		pub  events.Publisher
		prod *kafkax.Producer
	)
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
		prod.Start(ctx)
		pub = prod
	}

	eng := engine.New(engine.Deps{
		Backend:   backend.New(cfg.BackendURL, cfg.BackendTimeout, log.With("component", "backend")),
		Store:     kv,
		Namespace: cfg.StoreNamespace,
		Publisher: pub,
		Producer:  cfg.ServiceName,
		Pricing:   order.Pricing{FreeShippingThreshold: cfg.FreeShippingThreshold, ShippingFee: cfg.ShippingFee},
		Log:       log,
	})
	if err := eng.Load(ctx); err != nil {
		log.Error("restore session", "err", err)
		os.Exit(1)
	}

	router := httpx.NewRouter()
	(&httpx.SessionHandler{Engine: eng, Log: log}).Register(router)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr, "backend", cfg.BackendURL, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)
	if prod != nil {
		prod.Close()
		prod.WaitClosed()
	}
}

func openStore(ctx context.Context, cfg config.Config) (store.KV, func(), error) {
	switch cfg.StoreDriver {
	case "memory", "":
		return store.NewMemory(), func() {}, nil
	case "redis":
		rdb := redisx.New(cfg.RedisAddr)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return redisx.NewStore(rdb), func() { _ = rdb.Close() }, nil
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return &postgres.KVStore{DB: db, Namespace: cfg.StoreNamespace}, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
