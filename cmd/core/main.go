package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/wraiths/core/internal/buildinfo"
	"github.com/wraiths/core/internal/bus"
	"github.com/wraiths/core/internal/config"
	"github.com/wraiths/core/internal/deadletter"
	"github.com/wraiths/core/internal/event"
	"github.com/wraiths/core/internal/gateway"
	"github.com/wraiths/core/internal/httpapi"
	"github.com/wraiths/core/internal/logging"
	"github.com/wraiths/core/internal/routing"
	"github.com/wraiths/core/internal/schema"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup(cfg.Log.Level, cfg.Service.Name)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("service failed")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	info := buildinfo.Get(cfg.Service.Environment)
	clock := clockwork.NewRealClock()

	readiness := httpapi.NewReadiness()
	readiness.SetDependency("nats", httpapi.DependencyStatus{
		Configured: cfg.NATS.Configured(),
		Required:   cfg.NATS.Required,
	})

	store, closeStore, err := setupDeadLetter(ctx, cfg.DeadLetter)
	if err != nil {
		return err
	}
	defer closeStore()

	router := routing.NewRouter()
	schemas := schema.NewRegistry()
	if err := registerCoreTools(router, info); err != nil {
		return err
	}

	gw := gateway.NewManager(gateway.DefaultConfig())
	go gw.Start(ctx)

	if cfg.NATS.Configured() {
		if err := startBus(ctx, cfg, readiness, router, schemas, store, gw, clock, info); err != nil {
			if cfg.NATS.Required {
				return err
			}
			log.Warn().Err(err).Msg("NATS unavailable, continuing without the bus")
		}
	} else {
		log.Info().Msg("NATS not configured, running HTTP only")
	}

	srv := httpapi.NewServer(cfg.HTTP, info, readiness, gw)
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("environment", cfg.Service.Environment).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	readiness.SetStarted(true)
	log.Info().Str("version", info.Version).Msg("service started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	readiness.SetStarted(false)
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupDeadLetter(ctx context.Context, cfg config.DeadLetterConfig) (deadletter.Store, func(), error) {
	if !cfg.Postgres.Configured() {
		return deadletter.LogStore{}, func() {}, nil
	}
	store, err := deadletter.NewPostgresStore(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	log.Info().Str("database", cfg.Postgres.Database).Msg("dead-letter store ready")
	return store, store.Close, nil
}

func startBus(
	ctx context.Context,
	cfg *config.Config,
	readiness *httpapi.Readiness,
	router *routing.Router,
	schemas *schema.Registry,
	store deadletter.Store,
	gw *gateway.Manager,
	clock clockwork.Clock,
	info buildinfo.Info,
) error {
	nc, js, err := bus.Connect(cfg.NATS, func(connected bool) {
		readiness.SetConnected("nats", connected)
	})
	if err != nil {
		return err
	}

	policy, err := bus.ParseNoRoutePolicy(cfg.DeadLetter.Policy)
	if err != nil {
		return err
	}

	factory := event.NewFactory(event.Source{Service: info.Service, Version: info.Version}, clock)
	publisher := bus.NewPublisher(nc, factory)

	consumer, err := bus.NewConsumer(js, cfg.NATS, bus.ConsumerOptions{
		Router:     router,
		Schemas:    schemas,
		Publisher:  publisher,
		DeadLetter: store,
		Policy:     policy,
		Observer:   gw.Broadcast,
		Clock:      clock,
	})
	if err != nil {
		return err
	}

	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("bus consumer stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		nc.Close()
	}()
	return nil
}

// registerCoreTools wires the built-in diagnostic tools. Domain-specific
// tool handlers register here as they are added to the platform.
func registerCoreTools(router *routing.Router, info buildinfo.Info) error {
	return router.Register("tool.invoke.core.ping", func(ctx context.Context, env *event.Envelope) (json.RawMessage, error) {
		return json.Marshal(map[string]string{
			"status":  "ok",
			"service": info.Service,
			"version": info.Version,
		})
	})
}
